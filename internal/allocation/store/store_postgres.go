package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"organlink/internal/allocation/models"
	id "organlink/pkg/domain"
	"organlink/pkg/platform/sentinel"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists allocation requests in PostgreSQL.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore constructs a PostgreSQL-backed request store.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, r *models.AllocationRequest) error {
	query := `
		INSERT INTO allocation_requests (
			id, origin_hospital_id, target_hospital_id, recipient_id, donor_id,
			status, requester_notes, responder_notes, viewed, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.OriginHospitalID), uuid.UUID(r.TargetHospitalID),
		uuid.UUID(r.RecipientID), uuid.UUID(r.DonorID), string(r.Status),
		r.RequesterNotes, r.ResponderNotes, r.Viewed, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create allocation request: %w", err)
	}
	return nil
}

const requestColumns = `
	id, origin_hospital_id, target_hospital_id, recipient_id, donor_id,
	status, requester_notes, responder_notes, viewed, created_at, updated_at`

func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.AllocationRequest, error) {
	query := `SELECT` + requestColumns + ` FROM allocation_requests WHERE id = $1`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(requestID)), "find allocation request")
}

func (s *PostgresStore) FindActiveByPair(ctx context.Context, recipientID id.RecipientID, donorID id.DonorID) (*models.AllocationRequest, error) {
	query := `
		SELECT` + requestColumns + `
		FROM allocation_requests
		WHERE recipient_id = $1 AND donor_id = $2 AND status IN ('pending', 'accepted')
		ORDER BY created_at DESC
		LIMIT 1
	`
	return s.scanOne(s.db.QueryRowContext(ctx, query, uuid.UUID(recipientID), uuid.UUID(donorID)), "find active request")
}

// UpdateStatusIfPending is the optimistic concurrency guard: the WHERE clause
// only matches while the row is still pending, so the losing responder of a
// race observes sentinel.ErrConflict.
func (s *PostgresStore) UpdateStatusIfPending(ctx context.Context, requestID id.RequestID, to models.Status, responderNotes string, respondedAt time.Time) error {
	query := `
		UPDATE allocation_requests
		SET status = $2, responder_notes = $3, updated_at = $4
		WHERE id = $1 AND status = 'pending'
	`
	return s.conditionalWrite(ctx, requestID, "update allocation request status",
		query, uuid.UUID(requestID), string(to), responderNotes, respondedAt)
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, requestID id.RequestID, completedAt time.Time) error {
	query := `
		UPDATE allocation_requests
		SET status = 'completed', updated_at = $2
		WHERE id = $1 AND status = 'accepted'
	`
	return s.conditionalWrite(ctx, requestID, "mark allocation request completed",
		query, uuid.UUID(requestID), completedAt)
}

func (s *PostgresStore) MarkViewed(ctx context.Context, requestID id.RequestID) error {
	query := `UPDATE allocation_requests SET viewed = TRUE WHERE id = $1`
	result, err := s.db.ExecContext(ctx, query, uuid.UUID(requestID))
	if err != nil {
		return fmt.Errorf("mark allocation request viewed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark allocation request viewed: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) conditionalWrite(ctx context.Context, requestID id.RequestID, op, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		// Either the row vanished or it left the expected state.
		if _, findErr := s.FindByID(ctx, requestID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

func (s *PostgresStore) scanOne(row *sql.Row, op string) (*models.AllocationRequest, error) {
	var (
		r                           models.AllocationRequest
		rawID, rawOrigin, rawTarget uuid.UUID
		rawRecipient, rawDonor      uuid.UUID
	)
	err := row.Scan(&rawID, &rawOrigin, &rawTarget, &rawRecipient, &rawDonor,
		&r.Status, &r.RequesterNotes, &r.ResponderNotes, &r.Viewed, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	r.ID = id.RequestID(rawID)
	r.OriginHospitalID = id.HospitalID(rawOrigin)
	r.TargetHospitalID = id.HospitalID(rawTarget)
	r.RecipientID = id.RecipientID(rawRecipient)
	r.DonorID = id.DonorID(rawDonor)
	return &r, nil
}
