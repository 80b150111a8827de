package recipient

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"organlink/internal/registry/models"
	"organlink/internal/registry/store"
	id "organlink/pkg/domain"
	"organlink/pkg/platform/sentinel"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists recipients in PostgreSQL.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore constructs a PostgreSQL-backed recipient store.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, r *models.Recipient) error {
	query := `
		INSERT INTO recipients (
			id, hospital_id, organ, blood_type, urgency, age, gender, status,
			matched_donor_id, matched_hospital_id, registered_at, completed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			matched_donor_id = EXCLUDED.matched_donor_id,
			matched_hospital_id = EXCLUDED.matched_hospital_id,
			completed_at = EXCLUDED.completed_at
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.HospitalID), string(r.Organ), string(r.BloodType),
		string(r.Urgency), r.Age, string(r.Gender), string(r.Status),
		donorIDOrNil(r.MatchedDonorID), hospitalIDOrNil(r.MatchedHospitalID),
		r.RegisteredAt, r.CompletedAt)
	if err != nil {
		return fmt.Errorf("save recipient: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, recipientID id.RecipientID) (*models.Recipient, error) {
	query := `
		SELECT id, hospital_id, organ, blood_type, urgency, age, gender, status,
		       matched_donor_id, matched_hospital_id, registered_at, completed_at
		FROM recipients WHERE id = $1
	`
	var (
		r               models.Recipient
		rawID, rawHosp  uuid.UUID
		matchedDonor    *uuid.UUID
		matchedHospital *uuid.UUID
	)
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(recipientID)).Scan(
		&rawID, &rawHosp, &r.Organ, &r.BloodType, &r.Urgency, &r.Age, &r.Gender, &r.Status,
		&matchedDonor, &matchedHospital, &r.RegisteredAt, &r.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find recipient: %w", err)
	}
	r.ID = id.RecipientID(rawID)
	r.HospitalID = id.HospitalID(rawHosp)
	if matchedDonor != nil {
		donorID := id.DonorID(*matchedDonor)
		r.MatchedDonorID = &donorID
	}
	if matchedHospital != nil {
		hospitalID := id.HospitalID(*matchedHospital)
		r.MatchedHospitalID = &hospitalID
	}
	return &r, nil
}

// UpdateMatchState is a status-conditioned write: it succeeds only while the
// recipient row is still in one of the expected states, so racing transitions
// serialize on the row instead of silently overwriting each other.
func (s *PostgresStore) UpdateMatchState(ctx context.Context, recipientID id.RecipientID, from []models.RecipientStatus, change store.RecipientMatchChange) error {
	query := `
		UPDATE recipients SET
			status = $2,
			matched_donor_id = $3,
			matched_hospital_id = $4,
			completed_at = $5
		WHERE id = $1 AND status = ANY($6)
	`
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(recipientID), string(change.Status),
		donorIDOrNil(change.MatchedDonorID), hospitalIDOrNil(change.MatchedHospitalID),
		change.CompletedAt, statusArray(from))
	if err != nil {
		return fmt.Errorf("update recipient match state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update recipient match state: %w", err)
	}
	if affected == 0 {
		// Either the row vanished or it left the expected state.
		if _, findErr := s.FindByID(ctx, recipientID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

func donorIDOrNil(donorID *id.DonorID) any {
	if donorID == nil {
		return nil
	}
	return uuid.UUID(*donorID)
}

func hospitalIDOrNil(hospitalID *id.HospitalID) any {
	if hospitalID == nil {
		return nil
	}
	return uuid.UUID(*hospitalID)
}

func statusArray(from []models.RecipientStatus) any {
	statuses := make([]string, len(from))
	for i, s := range from {
		statuses[i] = string(s)
	}
	return pq.Array(statuses)
}
