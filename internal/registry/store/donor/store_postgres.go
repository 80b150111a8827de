package donor

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
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists donors in PostgreSQL. The organ set is a text[]
// column.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore constructs a PostgreSQL-backed donor store.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, d *models.Donor) error {
	query := `
		INSERT INTO donors (
			id, hospital_id, blood_type, organs, age, gender, status,
			matched_recipient_id, registered_at, donated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			matched_recipient_id = EXCLUDED.matched_recipient_id,
			donated_at = EXCLUDED.donated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(d.ID), uuid.UUID(d.HospitalID), string(d.BloodType),
		pq.Array(organStrings(d.Organs)), d.Age, string(d.Gender), string(d.Status),
		recipientIDOrNil(d.MatchedRecipientID), d.RegisteredAt, d.DonatedAt)
	if err != nil {
		return fmt.Errorf("save donor: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	query := `
		SELECT id, hospital_id, blood_type, organs, age, gender, status,
		       matched_recipient_id, registered_at, donated_at
		FROM donors WHERE id = $1
	`
	donor, err := scanDonor(s.db.QueryRowContext(ctx, query, uuid.UUID(donorID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find donor: %w", err)
	}
	return donor, nil
}

func (s *PostgresStore) ListCandidates(ctx context.Context, organ models.Organ, bloodTypes []models.BloodType, scope store.CandidateScope) ([]*models.Donor, error) {
	query := `
		SELECT id, hospital_id, blood_type, organs, age, gender, status,
		       matched_recipient_id, registered_at, donated_at
		FROM donors
		WHERE status = 'available'
		  AND $1 = ANY(organs)
		  AND blood_type = ANY($2)
	`
	args := []any{string(organ), pq.Array(bloodTypeStrings(bloodTypes))}
	switch scope.Mode {
	case store.ScopeSameHospital:
		query += ` AND hospital_id = $3`
		args = append(args, uuid.UUID(scope.Hospital))
	case store.ScopeExcludeHospital:
		query += ` AND hospital_id <> $3`
		args = append(args, uuid.UUID(scope.Hospital))
	}
	query += ` ORDER BY registered_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	var candidates []*models.Donor
	for rows.Next() {
		donor, err := scanDonor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, donor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	return candidates, nil
}

// UpdateMatchState is a status-conditioned write mirroring the recipient
// store; see there for the serialization rationale.
func (s *PostgresStore) UpdateMatchState(ctx context.Context, donorID id.DonorID, from []models.DonorStatus, change store.DonorMatchChange) error {
	query := `
		UPDATE donors SET
			status = $2,
			matched_recipient_id = $3,
			donated_at = $4
		WHERE id = $1 AND status = ANY($5)
	`
	statuses := make([]string, len(from))
	for i, st := range from {
		statuses[i] = string(st)
	}
	result, err := s.db.ExecContext(ctx, query,
		uuid.UUID(donorID), string(change.Status),
		recipientIDOrNil(change.MatchedRecipientID), change.DonatedAt, pq.Array(statuses))
	if err != nil {
		return fmt.Errorf("update donor match state: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update donor match state: %w", err)
	}
	if affected == 0 {
		if _, findErr := s.FindByID(ctx, donorID); errors.Is(findErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDonor(row rowScanner) (*models.Donor, error) {
	var (
		d                models.Donor
		rawID, rawHosp   uuid.UUID
		organs           pq.StringArray
		matchedRecipient *uuid.UUID
	)
	err := row.Scan(&rawID, &rawHosp, &d.BloodType, &organs, &d.Age, &d.Gender, &d.Status,
		&matchedRecipient, &d.RegisteredAt, &d.DonatedAt)
	if err != nil {
		return nil, err
	}
	d.ID = id.DonorID(rawID)
	d.HospitalID = id.HospitalID(rawHosp)
	d.Organs = make([]models.Organ, len(organs))
	for i, o := range organs {
		d.Organs[i] = models.Organ(o)
	}
	if matchedRecipient != nil {
		recipientID := id.RecipientID(*matchedRecipient)
		d.MatchedRecipientID = &recipientID
	}
	return &d, nil
}

func organStrings(organs []models.Organ) []string {
	out := make([]string, len(organs))
	for i, o := range organs {
		out[i] = string(o)
	}
	return out
}

func bloodTypeStrings(bloodTypes []models.BloodType) []string {
	out := make([]string, len(bloodTypes))
	for i, bt := range bloodTypes {
		out[i] = string(bt)
	}
	return out
}

func recipientIDOrNil(recipientID *id.RecipientID) any {
	if recipientID == nil {
		return nil
	}
	return uuid.UUID(*recipientID)
}
