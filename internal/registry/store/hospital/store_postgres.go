package hospital

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"organlink/internal/registry/models"
	id "organlink/pkg/domain"
	"organlink/pkg/platform/sentinel"
)

// DBTX is satisfied by *sql.DB and *sql.Tx so the same store code serves both
// standalone reads and unit-of-work transactions.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore persists hospitals in PostgreSQL.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore constructs a PostgreSQL-backed hospital store.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, hospital *models.Hospital) error {
	query := `
		INSERT INTO hospitals (id, name, city, region, country)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			city = EXCLUDED.city,
			region = EXCLUDED.region,
			country = EXCLUDED.country
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(hospital.ID), hospital.Name, hospital.City, hospital.Region, hospital.Country)
	if err != nil {
		return fmt.Errorf("save hospital: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, hospitalID id.HospitalID) (*models.Hospital, error) {
	var hospital models.Hospital
	var rawID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, city, region, country FROM hospitals WHERE id = $1`,
		uuid.UUID(hospitalID),
	).Scan(&rawID, &hospital.Name, &hospital.City, &hospital.Region, &hospital.Country)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find hospital: %w", err)
	}
	hospital.ID = id.HospitalID(rawID)
	return &hospital, nil
}
