package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"organlink/internal/policy/models"
	id "organlink/pkg/domain"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PostgresStore persists policies in PostgreSQL. Rule specs live in a jsonb
// column so governance can add rule kinds without schema changes.
type PostgresStore struct {
	db DBTX
}

// NewPostgresStore constructs a PostgreSQL-backed policy store.
func NewPostgresStore(db DBTX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Save(ctx context.Context, policy *models.Policy) error {
	rules, err := json.Marshal(policy.Rules)
	if err != nil {
		return fmt.Errorf("marshal policy rules: %w", err)
	}
	query := `
		INSERT INTO policies (
			id, title, content, status, votes_for, votes_against,
			paused_for_matching, rules, proposed_by, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			votes_for = EXCLUDED.votes_for,
			votes_against = EXCLUDED.votes_against,
			paused_for_matching = EXCLUDED.paused_for_matching,
			rules = EXCLUDED.rules
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(policy.ID), policy.Title, policy.Content, string(policy.Status),
		policy.VotesFor, policy.VotesAgainst, policy.PausedForMatching,
		rules, uuid.UUID(policy.ProposedBy), policy.CreatedAt)
	if err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}

func (s *PostgresStore) Eligible(ctx context.Context) ([]*models.Policy, error) {
	query := `
		SELECT id, title, content, status, votes_for, votes_against,
		       paused_for_matching, rules, proposed_by, created_at
		FROM policies
		WHERE paused_for_matching = FALSE
		  AND (status = 'active' OR (status = 'voting' AND votes_for > votes_against))
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list eligible policies: %w", err)
	}
	defer rows.Close()

	var eligible []*models.Policy
	for rows.Next() {
		var (
			policy         models.Policy
			rawID, rawHosp uuid.UUID
			rawRules       []byte
		)
		err := rows.Scan(&rawID, &policy.Title, &policy.Content, &policy.Status,
			&policy.VotesFor, &policy.VotesAgainst, &policy.PausedForMatching,
			&rawRules, &rawHosp, &policy.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan policy: %w", err)
		}
		if len(rawRules) > 0 {
			if err := json.Unmarshal(rawRules, &policy.Rules); err != nil {
				return nil, fmt.Errorf("unmarshal policy rules: %w", err)
			}
		}
		policy.ID = id.PolicyID(rawID)
		policy.ProposedBy = id.HospitalID(rawHosp)
		eligible = append(eligible, &policy)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list eligible policies: %w", err)
	}
	return eligible, nil
}
