// Package store provides access to governance policies. The governance
// mechanism itself (proposals, voting, a possible ledger backing) is an
// external collaborator; this store only reads its outcomes.
package store

import (
	"context"

	"organlink/internal/policy/models"
)

// Store reads governance policies.
type Store interface {
	Save(ctx context.Context, policy *models.Policy) error
	// Eligible returns every policy currently allowed to influence ranking,
	// ordered by creation time descending (newest governance wins ties).
	Eligible(ctx context.Context) ([]*models.Policy, error)
}
