package store

import (
	"context"
	"sort"
	"sync"

	"organlink/internal/policy/models"
	id "organlink/pkg/domain"
)

// InMemoryStore keeps policies in a map; used in development and tests.
type InMemoryStore struct {
	mu       sync.RWMutex
	policies map[id.PolicyID]models.Policy
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{policies: make(map[id.PolicyID]models.Policy)}
}

func (s *InMemoryStore) Save(_ context.Context, policy *models.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *policy
	copied.Rules = append([]models.RuleSpec(nil), policy.Rules...)
	s.policies[policy.ID] = copied
	return nil
}

func (s *InMemoryStore) Eligible(_ context.Context) ([]*models.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var eligible []*models.Policy
	for _, policy := range s.policies {
		if !policy.Eligible() {
			continue
		}
		copied := policy
		copied.Rules = append([]models.RuleSpec(nil), policy.Rules...)
		eligible = append(eligible, &copied)
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].CreatedAt.After(eligible[j].CreatedAt)
	})
	return eligible, nil
}
