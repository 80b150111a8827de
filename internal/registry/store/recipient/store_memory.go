package recipient

import (
	"context"
	"sync"

	"organlink/internal/registry/models"
	"organlink/internal/registry/store"
	id "organlink/pkg/domain"
	"organlink/pkg/platform/sentinel"
)

// InMemoryStore keeps recipients in a map; used in development and tests.
type InMemoryStore struct {
	mu         sync.RWMutex
	recipients map[id.RecipientID]models.Recipient
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{recipients: make(map[id.RecipientID]models.Recipient)}
}

func (s *InMemoryStore) Save(_ context.Context, recipient *models.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipients[recipient.ID] = *recipient
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, recipientID id.RecipientID) (*models.Recipient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recipient, ok := s.recipients[recipientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := recipient
	return &copied, nil
}

// Delete removes a recipient. Owning hospitals may delete records out from
// under the allocation flow; the state machine re-checks existence.
func (s *InMemoryStore) Delete(_ context.Context, recipientID id.RecipientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.recipients, recipientID)
	return nil
}

func (s *InMemoryStore) UpdateMatchState(_ context.Context, recipientID id.RecipientID, from []models.RecipientStatus, change store.RecipientMatchChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipient, ok := s.recipients[recipientID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !statusIn(recipient.Status, from) {
		return sentinel.ErrConflict
	}

	recipient.Status = change.Status
	recipient.MatchedDonorID = change.MatchedDonorID
	recipient.MatchedHospitalID = change.MatchedHospitalID
	recipient.CompletedAt = change.CompletedAt
	s.recipients[recipientID] = recipient
	return nil
}

func statusIn(status models.RecipientStatus, set []models.RecipientStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
