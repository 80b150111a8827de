package donor

import (
	"context"
	"sync"

	"organlink/internal/registry/models"
	"organlink/internal/registry/store"
	id "organlink/pkg/domain"
	"organlink/pkg/platform/sentinel"
)

// InMemoryStore keeps donors in a map; used in development and tests.
type InMemoryStore struct {
	mu     sync.RWMutex
	donors map[id.DonorID]models.Donor
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{donors: make(map[id.DonorID]models.Donor)}
}

func (s *InMemoryStore) Save(_ context.Context, donor *models.Donor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *donor
	copied.Organs = append([]models.Organ(nil), donor.Organs...)
	s.donors[donor.ID] = copied
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, donorID id.DonorID) (*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	donor, ok := s.donors[donorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := donor
	copied.Organs = append([]models.Organ(nil), donor.Organs...)
	return &copied, nil
}

// Delete removes a donor. Owning hospitals may delete records out from under
// the allocation flow; the state machine re-checks existence.
func (s *InMemoryStore) Delete(_ context.Context, donorID id.DonorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.donors, donorID)
	return nil
}

func (s *InMemoryStore) ListCandidates(_ context.Context, organ models.Organ, bloodTypes []models.BloodType, scope store.CandidateScope) ([]*models.Donor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	allowed := make(map[models.BloodType]bool, len(bloodTypes))
	for _, bt := range bloodTypes {
		allowed[bt] = true
	}

	var candidates []*models.Donor
	for _, donor := range s.donors {
		if donor.Status != models.DonorAvailable {
			continue
		}
		if !donor.Offers(organ) {
			continue
		}
		if !allowed[donor.BloodType] {
			continue
		}
		switch scope.Mode {
		case store.ScopeSameHospital:
			if donor.HospitalID != scope.Hospital {
				continue
			}
		case store.ScopeExcludeHospital:
			if donor.HospitalID == scope.Hospital {
				continue
			}
		}
		copied := donor
		copied.Organs = append([]models.Organ(nil), donor.Organs...)
		candidates = append(candidates, &copied)
	}
	return candidates, nil
}

func (s *InMemoryStore) UpdateMatchState(_ context.Context, donorID id.DonorID, from []models.DonorStatus, change store.DonorMatchChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	donor, ok := s.donors[donorID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !statusIn(donor.Status, from) {
		return sentinel.ErrConflict
	}

	donor.Status = change.Status
	donor.MatchedRecipientID = change.MatchedRecipientID
	donor.DonatedAt = change.DonatedAt
	s.donors[donorID] = donor
	return nil
}

func statusIn(status models.DonorStatus, set []models.DonorStatus) bool {
	for _, s := range set {
		if s == status {
			return true
		}
	}
	return false
}
