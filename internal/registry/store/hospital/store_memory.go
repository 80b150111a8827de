package hospital

import (
	"context"
	"sync"

	"organlink/internal/registry/models"
	id "organlink/pkg/domain"
	"organlink/pkg/platform/sentinel"
)

// InMemoryStore keeps hospitals in a map; used in development and tests.
type InMemoryStore struct {
	mu        sync.RWMutex
	hospitals map[id.HospitalID]models.Hospital
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{hospitals: make(map[id.HospitalID]models.Hospital)}
}

func (s *InMemoryStore) Save(_ context.Context, hospital *models.Hospital) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hospitals[hospital.ID] = *hospital
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, hospitalID id.HospitalID) (*models.Hospital, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hospital, ok := s.hospitals[hospitalID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := hospital
	return &copied, nil
}
