package store

import (
	"context"
	"sync"
	"time"

	"organlink/internal/allocation/models"
	id "organlink/pkg/domain"
	"organlink/pkg/platform/sentinel"
)

// InMemoryStore keeps allocation requests in a map; used in development and
// tests. The mutex makes UpdateStatusIfPending an atomic check-and-set, which
// is what the double-respond race tests exercise.
type InMemoryStore struct {
	mu       sync.RWMutex
	requests map[id.RequestID]models.AllocationRequest
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{requests: make(map[id.RequestID]models.AllocationRequest)}
}

func (s *InMemoryStore) Create(_ context.Context, request *models.AllocationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[request.ID]; ok {
		return sentinel.ErrConflict
	}
	s.requests[request.ID] = *request
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, requestID id.RequestID) (*models.AllocationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := request
	return &copied, nil
}

func (s *InMemoryStore) FindActiveByPair(_ context.Context, recipientID id.RecipientID, donorID id.DonorID) (*models.AllocationRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var newest *models.AllocationRequest
	for _, request := range s.requests {
		if request.RecipientID != recipientID || request.DonorID != donorID {
			continue
		}
		if request.Status != models.StatusPending && request.Status != models.StatusAccepted {
			continue
		}
		if newest == nil || request.CreatedAt.After(newest.CreatedAt) {
			copied := request
			newest = &copied
		}
	}
	if newest == nil {
		return nil, sentinel.ErrNotFound
	}
	return newest, nil
}

func (s *InMemoryStore) UpdateStatusIfPending(_ context.Context, requestID id.RequestID, to models.Status, responderNotes string, respondedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if request.Status != models.StatusPending {
		return sentinel.ErrConflict
	}

	request.Status = to
	request.ResponderNotes = responderNotes
	request.UpdatedAt = respondedAt
	s.requests[requestID] = request
	return nil
}

func (s *InMemoryStore) MarkCompleted(_ context.Context, requestID id.RequestID, completedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if request.Status != models.StatusAccepted {
		return sentinel.ErrConflict
	}

	request.Status = models.StatusCompleted
	request.UpdatedAt = completedAt
	s.requests[requestID] = request
	return nil
}

func (s *InMemoryStore) MarkViewed(_ context.Context, requestID id.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[requestID]
	if !ok {
		return sentinel.ErrNotFound
	}
	request.Viewed = true
	s.requests[requestID] = request
	return nil
}
