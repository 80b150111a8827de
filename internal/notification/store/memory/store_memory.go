package memory

import (
	"context"
	"sync"

	"organlink/internal/notification"
	id "organlink/pkg/domain"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	inbox map[id.HospitalID][]notification.Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{inbox: make(map[id.HospitalID][]notification.Notification)}
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox = make(map[id.HospitalID][]notification.Notification)
}

func (s *InMemoryStore) Insert(_ context.Context, n *notification.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inbox[n.Hospital] = append(s.inbox[n.Hospital], *n)
	return nil
}

func (s *InMemoryStore) ListByHospital(_ context.Context, hospital id.HospitalID) ([]*notification.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]*notification.Notification, 0, len(s.inbox[hospital]))
	for i := range s.inbox[hospital] {
		copied := s.inbox[hospital][i]
		list = append(list, &copied)
	}
	return list, nil
}

func (s *InMemoryStore) MarkReadByRelated(_ context.Context, hospital id.HospitalID, related id.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.inbox[hospital] {
		if s.inbox[hospital][i].RelatedID == related {
			s.inbox[hospital][i].Read = true
		}
	}
	return nil
}
