// Package store defines the repository contract for allocation requests.
// Implementations return sentinel errors; the service translates them into
// coded domain errors.
package store

import (
	"context"
	"time"

	"organlink/internal/allocation/models"
	id "organlink/pkg/domain"
)

// Store persists allocation requests.
type Store interface {
	Create(ctx context.Context, request *models.AllocationRequest) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.AllocationRequest, error)
	// FindActiveByPair returns the pending or accepted request for the pair,
	// or sentinel.ErrNotFound when none exists.
	FindActiveByPair(ctx context.Context, recipientID id.RecipientID, donorID id.DonorID) (*models.AllocationRequest, error)
	// UpdateStatusIfPending is the optimistic concurrency guard on responses:
	// it moves the request out of pending only if it is still pending, and
	// returns sentinel.ErrConflict when another responder won the race.
	UpdateStatusIfPending(ctx context.Context, requestID id.RequestID, to models.Status, responderNotes string, respondedAt time.Time) error
	// MarkCompleted moves an accepted request to completed; sentinel.ErrConflict
	// when the request is not accepted.
	MarkCompleted(ctx context.Context, requestID id.RequestID, completedAt time.Time) error
	// MarkViewed sets the target-hospital viewed hint.
	MarkViewed(ctx context.Context, requestID id.RequestID) error
}
