// Package service implements the allocation request state machine. Every
// transition runs inside one transaction covering the request, the recipient,
// the donor, and the notification emission; a failure anywhere rolls the whole
// transition back.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"

	"organlink/internal/allocation/store"
	"organlink/internal/notification"
	registry "organlink/internal/registry/models"
	registrystore "organlink/internal/registry/store"
	id "organlink/pkg/domain"
	dErrors "organlink/pkg/domain-errors"
	"organlink/pkg/platform/sentinel"
)

var tracer = otel.Tracer("organlink/internal/allocation")

// Sink receives notification intents. Send runs inside the transition's
// transaction: a sink failure aborts the transition.
type Sink interface {
	Send(ctx context.Context, intent notification.Intent) error
	// MarkRead failures are advisory and never abort a transition.
	MarkRead(ctx context.Context, hospital id.HospitalID, related id.RequestID) error
}

// Stores bundles the repositories one transition mutates atomically.
type Stores struct {
	Requests   store.Store
	Recipients registrystore.RecipientStore
	Donors     registrystore.DonorStore
}

// Tx is the unit-of-work boundary. The Postgres implementation wraps a SQL
// transaction and hands fn a context carrying it so side channels like the
// notification store join the same transaction; the in-memory one serializes
// transitions with sharded locks.
type Tx interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, stores Stores) error) error
}

// Service drives allocation requests through pending, accepted, rejected, and
// completed. No other writer mutates a request's status.
type Service struct {
	tx     Tx
	sink   Sink
	logger *slog.Logger
}

func NewService(tx Tx, sink Sink, logger *slog.Logger) *Service {
	return &Service{tx: tx, sink: sink, logger: logger}
}

// loadRecipient resolves a recipient reference, translating store sentinels.
// vanished selects the code for a missing row: not-found at the API boundary,
// data-integrity when a previously referenced record disappeared mid-flight.
func loadRecipient(ctx context.Context, stores Stores, recipientID id.RecipientID, vanished dErrors.Code) (*registry.Recipient, error) {
	recipient, err := stores.Recipients.FindByID(ctx, recipientID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(vanished, "recipient no longer exists")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDownstream, "load recipient")
	}
	return recipient, nil
}

func loadDonor(ctx context.Context, stores Stores, donorID id.DonorID, vanished dErrors.Code) (*registry.Donor, error) {
	donor, err := stores.Donors.FindByID(ctx, donorID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.New(vanished, "donor no longer exists")
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDownstream, "load donor")
	}
	return donor, nil
}

// markRead is best-effort: a read-flag failure must not abort a transition.
func (s *Service) markRead(ctx context.Context, hospital id.HospitalID, related id.RequestID) {
	if err := s.sink.MarkRead(ctx, hospital, related); err != nil {
		s.logger.WarnContext(ctx, "failed to mark notification read",
			"hospital_id", hospital.String(),
			"request_id", related.String(),
			"error", err,
		)
	}
}
