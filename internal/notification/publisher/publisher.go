// Package publisher delivers notification intents to a store-backed inbox,
// either synchronously or through a bounded async buffer.
//
// Allocation transitions need synchronous delivery so a sink failure aborts
// the transaction. Advisory traffic (match announcements) can use the async
// buffer, where a full buffer drops the intent rather than blocking matching.
package publisher

import (
	"context"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"organlink/internal/notification"
	id "organlink/pkg/domain"
	"organlink/pkg/requestcontext"
)

var droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "organlink_notifications_dropped_total",
	Help: "Notification intents dropped because the async buffer was full.",
})

// Publisher is the store-backed notification sink.
type Publisher struct {
	store  notification.Store
	logger *slog.Logger

	inbox chan notification.Intent
	wg    sync.WaitGroup
	once  sync.Once
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithAsyncBuffer switches delivery to a background worker with the given
// buffer capacity. Send never blocks; a full buffer drops the intent.
func WithAsyncBuffer(capacity int) Option {
	return func(p *Publisher) {
		if capacity <= 0 {
			capacity = 256
		}
		p.inbox = make(chan notification.Intent, capacity)
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// NewPublisher builds a publisher over the given store. With no options it
// delivers synchronously.
func NewPublisher(store notification.Store, opts ...Option) *Publisher {
	p := &Publisher{store: store, logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	if p.inbox != nil {
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Send persists the intent. Synchronous mode returns the store error so a
// caller inside a transaction can abort; async mode always returns nil.
func (p *Publisher) Send(ctx context.Context, intent notification.Intent) error {
	if p.inbox == nil {
		return p.store.Insert(ctx, p.materialize(ctx, intent))
	}
	select {
	case p.inbox <- intent:
	default:
		droppedTotal.Inc()
		p.logger.WarnContext(ctx, "notification buffer full, dropping intent",
			"hospital_id", intent.Hospital.String(),
			"type", string(intent.Type),
		)
	}
	return nil
}

// MarkRead marks every notification for the hospital referencing the request.
func (p *Publisher) MarkRead(ctx context.Context, hospital id.HospitalID, related id.RequestID) error {
	return p.store.MarkReadByRelated(ctx, hospital, related)
}

// Close stops the worker after draining buffered intents. Safe to call twice.
func (p *Publisher) Close() {
	p.once.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			p.wg.Wait()
		}
	})
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for intent := range p.inbox {
		ctx := context.Background()
		if err := p.store.Insert(ctx, p.materialize(ctx, intent)); err != nil {
			p.logger.Error("async notification insert failed",
				"hospital_id", intent.Hospital.String(),
				"type", string(intent.Type),
				"error", err,
			)
		}
	}
}

func (p *Publisher) materialize(ctx context.Context, intent notification.Intent) *notification.Notification {
	return &notification.Notification{
		ID:        id.NewNotificationID(),
		Hospital:  intent.Hospital,
		Type:      intent.Type,
		Title:     intent.Title,
		Message:   intent.Message,
		RelatedID: intent.RelatedID,
		CreatedAt: requestcontext.Now(ctx),
	}
}
