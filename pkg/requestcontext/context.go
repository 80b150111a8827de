// Package requestcontext provides HTTP-independent context accessors for
// request-scoped values. Middleware sets them, services read them, and tests
// inject them without running the full HTTP chain.
package requestcontext

import (
	"context"
	"time"

	id "organlink/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	hospitalIDKey  struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// Exported context keys for tests that need context.WithValue directly.
var (
	ContextKeyHospitalID  = hospitalIDKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// HospitalID retrieves the acting hospital from the context.
// Returns the zero value if not set.
func HospitalID(ctx context.Context) id.HospitalID {
	if hospitalID, ok := ctx.Value(ContextKeyHospitalID).(id.HospitalID); ok {
		return hospitalID
	}
	return id.HospitalID{}
}

// WithHospitalID injects the acting hospital into the context.
func WithHospitalID(ctx context.Context, hospitalID id.HospitalID) context.Context {
	return context.WithValue(ctx, ContextKeyHospitalID, hospitalID)
}

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() for non-HTTP contexts (workers, tests, CLI).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context. Useful for service unit
// tests and batch workers that need one consistent timestamp.
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
