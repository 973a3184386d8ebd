// Package requestcontext provides HTTP-independent context accessors for
// values scoped to a single request or evaluation pass.
//
// Middleware and the evaluation pass set the values; services read them:
//
//	now := requestcontext.Now(ctx)
//	passID := requestcontext.PassID(ctx)
//
// Tests inject a fixed clock with requestcontext.WithTime.
package requestcontext

import (
	"context"
	"time"
)

// Context key types (unexported for encapsulation).
type (
	requestIDKey   struct{}
	passIDKey      struct{}
	actorIDKey     struct{}
	requestTimeKey struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyPassID      = passIDKey{}
	ContextKeyActorID     = actorIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
)

// -----------------------------------------------------------------------------
// Correlation
// -----------------------------------------------------------------------------

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

// PassID retrieves the evaluation pass ID from the context.
func PassID(ctx context.Context) string {
	if passID, ok := ctx.Value(ContextKeyPassID).(string); ok {
		return passID
	}
	return ""
}

// WithPassID injects an evaluation pass ID into the context.
func WithPassID(ctx context.Context, passID string) context.Context {
	return context.WithValue(ctx, ContextKeyPassID, passID)
}

// ActorID retrieves the authenticated operator (JWT subject) from the context.
func ActorID(ctx context.Context) string {
	if actor, ok := ctx.Value(ContextKeyActorID).(string); ok {
		return actor
	}
	return ""
}

// WithActorID injects the authenticated operator into the context.
func WithActorID(ctx context.Context, actorID string) context.Context {
	return context.WithValue(ctx, ContextKeyActorID, actorID)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the scoped time from context.
// Falls back to time.Now() if not set.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that need a fixed clock
//   - Evaluation passes that need one "now" for every user in the batch
//   - CLI commands
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
