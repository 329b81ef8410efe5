// Package requestcontext provides transport-independent context accessors for
// values scoped to one inbound interaction.
//
// An "interaction" is either an HTTP admin request or a single Discord gateway
// event. Middleware and the event router set these values; services read them.
//
// Usage in services (read values):
//
//	now := requestcontext.Now(ctx)
//	requestID := requestcontext.RequestID(ctx)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
package requestcontext

import (
	"context"
	"time"
)

type (
	requestIDKey    struct{}
	requestTimeKey  struct{}
	adminSubjectKey struct{}
	adminGuildsKey  struct{}
)

var (
	ContextKeyRequestID    = requestIDKey{}
	ContextKeyRequestTime  = requestTimeKey{}
	ContextKeyAdminSubject = adminSubjectKey{}
	ContextKeyAdminGuilds  = adminGuildsKey{}
)

// -----------------------------------------------------------------------------
// Correlation
// -----------------------------------------------------------------------------

// RequestID returns the correlation ID (HTTP request ID or Discord interaction ID).
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return v
	}
	return ""
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// -----------------------------------------------------------------------------
// Admin identity (HTTP admin API only)
// -----------------------------------------------------------------------------

func AdminSubject(ctx context.Context) string {
	if v, ok := ctx.Value(ContextKeyAdminSubject).(string); ok {
		return v
	}
	return ""
}

// AdminGuilds returns the guild IDs the admin token is scoped to. A single "*"
// entry grants access to every guild.
func AdminGuilds(ctx context.Context) []string {
	if v, ok := ctx.Value(ContextKeyAdminGuilds).([]string); ok {
		return v
	}
	return nil
}

func WithAdmin(ctx context.Context, subject string, guilds []string) context.Context {
	ctx = context.WithValue(ctx, ContextKeyAdminSubject, subject)
	return context.WithValue(ctx, ContextKeyAdminGuilds, guilds)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the interaction-scoped time from context.
// Falls back to time.Now() if not set (sweeps, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that need a fixed clock
//   - The sweep, which evaluates one pass against a single instant
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
