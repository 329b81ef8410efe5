// Package ports defines the collaborators the verification engine depends on.
// Interfaces live here when consumed by more than one package (service, sweep,
// invite resolver, transports) so fakes and adapters share one contract.
package ports

//go:generate mockgen -source=ports.go -destination=mocks/mocks.go -package=mocks Platform,InviteLister,AuditPublisher

import (
	"context"
	"log/slog"
	"time"

	"gatekeeper/internal/verification/models"
	"gatekeeper/pkg/platform/audit"
	"gatekeeper/pkg/requestcontext"
)

// SessionStore holds short-lived, single-use challenge sessions.
type SessionStore interface {
	Create(ctx context.Context, session *models.ChallengeSession) error
	// Peek reads a session without consuming it. Returns sentinel.ErrNotFound.
	Peek(ctx context.Context, id string) (*models.ChallengeSession, error)
	// Consume atomically removes and returns a session. Exactly one caller
	// wins for a given id; the rest get sentinel.ErrNotFound.
	Consume(ctx context.Context, id string) (*models.ChallengeSession, error)
	// Prune drops sessions past their expiry and reports how many were removed.
	Prune(ctx context.Context, now time.Time) (int, error)
}

// StateMutator edits a state row in place. Returning an error aborts the write.
type StateMutator func(state *models.VerificationState) error

// StateStore persists one VerificationState per (guild, user).
type StateStore interface {
	// Get returns nil, nil when no row exists.
	Get(ctx context.Context, guildID, userID string) (*models.VerificationState, error)
	// Upsert atomically loads (or initialises) the row, applies mutate, normalizes
	// it and writes the full record back.
	Upsert(ctx context.Context, guildID, userID string, mutate StateMutator) (*models.VerificationState, error)
	Delete(ctx context.Context, guildID, userID string) error

	// ListStalePending returns PENDING/CHALLENGE rows older than their guild's challenge timeout.
	// The removal queries skip rows whose removal is deferred past now.
	ListStalePending(ctx context.Context, now time.Time, limit int) ([]*models.VerificationState, error)
	// ListStaleTerminal returns REJECTED and REVIEW_EXPIRED rows awaiting removal.
	ListStaleTerminal(ctx context.Context, now time.Time, limit int) ([]*models.VerificationState, error)
	// DeferRemoval hides a row awaiting removal from both removal queries
	// until the given time. Rows that are gone or no longer await removal
	// are left alone.
	DeferRemoval(ctx context.Context, guildID, userID string, until time.Time) error
	// ListExpiredReviews returns MANUAL_REVIEW rows past their guild's review timeout.
	ListExpiredReviews(ctx context.Context, now time.Time, limit int) ([]*models.VerificationState, error)
	// ListRemindableReviews returns unreminded MANUAL_REVIEW rows past fraction
	// of their review timeout but not yet expired.
	ListRemindableReviews(ctx context.Context, now time.Time, fraction float64, limit int) ([]*models.VerificationState, error)
}

// ConfigStore persists per-guild verification configuration.
type ConfigStore interface {
	// Get returns the stored config, or the defaults when none was saved.
	Get(ctx context.Context, guildID string) (*models.GuildConfig, error)
	Update(ctx context.Context, guildID string, mutate func(cfg *models.GuildConfig) error) (*models.GuildConfig, error)
}

// InviteLister enumerates a guild's live invites.
type InviteLister interface {
	ListInvites(ctx context.Context, guildID string) ([]models.Invite, error)
}

// Platform is the chat platform as seen by the engine. Every call may fail
// transiently; absent members, roles and messages surface as sentinel.ErrNotFound.
type Platform interface {
	InviteLister

	FetchMember(ctx context.Context, guildID, userID string) (*models.Member, error)
	Capabilities(ctx context.Context, guildID string) (*models.BotCapabilities, error)
	RolePosition(ctx context.Context, guildID, roleID string) (int, error)
	AddRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error
	RemoveMember(ctx context.Context, guildID, userID, reason string) error

	SendMessage(ctx context.Context, channelID string, msg models.OutboundMessage) (*models.MessageRef, error)
	FetchMessage(ctx context.Context, ref models.MessageRef) (*models.PostedMessage, error)
	EditMessage(ctx context.Context, ref models.MessageRef, embeds []models.Embed, buttons []models.Button) error
	ReplyMessage(ctx context.Context, ref models.MessageRef, content string) error
}

// InviteResolver attributes an arrival to the invite code it consumed.
type InviteResolver interface {
	Refresh(ctx context.Context, guildID string) error
	Resolve(ctx context.Context, guildID string) (string, error)
	Forget(guildID string)
}

// AuditPublisher emits audit events for moderation-relevant operations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// LogAudit logs an audit event and forwards it to the publisher. Publishing
// failures are logged, never returned: audit is a side channel.
func LogAudit(ctx context.Context, logger *slog.Logger, publisher AuditPublisher, event audit.Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if logger != nil {
		args := []any{
			"guild_id", event.GuildID,
			"user_id", event.UserID,
			"actor_id", event.ActorID,
			"event", event.Action,
			"log_type", "audit",
		}
		if event.Reason != "" {
			args = append(args, "reason", event.Reason)
		}
		if event.RequestID != "" {
			args = append(args, "request_id", event.RequestID)
		}
		logger.InfoContext(ctx, event.Action, args...)
	}

	if publisher == nil {
		return
	}
	if err := publisher.Emit(ctx, event); err != nil && logger != nil {
		logger.WarnContext(ctx, "failed to publish audit event",
			"event", event.Action,
			"error", err,
		)
	}
}
