package audit

import (
	"context"
	"time"
)

// EventCategory classifies audit events by their primary purpose.
// This enables different retention policies and routing per sink.
type EventCategory string

const (
	// CategoryModeration covers human moderator decisions. These are the
	// record moderators consult when a member disputes an outcome.
	CategoryModeration EventCategory = "moderation"

	// CategoryEnforcement covers automated removals and expiries.
	CategoryEnforcement EventCategory = "enforcement"

	// CategoryOperations covers routine lifecycle and configuration events.
	CategoryOperations EventCategory = "operations"
)

// SystemActor is the ActorID recorded for actions taken by the engine itself.
const SystemActor = "system"

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	ID        string
	Timestamp time.Time
	GuildID   string
	// UserID is the member the action applies to.
	UserID string
	// ActorID is the moderator (or SystemActor) who performed the action.
	ActorID   string
	Action    string
	Reason    string
	RequestID string
	Metadata  map[string]string
}

// Store is anything that can durably accept an event.
type Store interface {
	Append(ctx context.Context, event Event) error
}

var eventCategories = map[string]EventCategory{
	"VERIFY_APPROVE": CategoryModeration,
	"VERIFY_REJECT":  CategoryModeration,
	"VERIFY_RECHECK": CategoryModeration,
	"REVIEW_EXPIRED": CategoryEnforcement,
	"VERIFY_KICK":    CategoryEnforcement,
	"VERIFY_QUEUE":   CategoryOperations,
	"CONFIG_CHANGED": CategoryOperations,
}

// Category returns the category for an event action.
// Unknown actions default to CategoryOperations.
func (e Event) Category() EventCategory {
	if cat, ok := eventCategories[e.Action]; ok {
		return cat
	}
	return CategoryOperations
}
