package worker

import (
	"context"
	"log/slog"

	audit "gatekeeper/pkg/platform/audit"
)

// Worker consumes audit events from a channel and persists them. Append
// failures are logged and the worker keeps draining.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, inbox: inbox, logger: logger}
}

// Run persists events until the inbox is closed. Cancelling ctx only affects
// in-flight Append calls so that a closed inbox is always drained.
func (w *Worker) Run(ctx context.Context) {
	for event := range w.inbox {
		if err := w.store.Append(ctx, event); err != nil {
			w.logger.ErrorContext(ctx, "failed to persist audit event",
				"event", event.Action,
				"guild_id", event.GuildID,
				"error", err,
			)
		}
	}
}
