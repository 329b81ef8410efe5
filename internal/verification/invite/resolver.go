// Package invite attributes arrivals to the invite code they consumed by
// diffing invite usage counters against a per-guild snapshot.
package invite

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"

	"gatekeeper/internal/verification/metrics"
	"gatekeeper/internal/verification/models"
	"gatekeeper/internal/verification/ports"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/keymutex"
)

type usage struct {
	uses    int
	maxUses int
}

// Resolver keeps one usage snapshot per guild. Every read, enumeration and
// write for a guild happens under that guild's lock, so two concurrent
// arrivals never diff against the same snapshot.
type Resolver struct {
	lister  ports.InviteLister
	locks   *keymutex.KeyMutex
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu     sync.RWMutex
	caches map[string]map[string]usage
}

type Option func(*Resolver)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

func New(lister ports.InviteLister, opts ...Option) (*Resolver, error) {
	if lister == nil {
		return nil, errors.New("invite lister is required")
	}
	r := &Resolver{
		lister: lister,
		locks:  keymutex.New(),
		caches: make(map[string]map[string]usage),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Refresh replaces the guild's snapshot with a full enumeration. On failure
// the previous snapshot is kept.
func (r *Resolver) Refresh(ctx context.Context, guildID string) error {
	unlock, err := r.locks.Lock(ctx, guildID)
	if err != nil {
		return err
	}
	defer unlock()

	live, err := r.lister.ListInvites(ctx, guildID)
	if err != nil {
		r.logWarn(ctx, "could not cache invites", guildID, err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to enumerate invites")
	}
	r.store(guildID, snapshot(live))
	return nil
}

// Resolve returns the code the latest arrival used, or "" when it cannot be
// determined. The snapshot is replaced with the live enumeration after every
// diff; an enumeration failure leaves it untouched.
func (r *Resolver) Resolve(ctx context.Context, guildID string) (string, error) {
	unlock, err := r.locks.Lock(ctx, guildID)
	if err != nil {
		return "", err
	}
	defer unlock()

	live, err := r.lister.ListInvites(ctx, guildID)
	if err != nil {
		r.logWarn(ctx, "could not resolve invite", guildID, err)
		r.record(metrics.AttributionFailed)
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to enumerate invites")
	}

	previous, known := r.load(guildID)
	current := snapshot(live)
	r.store(guildID, current)

	if !known {
		// Without a baseline every existing invite would look freshly used.
		r.record(metrics.AttributionUnknown)
		return "", nil
	}

	code, result := diff(previous, live, current)
	r.record(result)
	return code, nil
}

// Forget drops the guild's snapshot, e.g. when the bot leaves it.
func (r *Resolver) Forget(guildID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.caches, guildID)
}

// diff picks the invite whose use count went up; failing that, a single-use
// invite one use short of its limit that has since disappeared.
func diff(previous map[string]usage, live []models.Invite, current map[string]usage) (string, string) {
	for _, inv := range live {
		if inv.Uses > previous[inv.Code].uses {
			return inv.Code, metrics.AttributionIncreased
		}
	}

	var vanished []string
	for code, u := range previous {
		if _, still := current[code]; still {
			continue
		}
		if u.maxUses > 0 && u.uses == u.maxUses-1 {
			vanished = append(vanished, code)
		}
	}
	if len(vanished) == 0 {
		return "", metrics.AttributionUnknown
	}
	sort.Strings(vanished)
	return vanished[0], metrics.AttributionVanished
}

func snapshot(live []models.Invite) map[string]usage {
	out := make(map[string]usage, len(live))
	for _, inv := range live {
		out[inv.Code] = usage{uses: inv.Uses, maxUses: inv.MaxUses}
	}
	return out
}

func (r *Resolver) load(guildID string) (map[string]usage, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.caches[guildID]
	return c, ok
}

func (r *Resolver) store(guildID string, c map[string]usage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.caches[guildID] = c
}

// Cached reports the number of invites in the guild's snapshot and whether one exists.
func (r *Resolver) Cached(guildID string) (int, bool) {
	c, ok := r.load(guildID)
	return len(c), ok
}

func (r *Resolver) record(result string) {
	if r.metrics != nil {
		r.metrics.IncrementInviteAttributions(result)
	}
}

func (r *Resolver) logWarn(ctx context.Context, msg, guildID string, err error) {
	if r.logger == nil {
		return
	}
	r.logger.WarnContext(ctx, msg, "guild_id", guildID, "error", err)
}
