package state

import (
	"context"
	"sort"
	"sync"
	"time"

	"gatekeeper/internal/verification/models"
	"gatekeeper/internal/verification/ports"
	"gatekeeper/pkg/requestcontext"
)

// TimeoutSource resolves a guild's configured timeouts for the sweep queries.
type TimeoutSource interface {
	Get(ctx context.Context, guildID string) (*models.GuildConfig, error)
}

type stateKey struct {
	guildID string
	userID  string
}

// InMemoryStore keeps verification state in process memory.
// The sweep queries consult the guild config through configs, mirroring the
// join the Postgres store performs.
type InMemoryStore struct {
	mu      sync.RWMutex
	rows    map[stateKey]*models.VerificationState
	configs TimeoutSource
}

func NewInMemory(configs TimeoutSource) *InMemoryStore {
	return &InMemoryStore{
		rows:    make(map[stateKey]*models.VerificationState),
		configs: configs,
	}
}

func (s *InMemoryStore) Get(_ context.Context, guildID, userID string) (*models.VerificationState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[stateKey{guildID, userID}]
	if !ok {
		return nil, nil
	}
	return row.Clone(), nil
}

func (s *InMemoryStore) Upsert(ctx context.Context, guildID, userID string, mutate ports.StateMutator) (*models.VerificationState, error) {
	now := requestcontext.Now(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	k := stateKey{guildID, userID}
	row, ok := s.rows[k]
	if ok {
		row = row.Clone()
	} else {
		row = models.NewVerificationState(guildID, userID, now)
	}
	if mutate != nil {
		if err := mutate(row); err != nil {
			return nil, err
		}
	}
	row.GuildID, row.UserID = guildID, userID
	row.Normalize()
	row.UpdatedAt = now
	s.rows[k] = row
	return row.Clone(), nil
}

func (s *InMemoryStore) Delete(_ context.Context, guildID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, stateKey{guildID, userID})
	return nil
}

func (s *InMemoryStore) ListStalePending(ctx context.Context, now time.Time, limit int) ([]*models.VerificationState, error) {
	return s.list(ctx, limit, func(row *models.VerificationState, cfg *models.GuildConfig) bool {
		if row.Status != models.StatusPending && row.Status != models.StatusChallenge {
			return false
		}
		if row.RemovalDeferred(now) {
			return false
		}
		return cfg.ChallengeTimeout > 0 && !row.CreatedAt.Add(cfg.ChallengeTimeout).After(now)
	})
}

func (s *InMemoryStore) ListStaleTerminal(ctx context.Context, now time.Time, limit int) ([]*models.VerificationState, error) {
	return s.list(ctx, limit, func(row *models.VerificationState, _ *models.GuildConfig) bool {
		if row.RemovalDeferred(now) {
			return false
		}
		return row.Status == models.StatusRejected || row.Status == models.StatusReviewExpired
	})
}

func (s *InMemoryStore) DeferRemoval(_ context.Context, guildID, userID string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := stateKey{guildID, userID}
	row, ok := s.rows[k]
	if !ok || !row.Status.AwaitsRemoval() {
		return nil
	}
	row = row.Clone()
	row.RemovalDeferredUntil = &until
	s.rows[k] = row
	return nil
}

func (s *InMemoryStore) ListExpiredReviews(ctx context.Context, now time.Time, limit int) ([]*models.VerificationState, error) {
	return s.list(ctx, limit, func(row *models.VerificationState, cfg *models.GuildConfig) bool {
		if row.Status != models.StatusManualReview || cfg.ReviewTimeout <= 0 {
			return false
		}
		return !row.CreatedAt.Add(cfg.ReviewTimeout).After(now)
	})
}

func (s *InMemoryStore) ListRemindableReviews(ctx context.Context, now time.Time, fraction float64, limit int) ([]*models.VerificationState, error) {
	return s.list(ctx, limit, func(row *models.VerificationState, cfg *models.GuildConfig) bool {
		if row.Status != models.StatusManualReview || row.ReviewReminded || cfg.ReviewTimeout <= 0 {
			return false
		}
		remindAt := row.CreatedAt.Add(time.Duration(float64(cfg.ReviewTimeout) * fraction))
		expiresAt := row.CreatedAt.Add(cfg.ReviewTimeout)
		return !remindAt.After(now) && now.Before(expiresAt)
	})
}

// list returns matching rows oldest first, capped at limit (<= 0 means no cap).
func (s *InMemoryStore) list(ctx context.Context, limit int, match func(*models.VerificationState, *models.GuildConfig) bool) ([]*models.VerificationState, error) {
	s.mu.RLock()
	rows := make([]*models.VerificationState, 0, len(s.rows))
	for _, row := range s.rows {
		rows = append(rows, row.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			if rows[i].GuildID == rows[j].GuildID {
				return rows[i].UserID < rows[j].UserID
			}
			return rows[i].GuildID < rows[j].GuildID
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})

	configs := make(map[string]*models.GuildConfig)
	var out []*models.VerificationState
	for _, row := range rows {
		cfg, ok := configs[row.GuildID]
		if !ok {
			var err error
			cfg, err = s.config(ctx, row.GuildID)
			if err != nil {
				return nil, err
			}
			configs[row.GuildID] = cfg
		}
		if !match(row, cfg) {
			continue
		}
		out = append(out, row)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) config(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	if s.configs == nil {
		return models.DefaultGuildConfig(guildID), nil
	}
	return s.configs.Get(ctx, guildID)
}

// Len reports how many rows are stored.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}
