// Package sweep runs the periodic reconciliation pass: it reminds moderators
// about reviews close to expiry, expires overdue reviews, and removes members
// whose admission cycle ended without verification.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"gatekeeper/internal/verification/metrics"
	"gatekeeper/internal/verification/models"
	"gatekeeper/internal/verification/ports"
	"gatekeeper/internal/verification/service"
	"gatekeeper/pkg/requestcontext"
)

// Engine is the slice of the verification service the sweep drives. Each call
// re-checks eligibility under the member's lock.
type Engine interface {
	RemindReview(ctx context.Context, guildID, userID string, fraction float64) (bool, error)
	ExpireReview(ctx context.Context, guildID, userID string) (bool, error)
	RemoveUnverified(ctx context.Context, guildID, userID string) (service.RemovalOutcome, error)
	CanRemoveMembers(ctx context.Context, guildID string) (bool, error)
}

type Config struct {
	Interval     time.Duration
	StartupDelay time.Duration
	// PerGuildLimit and TotalLimit cap removals per tick.
	PerGuildLimit int
	TotalLimit    int
	RemindLimit   int
	ExpireLimit   int
	// RemovalDelay paces platform calls; zero disables pacing.
	RemovalDelay time.Duration
	// RemovalBackoff hides rows the sweep could not remove from later passes.
	RemovalBackoff time.Duration
	RemindFraction float64
}

func DefaultConfig() Config {
	return Config{
		Interval:       2 * time.Minute,
		StartupDelay:   30 * time.Second,
		PerGuildLimit:  50,
		TotalLimit:     200,
		RemindLimit:    50,
		ExpireLimit:    50,
		RemovalDelay:   500 * time.Millisecond,
		RemovalBackoff: 30 * time.Minute,
		RemindFraction: 0.75,
	}
}

// Report summarizes one tick.
type Report struct {
	// Overlapped is set when the tick was skipped because another was running.
	Overlapped bool
	Reminded   int
	Expired    int
	Removed    int
	Departed   int
	Skipped    int
	Failed     int
	// Deferred counts rows backed off because their guild or member could
	// not be acted on.
	Deferred int
}

type Sweeper struct {
	states  ports.StateStore
	engine  Engine
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
	limiter *rate.Limiter
	running atomic.Bool
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

// WithClock replaces time.Now as the source of the tick time.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		s.now = now
	}
}

func New(states ports.StateStore, engine Engine, cfg Config, opts ...Option) (*Sweeper, error) {
	if states == nil {
		return nil, errors.New("state store is required")
	}
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	if cfg.Interval <= 0 {
		return nil, errors.New("sweep interval must be positive")
	}
	if cfg.RemindFraction <= 0 || cfg.RemindFraction >= 1 {
		cfg.RemindFraction = DefaultConfig().RemindFraction
	}
	if cfg.RemovalBackoff <= 0 {
		cfg.RemovalBackoff = DefaultConfig().RemovalBackoff
	}

	s := &Sweeper{
		states: states,
		engine: engine,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	limit := rate.Inf
	if cfg.RemovalDelay > 0 {
		limit = rate.Every(cfg.RemovalDelay)
	}
	s.limiter = rate.NewLimiter(limit, 1)
	return s, nil
}

// Start waits for the startup delay, then ticks every interval until ctx is
// cancelled. Tick failures are logged; Start only returns on cancellation,
// after every tick it launched has finished.
func (s *Sweeper) Start(ctx context.Context) error {
	s.logger.InfoContext(ctx, "verification sweep scheduled",
		"startup_delay", s.cfg.StartupDelay,
		"interval", s.cfg.Interval,
	)

	delay := time.NewTimer(s.cfg.StartupDelay)
	defer delay.Stop()
	select {
	case <-ctx.Done():
		return nil
	case <-delay.C:
	}

	var inflight sync.WaitGroup
	defer inflight.Wait()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		inflight.Go(func() { s.runTick(ctx) })

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) runTick(ctx context.Context) {
	if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
		s.logger.ErrorContext(ctx, "verification sweep failed", "error", err)
	}
}

// Tick runs one pass: remind, then expire, then remove. A tick that starts
// while another is still running does nothing.
func (s *Sweeper) Tick(ctx context.Context) (Report, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.incrementTicksSkipped()
		s.logger.DebugContext(ctx, "verification sweep still running, tick skipped")
		return Report{Overlapped: true}, nil
	}
	defer s.running.Store(false)

	start := time.Now()
	now := s.now()
	ctx = requestcontext.WithTime(ctx, now)

	var report Report
	err := errors.Join(
		s.remind(ctx, now, &report),
		s.expire(ctx, now, &report),
		s.remove(ctx, now, &report),
	)

	s.incrementTicks()
	s.observeDuration(time.Since(start))
	if report != (Report{}) {
		s.logger.InfoContext(ctx, "verification sweep complete",
			"reminded", report.Reminded,
			"expired", report.Expired,
			"removed", report.Removed,
			"departed", report.Departed,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"deferred", report.Deferred,
		)
	}
	return report, err
}

func (s *Sweeper) remind(ctx context.Context, now time.Time, report *Report) error {
	rows, err := s.states.ListRemindableReviews(ctx, now, s.cfg.RemindFraction, s.cfg.RemindLimit)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		sent, err := s.engine.RemindReview(ctx, row.GuildID, row.UserID, s.cfg.RemindFraction)
		if err != nil {
			report.Failed++
			s.logMemberError(ctx, "failed to remind review", row, err)
			continue
		}
		if sent {
			report.Reminded++
		}
	}
	return nil
}

func (s *Sweeper) expire(ctx context.Context, now time.Time, report *Report) error {
	rows, err := s.states.ListExpiredReviews(ctx, now, s.cfg.ExpireLimit)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		expired, err := s.engine.ExpireReview(ctx, row.GuildID, row.UserID)
		if err != nil {
			report.Failed++
			s.logMemberError(ctx, "failed to expire review", row, err)
			continue
		}
		if expired {
			report.Expired++
		}
	}
	return nil
}

func (s *Sweeper) remove(ctx context.Context, now time.Time, report *Report) error {
	pending, err := s.states.ListStalePending(ctx, now, s.cfg.TotalLimit)
	if err != nil {
		return err
	}
	terminal, err := s.states.ListStaleTerminal(ctx, now, s.cfg.TotalLimit)
	if err != nil {
		return err
	}

	processed := 0
	for _, group := range groupByGuild(append(pending, terminal...)) {
		if processed >= s.cfg.TotalLimit {
			break
		}
		guildID := group[0].GuildID

		allowed, err := s.engine.CanRemoveMembers(ctx, guildID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to check removal permission", "guild_id", guildID, "error", err)
			s.backOff(ctx, now, group, report)
			continue
		}
		if !allowed {
			s.logger.WarnContext(ctx, "missing Kick Members permission, skipping guild in verification sweep", "guild_id", guildID)
			s.backOff(ctx, now, group, report)
			continue
		}

		capped := min(len(group), s.cfg.PerGuildLimit, s.cfg.TotalLimit-processed)
		for _, row := range group[:capped] {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			processed++

			outcome, err := s.engine.RemoveUnverified(ctx, row.GuildID, row.UserID)
			if err != nil {
				report.Failed++
				s.logMemberError(ctx, "failed to remove unverified member", row, err)
				s.backOff(ctx, now, []*models.VerificationState{row}, report)
				continue
			}
			switch outcome {
			case service.RemovalRemoved:
				report.Removed++
			case service.RemovalDeparted:
				report.Departed++
			case service.RemovalSkipped:
				report.Skipped++
				s.backOff(ctx, now, []*models.VerificationState{row}, report)
			}
		}
	}
	return nil
}

// backOff defers removal of rows the sweep could not act on, so the next
// passes reach rows behind them.
func (s *Sweeper) backOff(ctx context.Context, now time.Time, rows []*models.VerificationState, report *Report) {
	until := now.Add(s.cfg.RemovalBackoff)
	for _, row := range rows {
		if err := s.states.DeferRemoval(ctx, row.GuildID, row.UserID, until); err != nil {
			s.logMemberError(ctx, "failed to defer removal", row, err)
			continue
		}
		report.Deferred++
	}
}

// groupByGuild keeps the first-seen order of guilds and of rows within them.
func groupByGuild(rows []*models.VerificationState) [][]*models.VerificationState {
	index := make(map[string]int)
	var groups [][]*models.VerificationState
	for _, row := range rows {
		i, ok := index[row.GuildID]
		if !ok {
			i = len(groups)
			index[row.GuildID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], row)
	}
	return groups
}

func (s *Sweeper) logMemberError(ctx context.Context, msg string, row *models.VerificationState, err error) {
	s.logger.ErrorContext(ctx, msg,
		"guild_id", row.GuildID,
		"user_id", row.UserID,
		"status", row.Status,
		"error", err,
	)
}

func (s *Sweeper) incrementTicks() {
	if s.metrics != nil {
		s.metrics.IncrementSweepTicks()
	}
}

func (s *Sweeper) incrementTicksSkipped() {
	if s.metrics != nil {
		s.metrics.IncrementSweepTicksSkipped()
	}
}

func (s *Sweeper) observeDuration(d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveSweepDuration(d.Seconds())
	}
}
