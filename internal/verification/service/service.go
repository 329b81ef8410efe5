// Package service is the verification engine: it takes arrivals, challenge
// requests, answers and moderator decisions, and drives each member's
// VerificationState through the admission lifecycle.
//
// Every operation that mutates a member's state runs under that member's
// lock, so the sweep and interactive callers never interleave on one row.
package service

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gatekeeper/internal/platform/telemetry"
	"gatekeeper/internal/verification/challenge"
	"gatekeeper/internal/verification/metrics"
	"gatekeeper/internal/verification/ports"
	"gatekeeper/internal/verification/risk"
	"gatekeeper/pkg/platform/audit"
	"gatekeeper/pkg/platform/keymutex"
	"gatekeeper/pkg/requestcontext"
)

// Service orchestrates the verification lifecycle. It keeps platform and
// storage concerns behind ports so the flows stay testable.
type Service struct {
	states    ports.StateStore
	configs   ports.ConfigStore
	sessions  ports.SessionStore
	platform  ports.Platform
	invites   ports.InviteResolver
	generator *challenge.Generator
	evaluator *risk.Evaluator

	logger         *slog.Logger
	auditPublisher ports.AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer

	actors *keymutex.KeyMutex
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher ports.AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithInviteResolver enables invite attribution on arrival and the
// invite-code context question.
func WithInviteResolver(resolver ports.InviteResolver) Option {
	return func(s *Service) {
		s.invites = resolver
	}
}

func WithGenerator(g *challenge.Generator) Option {
	return func(s *Service) {
		s.generator = g
	}
}

func WithEvaluator(e *risk.Evaluator) Option {
	return func(s *Service) {
		s.evaluator = e
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

func New(states ports.StateStore, configs ports.ConfigStore, sessions ports.SessionStore, platform ports.Platform, opts ...Option) (*Service, error) {
	if states == nil {
		return nil, errors.New("state store is required")
	}
	if configs == nil {
		return nil, errors.New("config store is required")
	}
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if platform == nil {
		return nil, errors.New("platform is required")
	}

	s := &Service{
		states:   states,
		configs:  configs,
		sessions: sessions,
		platform: platform,
		actors:   keymutex.New(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.generator == nil {
		g, err := challenge.New()
		if err != nil {
			return nil, err
		}
		s.generator = g
	}
	if s.evaluator == nil {
		s.evaluator = risk.New(risk.DefaultRules())
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	if s.tracer == nil {
		s.tracer = telemetry.Tracer("gatekeeper/verification")
	}
	return s, nil
}

// lockActor serializes state changes for one member of one guild.
func (s *Service) lockActor(ctx context.Context, guildID, userID string) (func(), error) {
	return s.actors.Lock(ctx, guildID+"/"+userID)
}

func (s *Service) startSpan(ctx context.Context, name, guildID, userID string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "verification."+name, trace.WithAttributes(
		attribute.String("guild.id", guildID),
		attribute.String("user.id", userID),
	))
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	ports.LogAudit(ctx, s.logger, s.auditPublisher, event)
}

// pruneSessions drops expired challenge sessions. It runs opportunistically
// on every interaction; failures only cost memory.
func (s *Service) pruneSessions(ctx context.Context) {
	now := requestcontext.Now(ctx)
	if n, err := s.sessions.Prune(ctx, now); err != nil {
		s.logger.WarnContext(ctx, "failed to prune challenge sessions", "error", err)
	} else if n > 0 {
		s.logger.DebugContext(ctx, "pruned challenge sessions", "count", n)
	}
}

func (s *Service) incrementChallengesIssued(phase string) {
	if s.metrics != nil {
		s.metrics.IncrementChallengesIssued(phase)
	}
}

func (s *Service) incrementAnswers(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementAnswers(outcome)
	}
}

func (s *Service) incrementReviewsQueued() {
	if s.metrics != nil {
		s.metrics.IncrementReviewsQueued()
	}
}

func (s *Service) incrementReviewPostFailures() {
	if s.metrics != nil {
		s.metrics.IncrementReviewPostFailures()
	}
}

func (s *Service) incrementReviewsResolved(decision string) {
	if s.metrics != nil {
		s.metrics.IncrementReviewsResolved(decision)
	}
}

func (s *Service) incrementReviewReminders() {
	if s.metrics != nil {
		s.metrics.IncrementReviewReminders()
	}
}

func (s *Service) incrementReviewsExpired() {
	if s.metrics != nil {
		s.metrics.IncrementReviewsExpired()
	}
}

func (s *Service) incrementRemovals(cause string) {
	if s.metrics != nil {
		s.metrics.IncrementRemovals(cause)
	}
}

func (s *Service) incrementRemovalFailures() {
	if s.metrics != nil {
		s.metrics.IncrementRemovalFailures()
	}
}

func (s *Service) incrementVerificationsGranted() {
	if s.metrics != nil {
		s.metrics.IncrementVerificationsGranted()
	}
}
