package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Answer outcomes.
const (
	OutcomePassed   = "passed"
	OutcomeWrong    = "wrong"
	OutcomeExpired  = "expired"
	OutcomeTooFast  = "too_fast"
	OutcomeForeign  = "foreign"
	OutcomeNotFound = "not_found"
)

// Invite attribution results.
const (
	AttributionIncreased = "increased"
	AttributionVanished  = "vanished"
	AttributionUnknown   = "unknown"
	AttributionFailed    = "failed"
)

type Metrics struct {
	ChallengesIssued     *prometheus.CounterVec
	Answers              *prometheus.CounterVec
	ReviewsQueued        prometheus.Counter
	ReviewPostFailures   prometheus.Counter
	ReviewsResolved      *prometheus.CounterVec
	ReviewReminders      prometheus.Counter
	ReviewsExpired       prometheus.Counter
	SweepTicks           prometheus.Counter
	SweepTicksSkipped    prometheus.Counter
	SweepDuration        prometheus.Histogram
	Removals             *prometheus.CounterVec
	RemovalFailures      prometheus.Counter
	InviteAttributions   *prometheus.CounterVec
	VerificationsGranted prometheus.Counter
}

// New registers the verification metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the verification metrics on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		ChallengesIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_challenges_issued_total",
			Help: "Total number of challenge sessions issued, by phase",
		}, []string{"phase"}),
		Answers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_challenge_answers_total",
			Help: "Total number of challenge answers received, by outcome",
		}, []string{"outcome"}),
		ReviewsQueued: f.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_reviews_queued_total",
			Help: "Total number of members sent to manual review",
		}),
		ReviewPostFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_review_post_failures_total",
			Help: "Total number of review records that could not be posted",
		}),
		ReviewsResolved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_reviews_resolved_total",
			Help: "Total number of manual reviews resolved by a moderator, by decision",
		}, []string{"decision"}),
		ReviewReminders: f.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_review_reminders_total",
			Help: "Total number of review reminders sent",
		}),
		ReviewsExpired: f.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_reviews_expired_total",
			Help: "Total number of manual reviews that expired without a decision",
		}),
		SweepTicks: f.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_sweep_ticks_total",
			Help: "Total number of reconciliation sweep ticks run",
		}),
		SweepTicksSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_sweep_ticks_skipped_total",
			Help: "Total number of sweep ticks skipped because the previous tick was still running",
		}),
		SweepDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatekeeper_sweep_duration_seconds",
			Help:    "Duration of reconciliation sweep ticks",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		Removals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_removals_total",
			Help: "Total number of unverified members removed, by cause",
		}, []string{"cause"}),
		RemovalFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_removal_failures_total",
			Help: "Total number of member removals that failed",
		}),
		InviteAttributions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_invite_attributions_total",
			Help: "Total number of arrival invite attributions, by result",
		}, []string{"result"}),
		VerificationsGranted: f.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_verifications_granted_total",
			Help: "Total number of members who completed verification",
		}),
	}
}

func (m *Metrics) IncrementChallengesIssued(phase string) {
	m.ChallengesIssued.WithLabelValues(phase).Inc()
}

func (m *Metrics) IncrementAnswers(outcome string) {
	m.Answers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementReviewsQueued() {
	m.ReviewsQueued.Inc()
}

func (m *Metrics) IncrementReviewPostFailures() {
	m.ReviewPostFailures.Inc()
}

func (m *Metrics) IncrementReviewsResolved(decision string) {
	m.ReviewsResolved.WithLabelValues(decision).Inc()
}

func (m *Metrics) IncrementReviewReminders() {
	m.ReviewReminders.Inc()
}

func (m *Metrics) IncrementReviewsExpired() {
	m.ReviewsExpired.Inc()
}

func (m *Metrics) IncrementSweepTicks() {
	m.SweepTicks.Inc()
}

func (m *Metrics) IncrementSweepTicksSkipped() {
	m.SweepTicksSkipped.Inc()
}

func (m *Metrics) ObserveSweepDuration(seconds float64) {
	m.SweepDuration.Observe(seconds)
}

func (m *Metrics) IncrementRemovals(cause string) {
	m.Removals.WithLabelValues(cause).Inc()
}

func (m *Metrics) IncrementRemovalFailures() {
	m.RemovalFailures.Inc()
}

func (m *Metrics) IncrementInviteAttributions(result string) {
	m.InviteAttributions.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrementVerificationsGranted() {
	m.VerificationsGranted.Inc()
}
