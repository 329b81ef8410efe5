package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gatekeeper/internal/verification/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/sentinel"
	"gatekeeper/pkg/requestcontext"
)

// QueueManualReview moves a member into manual review and posts the review
// record. Posting is idempotent while an earlier record is still reachable.
func (s *Service) QueueManualReview(ctx context.Context, req QueueRequest) (*QueueResult, error) {
	ctx, span := s.startSpan(ctx, "QueueManualReview", req.GuildID, req.UserID)
	defer span.End()

	cfg, err := s.configs.Get(ctx, req.GuildID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load verification config")
	}

	unlock, err := s.lockActor(ctx, req.GuildID, req.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if req.Member == nil {
		member, err := s.platform.FetchMember(ctx, req.GuildID, req.UserID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to fetch member for manual review",
				"guild_id", req.GuildID,
				"user_id", req.UserID,
				"error", err,
			)
		}
		req.Member = member
	}
	return s.queueManualReview(ctx, cfg, req)
}

// queueManualReview expects the caller to hold the member's lock. The state
// transition is written before the record is posted, so a posting failure
// never loses the risk and attempt data; it is reported as an advisory.
func (s *Service) queueManualReview(ctx context.Context, cfg *models.GuildConfig, req QueueRequest) (*QueueResult, error) {
	now := requestcontext.Now(ctx)

	current, err := s.states.Get(ctx, req.GuildID, req.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification state")
	}
	if current != nil && current.Status == models.StatusManualReview && !current.ReviewMessageRef.IsZero() {
		_, err := s.platform.FetchMessage(ctx, *current.ReviewMessageRef)
		if err == nil {
			return &QueueResult{State: current, Existing: true}, nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.WarnContext(ctx, "failed to fetch existing review record, posting a new one",
				"guild_id", req.GuildID,
				"user_id", req.UserID,
				"error", err,
			)
		}
	}

	reasons := append([]string(nil), req.Reasons...)
	manualReason := strings.Join(reasons, " | ")
	if manualReason == "" {
		manualReason = "Manual review required"
	}

	st, err := s.states.Upsert(ctx, req.GuildID, req.UserID, func(st *models.VerificationState) error {
		if st.Status != models.StatusManualReview {
			if !models.CanTransition(st.Status, models.StatusManualReview) {
				return dErrors.New(dErrors.CodeConflict, fmt.Sprintf("cannot queue a %s member for manual review", st.Status))
			}
			// The review timers run from the moment the review opens.
			st.CreatedAt = now
		}
		st.Status = models.StatusManualReview
		st.RiskScore = req.RiskScore
		st.RiskReasons = reasons
		st.ManualReason = manualReason
		st.ReviewReminded = false
		st.ReviewMessageRef = nil
		st.LastChallengeAt = nil
		return nil
	})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification state")
	}
	s.incrementReviewsQueued()

	var advisory string
	if postErr := s.postReviewRecord(ctx, cfg, req, now); postErr != nil {
		advisory = dErrors.MessageOf(postErr)
		s.incrementReviewPostFailures()
	}

	if refreshed, err := s.states.Get(ctx, req.GuildID, req.UserID); err == nil && refreshed != nil {
		st = refreshed
	}

	s.record(ctx, cfg, modAction{
		action:   models.ActionQueue,
		userID:   req.UserID,
		reason:   "Moved to manual verification queue",
		extra:    manualReason,
		metadata: map[string]string{"reasons": strings.Join(reasons, " | "), "risk_score": strconv.Itoa(req.RiskScore)},
	})

	return &QueueResult{State: st, Error: advisory}, nil
}

func (s *Service) postReviewRecord(ctx context.Context, cfg *models.GuildConfig, req QueueRequest, now time.Time) error {
	if cfg.ReviewChannelID == "" {
		s.logger.WarnContext(ctx, "review channel not configured", "guild_id", req.GuildID)
		return dErrors.New(dErrors.CodeConfiguration, "Review channel is not configured by admins.")
	}

	msg := reviewRecordMessage(reviewRecord{
		userID:      req.UserID,
		accountAge:  accountAge(req.Member, now),
		riskScore:   req.RiskScore,
		triggeredBy: req.TriggeredBy,
		reasons:     req.Reasons,
	}, now)

	ref, err := s.platform.SendMessage(ctx, cfg.ReviewChannelID, msg)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to post review record",
			"guild_id", req.GuildID,
			"channel_id", cfg.ReviewChannelID,
			"user_id", req.UserID,
			"error", err,
		)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "Review channel is missing or inaccessible.")
	}

	_, err = s.states.Upsert(ctx, req.GuildID, req.UserID, func(st *models.VerificationState) error {
		if st.Status != models.StatusManualReview {
			return ErrReviewResolved
		}
		st.ReviewMessageRef = ref
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to store review record reference",
			"guild_id", req.GuildID,
			"user_id", req.UserID,
			"error", err,
		)
	}
	return nil
}

// ReviewAction applies a moderator's decision to a member in manual review.
func (s *Service) ReviewAction(ctx context.Context, req ReviewRequest) (*ReviewResult, error) {
	ctx, span := s.startSpan(ctx, "ReviewAction", req.GuildID, req.UserID)
	defer span.End()

	if req.GuildID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Manual verification actions can only be used in server channels.")
	}
	if !req.Permissions.Has(models.PermModerateMembers) {
		return nil, dErrors.New(dErrors.CodeForbidden, "You need Moderate Members permission to review verification requests.")
	}
	decision, err := models.ParseReviewDecision(string(req.Decision))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, "unknown review decision")
	}

	cfg, err := s.configs.Get(ctx, req.GuildID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load verification config")
	}

	unlock, err := s.lockActor(ctx, req.GuildID, req.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Take the record reference off the row before any side effect, so a
	// second decision on the same review finds nothing to act on.
	var record *models.MessageRef
	_, err = s.states.Upsert(ctx, req.GuildID, req.UserID, func(st *models.VerificationState) error {
		if st.Status != models.StatusManualReview {
			return ErrReviewResolved
		}
		if st.ReviewMessageRef != nil {
			ref := *st.ReviewMessageRef
			record = &ref
		}
		st.ReviewMessageRef = nil
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrReviewResolved) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification state")
	}

	restore := func() {
		if record == nil {
			return
		}
		_, err := s.states.Upsert(ctx, req.GuildID, req.UserID, func(st *models.VerificationState) error {
			if st.Status == models.StatusManualReview && st.ReviewMessageRef == nil {
				st.ReviewMessageRef = record
			}
			return nil
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to restore review record reference",
				"guild_id", req.GuildID,
				"user_id", req.UserID,
				"error", err,
			)
		}
	}

	member, err := s.platform.FetchMember(ctx, req.GuildID, req.UserID)
	if errors.Is(err, sentinel.ErrNotFound) {
		member = nil
	} else if err != nil {
		restore()
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "Unable to load the member. Please try again.")
	}

	moderator := req.ModeratorName
	if moderator == "" {
		moderator = req.ModeratorID
	}
	now := requestcontext.Now(ctx)

	action := models.ActionForDecision(decision)
	var (
		reason     string
		resolution string
		mutate     func(st *models.VerificationState)
	)
	switch decision {
	case models.DecisionApprove:
		if member == nil {
			restore()
			return nil, dErrors.New(dErrors.CodeNotFound, "Member is no longer in this server.")
		}
		if err := s.applyVerifiedRoles(ctx, cfg, member, "Manual verification approved by "+moderator); err != nil {
			restore()
			return nil, dErrors.Wrap(err, dErrors.CodeOf(err), "Manual approval failed: "+dErrors.MessageOf(err))
		}
		reason = "Manual verification approved"
		resolution = "Approved by " + mention(req.ModeratorID)
		mutate = func(st *models.VerificationState) {
			st.Attempts = 0
			st.ManualReason = ""
		}
	case models.DecisionReject:
		if member != nil {
			if err := s.applyUnverifiedRoles(ctx, cfg, member, "Manual verification rejected by "+moderator); err != nil {
				restore()
				return nil, dErrors.Wrap(err, dErrors.CodeOf(err), "Manual rejection failed: "+dErrors.MessageOf(err))
			}
		}
		reason = "Manual verification rejected"
		resolution = "Rejected by " + mention(req.ModeratorID)
		mutate = func(st *models.VerificationState) {
			st.ManualReason = "Rejected by " + moderator
			// Removal logs report the status age from the rejection.
			st.CreatedAt = now
		}
	default:
		reason = "Manual verification reset for recheck"
		resolution = "Recheck requested by " + mention(req.ModeratorID)
		mutate = func(st *models.VerificationState) {
			st.Attempts = 0
			st.ManualReason = ""
			st.CreatedAt = now
		}
	}

	target := decision.TargetStatus()
	st, err := s.states.Upsert(ctx, req.GuildID, req.UserID, func(st *models.VerificationState) error {
		if !models.CanTransition(st.Status, target) {
			return ErrReviewResolved
		}
		st.Status = target
		st.LastChallengeAt = nil
		mutate(st)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrReviewResolved) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification state")
	}

	s.incrementReviewsResolved(string(decision))
	if decision == models.DecisionApprove {
		s.incrementVerificationsGranted()
	}
	s.record(ctx, cfg, modAction{
		action:      action,
		userID:      req.UserID,
		moderatorID: req.ModeratorID,
		reason:      reason,
		metadata:    map[string]string{"mode": "manual"},
		silent:      member == nil,
	})
	s.closeRecord(ctx, record, "", action, resolution)

	return &ReviewResult{
		Decision: decision,
		State:    st,
		Message:  "Manual verification updated for " + mention(req.UserID) + ".",
	}, nil
}

// RemindReview replies to an open review record once it has waited for
// fraction of the review timeout. The reminder flag is set even when the
// reply fails, so a review is reminded at most once.
func (s *Service) RemindReview(ctx context.Context, guildID, userID string, fraction float64) (bool, error) {
	ctx, span := s.startSpan(ctx, "RemindReview", guildID, userID)
	defer span.End()

	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load verification config")
	}
	if cfg.ReviewTimeout <= 0 {
		return false, nil
	}

	unlock, err := s.lockActor(ctx, guildID, userID)
	if err != nil {
		return false, err
	}
	defer unlock()

	st, err := s.states.Get(ctx, guildID, userID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification state")
	}
	if st == nil || st.Status != models.StatusManualReview || st.ReviewReminded {
		return false, nil
	}

	now := requestcontext.Now(ctx)
	deadline := st.ReviewDeadline(cfg.ReviewTimeout)
	remindAt := st.CreatedAt.Add(time.Duration(float64(cfg.ReviewTimeout) * fraction))
	if now.Before(remindAt) || !now.Before(deadline) {
		return false, nil
	}

	sent := false
	if !st.ReviewMessageRef.IsZero() {
		content := fmt.Sprintf("⚠️ This review expires <t:%d:R>. Please approve, reject, or take action before then.", deadline.Unix())
		if err := s.platform.ReplyMessage(ctx, *st.ReviewMessageRef, content); err != nil {
			s.logger.WarnContext(ctx, "failed to send review reminder",
				"guild_id", guildID,
				"user_id", userID,
				"error", err,
			)
		} else {
			sent = true
		}
	}

	_, err = s.states.Upsert(ctx, guildID, userID, func(st *models.VerificationState) error {
		if st.Status == models.StatusManualReview {
			st.ReviewReminded = true
		}
		return nil
	})
	if err != nil {
		return sent, dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark review reminded")
	}
	if sent {
		s.incrementReviewReminders()
	}
	return sent, nil
}

// ExpireReview closes a review that outlived the guild's review timeout and
// hands the member to the removal path. It reports whether it expired anything.
func (s *Service) ExpireReview(ctx context.Context, guildID, userID string) (bool, error) {
	ctx, span := s.startSpan(ctx, "ExpireReview", guildID, userID)
	defer span.End()

	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load verification config")
	}
	if cfg.ReviewTimeout <= 0 {
		return false, nil
	}

	unlock, err := s.lockActor(ctx, guildID, userID)
	if err != nil {
		return false, err
	}
	defer unlock()

	now := requestcontext.Now(ctx)
	waited := formatDuration(cfg.ReviewTimeout)

	var (
		record *models.MessageRef
		opened time.Time
	)
	_, err = s.states.Upsert(ctx, guildID, userID, func(st *models.VerificationState) error {
		if st.Status != models.StatusManualReview || now.Before(st.ReviewDeadline(cfg.ReviewTimeout)) {
			return ErrReviewResolved
		}
		if st.ReviewMessageRef != nil {
			ref := *st.ReviewMessageRef
			record = &ref
		}
		opened = st.CreatedAt
		st.Status = models.StatusReviewExpired
		st.ManualReason = "Review expired after " + waited
		return nil
	})
	if errors.Is(err, ErrReviewResolved) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification state")
	}

	s.incrementReviewsExpired()
	s.closeRecord(ctx, record, "Manual Review Expired", models.ActionReviewExpired,
		"Review expired after "+waited+"; the member will be removed automatically.")
	s.record(ctx, cfg, modAction{
		action: models.ActionReviewExpired,
		userID: userID,
		reason: "Review expired after " + waited,
		extra:  "Status was **" + string(models.StatusManualReview) + "** since " + formatTimestamp(opened),
	})
	return true, nil
}

// closeRecord edits a posted review record to show its resolution and
// disables its controls. Failures are logged; the decision already stands.
func (s *Service) closeRecord(ctx context.Context, ref *models.MessageRef, title string, action models.ActionType, resolution string) {
	if ref.IsZero() {
		return
	}
	posted, err := s.platform.FetchMessage(ctx, *ref)
	if errors.Is(err, sentinel.ErrNotFound) {
		return
	}
	if err != nil {
		s.logger.WarnContext(ctx, "failed to fetch review record",
			"channel_id", ref.ChannelID,
			"message_id", ref.MessageID,
			"error", err,
		)
		return
	}

	embeds := resolvedRecord(posted, title, action, resolution, requestcontext.Now(ctx))
	if err := s.platform.EditMessage(ctx, *ref, embeds, posted.DisabledButtons()); err != nil {
		s.logger.WarnContext(ctx, "failed to update review record",
			"channel_id", ref.ChannelID,
			"message_id", ref.MessageID,
			"error", err,
		)
	}
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05") + " UTC"
}
