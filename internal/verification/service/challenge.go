package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"

	"gatekeeper/internal/verification/challenge"
	"gatekeeper/internal/verification/metrics"
	"gatekeeper/internal/verification/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/sentinel"
	"gatekeeper/pkg/requestcontext"
)

// failureText is what a member is told after a failed answer, depending on
// whether the failure exhausted their automated attempts.
type failureText struct {
	retry       string
	queued      string
	queueFailed string
}

var (
	timedOutText = failureText{
		retry:       "Challenge timed out.",
		queued:      "Challenge timed out. Your verification has been sent to manual moderator review.",
		queueFailed: "Challenge timed out and manual review queue failed: %s",
	}
	tooFastText = failureText{
		retry:       "That was suspiciously fast.",
		queued:      "Suspicious activity detected. Your verification has been sent to manual moderator review.",
		queueFailed: "Suspicious activity detected and manual review queue failed: %s",
	}
	wrongAnswerText = failureText{
		retry:       "Incorrect answer.",
		queued:      "Incorrect answer. You reached the retry limit and were sent for manual moderator review.",
		queueFailed: "Incorrect answer and manual review queue failed: %s",
	}
)

// EvaluateAndChallenge checks the member may start verification, scores
// them, and either queues them for manual review or issues the visual code
// challenge.
func (s *Service) EvaluateAndChallenge(ctx context.Context, req ChallengeRequest) (*Result, error) {
	ctx, span := s.startSpan(ctx, "EvaluateAndChallenge", req.GuildID, req.UserID)
	defer span.End()

	if req.GuildID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Verification is only available in a server.")
	}
	s.pruneSessions(ctx)

	cfg, err := s.configs.Get(ctx, req.GuildID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load verification config")
	}
	if missing := cfg.MissingForChallenge(); missing != "" {
		return nil, dErrors.New(dErrors.CodeConfiguration, missing)
	}
	if req.ChannelID != "" && req.ChannelID != cfg.VerifyChannelID {
		return nil, dErrors.New(dErrors.CodeBadRequest, "Please use verification in <#"+cfg.VerifyChannelID+">.")
	}

	unlock, err := s.lockActor(ctx, req.GuildID, req.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	member, err := s.platform.FetchMember(ctx, req.GuildID, req.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to fetch member for verification",
			"guild_id", req.GuildID,
			"user_id", req.UserID,
			"error", err,
		)
		return nil, errMemberLookup
	}

	now := requestcontext.Now(ctx)

	// Holding the verified role is authoritative, however it was granted.
	if member.HasRole(cfg.VerifiedRoleID) {
		st, err := s.states.Upsert(ctx, req.GuildID, req.UserID, func(st *models.VerificationState) error {
			st.Status = models.StatusVerified
			st.Attempts = 0
			st.LastChallengeAt = nil
			st.ManualReason = ""
			return nil
		})
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification state")
		}
		return &Result{Outcome: OutcomeAlreadyVerified, Message: "You are already verified.", State: st}, nil
	}

	st, err := s.states.Get(ctx, req.GuildID, req.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification state")
	}
	if st != nil {
		switch st.Status {
		case models.StatusManualReview:
			return &Result{
				Outcome: OutcomeInReview,
				Message: "Your verification is already in the moderator review queue.",
				State:   st,
			}, nil
		case models.StatusRejected, models.StatusReviewExpired:
			return nil, dErrors.New(dErrors.CodeConflict, "Your verification request was closed by moderators.")
		}
		if remaining := st.CooldownRemaining(models.ChallengeCooldown, now); remaining > 0 {
			secs := int(math.Ceil(remaining.Seconds()))
			unit := "seconds"
			if secs == 1 {
				unit = "second"
			}
			return nil, dErrors.New(dErrors.CodeRateLimited, fmt.Sprintf("Please wait %d %s before trying again.", secs, unit))
		}
	}

	assessment := s.evaluator.Evaluate(member.User, cfg.MinAccountAgeHours, now)
	if assessment.ManualRequired {
		queued, err := s.queueManualReview(ctx, cfg, QueueRequest{
			GuildID:     req.GuildID,
			UserID:      req.UserID,
			Member:      member,
			Reasons:     assessment.Reasons,
			RiskScore:   assessment.Score,
			TriggeredBy: mention(req.UserID),
		})
		if err != nil {
			return nil, err
		}
		msg := "Automated checks flagged your account. A moderator will manually review your verification."
		if queued.Error != "" {
			msg = "Automated checks flagged your account, but review queue failed: " + queued.Error
		}
		return &Result{Outcome: OutcomeQueued, Message: msg, ReviewError: queued.Error, State: queued.State}, nil
	}

	if st != nil && st.Attempts >= cfg.MaxAttempts {
		queued, err := s.queueManualReview(ctx, cfg, QueueRequest{
			GuildID:     req.GuildID,
			UserID:      req.UserID,
			Member:      member,
			Reasons:     []string{"Maximum automated verification attempts reached."},
			RiskScore:   assessment.Score,
			TriggeredBy: mention(req.UserID),
		})
		if err != nil {
			return nil, err
		}
		msg := "You reached the automated attempt limit. A moderator will manually review your verification."
		if queued.Error != "" {
			msg = "You need manual verification, but queue failed: " + queued.Error
		}
		return &Result{Outcome: OutcomeQueued, Message: msg, ReviewError: queued.Error, State: queued.State}, nil
	}

	code := s.generator.NewCode()
	png, err := s.generator.RenderCode(code)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render challenge")
	}
	session, err := s.newSession(ctx, req.GuildID, req.UserID, models.PhaseCode, code)
	if err != nil {
		return nil, err
	}

	st, err = s.states.Upsert(ctx, req.GuildID, req.UserID, func(st *models.VerificationState) error {
		if st.Status == models.StatusVerified || st.Status == models.StatusKicked {
			// The verified role was taken away, or a removed member is back
			// without an arrival event: start a fresh cycle.
			invite := st.InviteCode
			st.ResetForArrival(now)
			st.InviteCode = invite
		}
		if !models.CanTransition(st.Status, models.StatusChallenge) {
			return errStaleChallenge
		}
		st.Status = models.StatusChallenge
		st.RiskScore = assessment.Score
		st.RiskReasons = assessment.Reasons
		st.ManualReason = ""
		issued := now
		st.LastChallengeAt = &issued
		return nil
	})
	if err != nil {
		if errors.Is(err, errStaleChallenge) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification state")
	}

	s.incrementChallengesIssued(string(models.PhaseCode))
	s.logger.InfoContext(ctx, "verification challenge issued",
		"guild_id", req.GuildID,
		"user_id", req.UserID,
		"risk_score", assessment.Score,
	)

	return &Result{
		Outcome: OutcomeChallenge,
		Challenge: &Challenge{
			SessionID: session.ID,
			Phase:     models.PhaseCode,
			ExpiresAt: session.ExpiresAt,
			Message:   codeChallengeMessage(session.ID, png, now),
		},
		State: st,
	}, nil
}

// CheckSession reports whether a session can still be answered by this
// member, without consuming it. Used before showing the answer form.
func (s *Service) CheckSession(ctx context.Context, guildID, userID, sessionID string) (*models.ChallengeSession, error) {
	session, err := s.sessions.Peek(ctx, sessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load challenge session")
	}
	if session.IsExpiredAt(requestcontext.Now(ctx)) {
		return nil, ErrSessionNotFound
	}
	if !session.BelongsTo(guildID, userID) {
		return nil, ErrSessionForeign
	}
	return session, nil
}

// SubmitAnswer evaluates one answer. The session is consumed before anything
// else is checked, so it can never be answered twice.
func (s *Service) SubmitAnswer(ctx context.Context, req AnswerRequest) (*Result, error) {
	ctx, span := s.startSpan(ctx, "SubmitAnswer", req.GuildID, req.UserID)
	defer span.End()

	session, err := s.sessions.Consume(ctx, req.SessionID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.incrementAnswers(metrics.OutcomeNotFound)
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load challenge session")
	}
	s.pruneSessions(ctx)

	if !session.BelongsTo(req.GuildID, req.UserID) {
		s.incrementAnswers(metrics.OutcomeForeign)
		s.logger.WarnContext(ctx, "challenge answered by another member",
			"guild_id", req.GuildID,
			"user_id", req.UserID,
			"owner_id", session.UserID,
		)
		return nil, ErrSessionForeign
	}

	unlock, err := s.lockActor(ctx, req.GuildID, req.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	st, err := s.states.Get(ctx, req.GuildID, req.UserID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification state")
	}
	if st == nil || (st.Status != models.StatusChallenge && st.Status != models.StatusPending) {
		return nil, errStaleChallenge
	}

	now := requestcontext.Now(ctx)
	switch {
	case session.IsExpiredAt(now):
		s.incrementAnswers(metrics.OutcomeExpired)
		return s.registerFailure(ctx, session, "Challenge timed out.", timedOutText)
	case session.SolvedTooFast(now, models.MinSolveTime):
		s.incrementAnswers(metrics.OutcomeTooFast)
		return s.registerFailure(ctx, session, "Suspicious solve speed detected.", tooFastText)
	case !challenge.AnswerMatches(session.Phase, session.Answer, req.Answer):
		s.incrementAnswers(metrics.OutcomeWrong)
		detail := "Incorrect challenge answer."
		if session.Phase == models.PhaseContext {
			detail = "Incorrect identity check answer."
		}
		return s.registerFailure(ctx, session, detail, wrongAnswerText)
	}

	s.incrementAnswers(metrics.OutcomePassed)
	if session.Phase == models.PhaseCode {
		return s.issueContextChallenge(ctx, session, st)
	}
	return s.completeVerification(ctx, session)
}

// registerFailure counts a failed answer. Reaching the attempt limit always
// lands the member in manual review.
func (s *Service) registerFailure(ctx context.Context, session *models.ChallengeSession, detail string, text failureText) (*Result, error) {
	cfg, err := s.configs.Get(ctx, session.GuildID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load verification config")
	}

	st, err := s.states.Upsert(ctx, session.GuildID, session.UserID, func(st *models.VerificationState) error {
		st.Attempts++
		if st.Attempts < cfg.MaxAttempts {
			st.Status = models.StatusPending
			st.ManualReason = ""
		}
		return nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification state")
	}

	s.logger.InfoContext(ctx, "verification attempt failed",
		"guild_id", session.GuildID,
		"user_id", session.UserID,
		"phase", session.Phase,
		"attempts", st.Attempts,
		"detail", detail,
	)

	if st.Attempts < cfg.MaxAttempts {
		return &Result{Outcome: OutcomeRetry, Message: text.retry, Retry: true, State: st}, nil
	}

	member, err := s.platform.FetchMember(ctx, session.GuildID, session.UserID)
	if err != nil {
		// Review is recorded without member details rather than dropped.
		s.logger.WarnContext(ctx, "failed to fetch member for manual review",
			"guild_id", session.GuildID,
			"user_id", session.UserID,
			"error", err,
		)
	}

	queued, err := s.queueManualReview(ctx, cfg, QueueRequest{
		GuildID:     session.GuildID,
		UserID:      session.UserID,
		Member:      member,
		Reasons:     []string{detail, "Reached max attempts (" + strconv.Itoa(cfg.MaxAttempts) + ")."},
		RiskScore:   st.RiskScore,
		TriggeredBy: mention(session.UserID),
	})
	if err != nil {
		return nil, err
	}

	msg := text.queued
	if queued.Error != "" {
		msg = fmt.Sprintf(text.queueFailed, queued.Error)
	}
	return &Result{Outcome: OutcomeQueued, Message: msg, ReviewError: queued.Error, State: queued.State}, nil
}

func (s *Service) issueContextChallenge(ctx context.Context, session *models.ChallengeSession, st *models.VerificationState) (*Result, error) {
	member, err := s.platform.FetchMember(ctx, session.GuildID, session.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to fetch member for identity check",
			"guild_id", session.GuildID,
			"user_id", session.UserID,
			"error", err,
		)
		return nil, errMemberLookup
	}

	now := requestcontext.Now(ctx)
	question := s.generator.NewQuestion(member, st.InviteCode, now)
	png, err := s.generator.RenderQuestion(question.Lines)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render challenge")
	}
	next, err := s.newSession(ctx, session.GuildID, session.UserID, models.PhaseContext, question.Answer)
	if err != nil {
		return nil, err
	}

	updated, err := s.states.Upsert(ctx, session.GuildID, session.UserID, func(st *models.VerificationState) error {
		if !models.CanTransition(st.Status, models.StatusChallenge) {
			return errStaleChallenge
		}
		st.Status = models.StatusChallenge
		return nil
	})
	if err != nil {
		if errors.Is(err, errStaleChallenge) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification state")
	}

	s.incrementChallengesIssued(string(models.PhaseContext))
	return &Result{
		Outcome: OutcomeChallenge,
		Challenge: &Challenge{
			SessionID: next.ID,
			Phase:     models.PhaseContext,
			ExpiresAt: next.ExpiresAt,
			Message:   contextChallengeMessage(next.ID, question.Hint, png, now),
		},
		State: updated,
	}, nil
}

func (s *Service) completeVerification(ctx context.Context, session *models.ChallengeSession) (*Result, error) {
	cfg, err := s.configs.Get(ctx, session.GuildID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load verification config")
	}
	member, err := s.platform.FetchMember(ctx, session.GuildID, session.UserID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to fetch member to complete verification",
			"guild_id", session.GuildID,
			"user_id", session.UserID,
			"error", err,
		)
		return nil, errMemberLookup
	}

	if err := s.applyVerifiedRoles(ctx, cfg, member, "Automated verification approved"); err != nil {
		s.logger.WarnContext(ctx, "role grant failed after passed challenge",
			"guild_id", session.GuildID,
			"user_id", session.UserID,
			"error", err,
		)
		queued, qErr := s.queueManualReview(ctx, cfg, QueueRequest{
			GuildID:     session.GuildID,
			UserID:      session.UserID,
			Member:      member,
			Reasons:     []string{dErrors.MessageOf(err)},
			TriggeredBy: mention(session.UserID),
		})
		if qErr != nil {
			return nil, qErr
		}
		msg := "Automated verification passed, but role assignment needs moderator review."
		if queued.Error != "" {
			msg = "Automated verification passed, but role assignment and manual queue failed: " + queued.Error
		}
		return &Result{Outcome: OutcomeQueued, Message: msg, ReviewError: queued.Error, State: queued.State}, nil
	}

	st, err := s.states.Upsert(ctx, session.GuildID, session.UserID, func(st *models.VerificationState) error {
		st.Status = models.StatusVerified
		st.Attempts = 0
		st.LastChallengeAt = nil
		st.ManualReason = ""
		return nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification state")
	}

	s.incrementVerificationsGranted()
	s.record(ctx, cfg, modAction{
		action:   models.ActionApprove,
		userID:   session.UserID,
		reason:   "Automated verification approved",
		metadata: map[string]string{"mode": "automatic"},
	})

	return &Result{
		Outcome: OutcomeVerified,
		Message: "Verification complete. You now have " + roleMention(cfg.VerifiedRoleID) + ".",
		State:   st,
	}, nil
}

func (s *Service) newSession(ctx context.Context, guildID, userID string, phase models.Phase, answer string) (*models.ChallengeSession, error) {
	now := requestcontext.Now(ctx)
	session := &models.ChallengeSession{
		ID:        uuid.NewString(),
		GuildID:   guildID,
		UserID:    userID,
		Phase:     phase,
		Answer:    answer,
		CreatedAt: now,
		ExpiresAt: now.Add(models.ChallengeTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store challenge session")
	}
	return session, nil
}
