package service_test

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"gatekeeper/internal/verification/metrics"
	"gatekeeper/internal/verification/models"
	"gatekeeper/internal/verification/platformtest"
	"gatekeeper/internal/verification/risk"
	"gatekeeper/internal/verification/service"
	dErrors "gatekeeper/pkg/domain-errors"
)

// =============================================================================
// Challenge issuance
// =============================================================================

func (s *ServiceSuite) TestIssueChallengeMovesToChallenge() {
	s.arrive(0)

	ch := s.issue(time.Minute)

	s.Equal(models.PhaseCode, ch.Phase)
	s.Equal(s.now.Add(time.Minute+models.ChallengeTTL), ch.ExpiresAt)
	s.Require().Len(ch.Message.Files, 1)
	s.Equal("captcha.png", ch.Message.Files[0].Name)
	s.NotEmpty(ch.Message.Files[0].Data)

	st := s.state()
	s.Equal(models.StatusChallenge, st.Status)
	s.Equal(0, st.Attempts)
	s.Require().NotNil(st.LastChallengeAt)
	s.Equal(s.now.Add(time.Minute), *st.LastChallengeAt)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ChallengesIssued.WithLabelValues(string(models.PhaseCode))))
}

func (s *ServiceSuite) TestIssueRejectsUnconfiguredGuild() {
	s.configure(func(cfg *models.GuildConfig) { cfg.Enabled = false })

	_, err := s.service.EvaluateAndChallenge(s.at(0), service.ChallengeRequest{GuildID: guildID, UserID: userID})

	s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
	s.Equal("Verification is currently disabled by admins.", dErrors.MessageOf(err))
}

func (s *ServiceSuite) TestIssueRequiresGuild() {
	_, err := s.service.EvaluateAndChallenge(s.at(0), service.ChallengeRequest{UserID: userID})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestIssueOutsideVerifyChannel() {
	_, err := s.service.EvaluateAndChallenge(s.at(0), service.ChallengeRequest{
		GuildID:   guildID,
		UserID:    userID,
		ChannelID: "elsewhere",
	})
	s.Equal("Please use verification in <#"+verifyChannel+">.", dErrors.MessageOf(err))
}

func (s *ServiceSuite) TestIssueWithinCooldownIsRateLimited() {
	s.issue(0)

	_, err := s.service.EvaluateAndChallenge(s.at(10*time.Second), service.ChallengeRequest{GuildID: guildID, UserID: userID})

	s.True(dErrors.HasCode(err, dErrors.CodeRateLimited))
	s.Equal("Please wait 20 seconds before trying again.", dErrors.MessageOf(err))
}

func (s *ServiceSuite) TestIssueAfterCooldownSucceeds() {
	s.issue(0)
	s.issue(models.ChallengeCooldown)
}

func (s *ServiceSuite) TestVerifiedRoleHolderIsAlreadyVerified() {
	m := s.member(userID)
	m.RoleIDs = []string{verifiedRole}
	s.platform.AddMember(m)

	res, err := s.service.EvaluateAndChallenge(s.at(0), service.ChallengeRequest{GuildID: guildID, UserID: userID})

	s.Require().NoError(err)
	s.Equal(service.OutcomeAlreadyVerified, res.Outcome)
	s.Equal("You are already verified.", res.Message)
	s.Equal(models.StatusVerified, s.state().Status)
}

func (s *ServiceSuite) TestMemberLookupFailure() {
	s.platform.Fail(platformtest.OpFetchMember, errors.New("gateway down"))

	_, err := s.service.EvaluateAndChallenge(s.at(0), service.ChallengeRequest{GuildID: guildID, UserID: userID})

	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *ServiceSuite) TestRiskyAccountIsQueuedWithoutChallenge() {
	risky := s.member(userID)
	risky.User.CreatedAt = s.now.Add(-2 * time.Hour)
	risky.User.AvatarHash = ""
	s.platform.AddMember(risky)

	res, err := s.service.EvaluateAndChallenge(s.at(0), service.ChallengeRequest{GuildID: guildID, UserID: userID})

	s.Require().NoError(err)
	s.Equal(service.OutcomeQueued, res.Outcome)
	s.Nil(res.Challenge)
	s.Empty(res.ReviewError)

	st := s.state()
	s.Equal(models.StatusManualReview, st.Status)
	s.True(st.ManualRequired)
	s.Equal(3, st.RiskScore)
	s.Equal([]string{"Account is only 2h old (minimum 24h).", risk.ReasonNoAvatar}, st.RiskReasons)
	s.NotNil(st.ReviewMessageRef)
	s.Len(s.platform.SentTo(reviewChannel), 1)
}

func (s *ServiceSuite) TestClosedMemberCannotRestart() {
	s.queue()
	_, err := s.review(time.Hour, models.DecisionReject)
	s.Require().NoError(err)

	_, err = s.service.EvaluateAndChallenge(s.at(2*time.Hour), service.ChallengeRequest{GuildID: guildID, UserID: userID})

	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Equal("Your verification request was closed by moderators.", dErrors.MessageOf(err))
}

func (s *ServiceSuite) TestQueuedMemberIsToldTheyAreInReview() {
	s.queue()

	res, err := s.service.EvaluateAndChallenge(s.at(time.Hour), service.ChallengeRequest{GuildID: guildID, UserID: userID})

	s.Require().NoError(err)
	s.Equal(service.OutcomeInReview, res.Outcome)
}

// =============================================================================
// Answers
// =============================================================================

func (s *ServiceSuite) TestPassingBothPhasesVerifies() {
	s.arrive(0)
	code := s.issue(time.Minute)

	res, err := s.submit(time.Minute+10*time.Second, code.SessionID, s.expected(code.SessionID))
	s.Require().NoError(err)
	s.Require().Equal(service.OutcomeChallenge, res.Outcome)
	s.Require().NotNil(res.Challenge)
	s.Equal(models.PhaseContext, res.Challenge.Phase)
	s.Equal(models.StatusChallenge, s.state().Status)

	ctxID := res.Challenge.SessionID
	res, err = s.submit(time.Minute+30*time.Second, ctxID, s.expected(ctxID))
	s.Require().NoError(err)
	s.Equal(service.OutcomeVerified, res.Outcome)
	s.Equal("Verification complete. You now have <@&"+verifiedRole+">.", res.Message)

	st := s.state()
	s.Equal(models.StatusVerified, st.Status)
	s.Equal(0, st.Attempts)
	s.False(st.ManualRequired)

	m := s.platform.Member(guildID, userID)
	s.True(m.HasRole(verifiedRole))
	s.False(m.HasRole(unverifiedRole))
	s.Equal(1, s.audits.CountAction(string(models.ActionApprove)))
	s.Equal([]string{string(models.ActionApprove)}, s.modLogTitles())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.VerificationsGranted))
}

func (s *ServiceSuite) TestCodeAnswerIgnoresCaseAndSpacing() {
	code := s.issue(0)
	answer := s.expected(code.SessionID)
	sloppy := " " + answer[:2] + " " + answer[2:] + " "

	res, err := s.submit(10*time.Second, code.SessionID, sloppy)

	s.Require().NoError(err)
	s.Equal(service.OutcomeChallenge, res.Outcome)
}

func (s *ServiceSuite) TestWrongAnswerCountsAttempt() {
	res := s.fail(0)

	s.Equal(service.OutcomeRetry, res.Outcome)
	s.True(res.Retry)
	s.Equal("Incorrect answer.", res.Message)

	st := s.state()
	s.Equal(models.StatusPending, st.Status)
	s.Equal(1, st.Attempts)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Answers.WithLabelValues(metrics.OutcomeWrong)))
}

func (s *ServiceSuite) TestTooFastAnswerCountsAttempt() {
	code := s.issue(0)

	res, err := s.submit(time.Second, code.SessionID, s.expected(code.SessionID))

	s.Require().NoError(err)
	s.Equal(service.OutcomeRetry, res.Outcome)
	s.Equal("That was suspiciously fast.", res.Message)
	s.Equal(1, s.state().Attempts)
}

func (s *ServiceSuite) TestExpiredSessionCountsAsTimeout() {
	code := s.issue(0)

	res, err := s.submit(models.ChallengeTTL+time.Minute, code.SessionID, s.expected(code.SessionID))

	s.Require().NoError(err)
	s.Equal(service.OutcomeRetry, res.Outcome)
	s.Equal("Challenge timed out.", res.Message)
	s.Equal(1, s.state().Attempts)
}

func (s *ServiceSuite) TestWrongContextAnswerCountsAttempt() {
	code := s.issue(0)
	res, err := s.submit(10*time.Second, code.SessionID, s.expected(code.SessionID))
	s.Require().NoError(err)

	res, err = s.submit(20*time.Second, res.Challenge.SessionID, "not a date")

	s.Require().NoError(err)
	s.Equal(service.OutcomeRetry, res.Outcome)
	st := s.state()
	s.Equal(models.StatusPending, st.Status)
	s.Equal(1, st.Attempts)
}

func (s *ServiceSuite) TestConsumedSessionCannotBeReplayed() {
	code := s.issue(0)
	answer := s.expected(code.SessionID)
	_, err := s.submit(10*time.Second, code.SessionID, "WRONG")
	s.Require().NoError(err)

	_, err = s.submit(20*time.Second, code.SessionID, answer)

	s.ErrorIs(err, service.ErrSessionNotFound)
	s.Equal(1, s.state().Attempts)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Answers.WithLabelValues(metrics.OutcomeNotFound)))
}

func (s *ServiceSuite) TestForeignSessionIsRefusedAndBurned() {
	code := s.issue(0)
	answer := s.expected(code.SessionID)

	_, err := s.service.SubmitAnswer(s.at(10*time.Second), service.AnswerRequest{
		GuildID:   guildID,
		UserID:    otherUserID,
		SessionID: code.SessionID,
		Answer:    answer,
	})
	s.ErrorIs(err, service.ErrSessionForeign)
	s.Equal(0, s.state().Attempts)

	_, err = s.submit(20*time.Second, code.SessionID, answer)
	s.ErrorIs(err, service.ErrSessionNotFound)
}

func (s *ServiceSuite) TestCheckSessionDoesNotConsume() {
	code := s.issue(0)

	_, err := s.service.CheckSession(s.at(time.Second), guildID, userID, code.SessionID)
	s.Require().NoError(err)
	_, err = s.service.CheckSession(s.at(time.Second), guildID, otherUserID, code.SessionID)
	s.ErrorIs(err, service.ErrSessionForeign)
	_, err = s.service.CheckSession(s.at(models.ChallengeTTL+time.Second), guildID, userID, code.SessionID)
	s.ErrorIs(err, service.ErrSessionNotFound)

	_, err = s.sessions.Peek(context.Background(), code.SessionID)
	s.NoError(err)
}

func (s *ServiceSuite) TestAnswerForResolvedMemberIsStale() {
	code := s.issue(0)
	_, err := s.states.Upsert(s.at(time.Second), guildID, userID, func(st *models.VerificationState) error {
		st.Status = models.StatusVerified
		return nil
	})
	s.Require().NoError(err)

	_, err = s.submit(10*time.Second, code.SessionID, s.expected(code.SessionID))

	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

// =============================================================================
// Attempt exhaustion
// =============================================================================

func (s *ServiceSuite) TestExhaustingAttemptsQueuesManualReview() {
	s.Equal(service.OutcomeRetry, s.fail(0).Outcome)
	s.Equal(service.OutcomeRetry, s.fail(time.Minute).Outcome)

	res := s.fail(2 * time.Minute)

	s.Equal(service.OutcomeQueued, res.Outcome)
	s.False(res.Retry)
	s.Equal("Incorrect answer. You reached the retry limit and were sent for manual moderator review.", res.Message)

	st := s.state()
	s.Equal(models.StatusManualReview, st.Status)
	s.True(st.ManualRequired)
	s.Equal(3, st.Attempts)
	s.Equal([]string{"Incorrect challenge answer.", "Reached max attempts (3)."}, st.RiskReasons)
	s.Equal(s.now.Add(2*time.Minute+10*time.Second), st.CreatedAt)
	s.Require().NotNil(st.ReviewMessageRef)

	posted := s.platform.Message(*st.ReviewMessageRef)
	s.Require().NotNil(posted)
	s.Equal("Manual Verification Required", posted.Embeds[0].Title)
	s.Len(posted.Buttons, 3)
	s.Equal(1, s.audits.CountAction(string(models.ActionQueue)))
}

func (s *ServiceSuite) TestExhaustionWithoutMemberStillQueues() {
	for i := range 2 {
		s.fail(time.Duration(i) * time.Minute)
	}
	code := s.issue(2 * time.Minute)
	s.platform.Fail(platformtest.OpFetchMember, errors.New("gateway down"))

	res, err := s.submit(2*time.Minute+10*time.Second, code.SessionID, "WRONG")

	s.Require().NoError(err)
	s.Equal(service.OutcomeQueued, res.Outcome)
	s.Equal(models.StatusManualReview, s.state().Status)
}

func (s *ServiceSuite) TestMaxedAttemptsOnRequestQueues() {
	_, err := s.states.Upsert(s.at(0), guildID, userID, func(st *models.VerificationState) error {
		st.Attempts = 3
		return nil
	})
	s.Require().NoError(err)

	res, err := s.service.EvaluateAndChallenge(s.at(time.Minute), service.ChallengeRequest{GuildID: guildID, UserID: userID})

	s.Require().NoError(err)
	s.Equal(service.OutcomeQueued, res.Outcome)
	s.Equal([]string{"Maximum automated verification attempts reached."}, s.state().RiskReasons)
}

func (s *ServiceSuite) TestRoleFailureAfterPassQueuesReview() {
	code := s.issue(0)
	res, err := s.submit(10*time.Second, code.SessionID, s.expected(code.SessionID))
	s.Require().NoError(err)
	s.platform.Fail(platformtest.OpAddRole, errors.New("missing access"))

	res, err = s.submit(20*time.Second, res.Challenge.SessionID, s.expected(res.Challenge.SessionID))

	s.Require().NoError(err)
	s.Equal(service.OutcomeQueued, res.Outcome)
	s.Equal("Automated verification passed, but role assignment needs moderator review.", res.Message)
	st := s.state()
	s.Equal(models.StatusManualReview, st.Status)
	s.Equal([]string{"Failed to grant the verified role."}, st.RiskReasons)
}
