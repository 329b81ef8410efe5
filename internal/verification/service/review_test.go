package service_test

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"gatekeeper/internal/verification/models"
	"gatekeeper/internal/verification/platformtest"
	"gatekeeper/internal/verification/service"
	dErrors "gatekeeper/pkg/domain-errors"
)

// resolution returns the Resolution field of a closed review record.
func resolution(posted *models.PostedMessage) string {
	fields := posted.Embeds[0].Fields
	last := fields[len(fields)-1]
	if last.Name != "Resolution" {
		return ""
	}
	return last.Value
}

func allDisabled(buttons []models.Button) bool {
	for _, b := range buttons {
		if !b.Disabled {
			return false
		}
	}
	return len(buttons) > 0
}

// =============================================================================
// Queueing
// =============================================================================

func (s *ServiceSuite) TestReviewPostFailureKeepsDurableState() {
	s.fail(0)
	s.fail(time.Minute)
	s.platform.Fail(platformtest.OpSendMessage, errors.New("missing access"))

	res := s.fail(2 * time.Minute)

	s.Equal(service.OutcomeQueued, res.Outcome)
	s.Equal("Review channel is missing or inaccessible.", res.ReviewError)
	s.Equal("Incorrect answer and manual review queue failed: Review channel is missing or inaccessible.", res.Message)

	st := s.state()
	s.Equal(models.StatusManualReview, st.Status)
	s.True(st.ManualRequired)
	s.Equal(3, st.Attempts)
	s.Nil(st.ReviewMessageRef)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ReviewPostFailures))
}

func (s *ServiceSuite) TestQueueWithoutReviewChannel() {
	s.configure(func(cfg *models.GuildConfig) { cfg.ReviewChannelID = "" })

	res, err := s.service.QueueManualReview(s.at(0), service.QueueRequest{
		GuildID: guildID,
		UserID:  userID,
		Reasons: []string{"Flagged by moderator"},
	})

	s.Require().NoError(err)
	s.Equal("Review channel is not configured by admins.", res.Error)
	s.Equal(models.StatusManualReview, res.State.Status)
	s.Equal("Flagged by moderator", res.State.ManualReason)
}

func (s *ServiceSuite) TestQueueIsIdempotentWhileRecordExists() {
	s.queue()

	res, err := s.service.QueueManualReview(s.at(time.Hour), service.QueueRequest{GuildID: guildID, UserID: userID})

	s.Require().NoError(err)
	s.True(res.Existing)
	s.Len(s.platform.SentTo(reviewChannel), 1)
}

func (s *ServiceSuite) TestQueueRepostsDeletedRecord() {
	st := s.queue()
	s.platform.DeleteMessage(*st.ReviewMessageRef)

	res, err := s.service.QueueManualReview(s.at(time.Hour), service.QueueRequest{GuildID: guildID, UserID: userID})

	s.Require().NoError(err)
	s.False(res.Existing)
	s.Len(s.platform.SentTo(reviewChannel), 2)
	s.Require().NotNil(res.State.ReviewMessageRef)
	s.NotEqual(*st.ReviewMessageRef, *res.State.ReviewMessageRef)
	// Re-queueing an open review keeps its timers.
	s.Equal(st.CreatedAt, res.State.CreatedAt)
}

func (s *ServiceSuite) TestQueueRefusesVerifiedMember() {
	_, err := s.states.Upsert(s.at(0), guildID, userID, func(st *models.VerificationState) error {
		st.Status = models.StatusVerified
		return nil
	})
	s.Require().NoError(err)

	_, err = s.service.QueueManualReview(s.at(time.Minute), service.QueueRequest{GuildID: guildID, UserID: userID})

	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	s.Empty(s.platform.SentTo(reviewChannel))
}

// =============================================================================
// Moderator decisions
// =============================================================================

func (s *ServiceSuite) TestApproveGrantsRoles() {
	queued := s.queue()

	res, err := s.review(time.Hour, models.DecisionApprove)

	s.Require().NoError(err)
	s.Equal("Manual verification updated for <@"+userID+">.", res.Message)
	s.Equal(models.StatusVerified, res.State.Status)
	s.Equal(0, res.State.Attempts)
	s.False(res.State.ManualRequired)
	s.Nil(res.State.ReviewMessageRef)

	m := s.platform.Member(guildID, userID)
	s.True(m.HasRole(verifiedRole))
	s.False(m.HasRole(unverifiedRole))

	posted := s.platform.Message(*queued.ReviewMessageRef)
	s.Equal("Approved by <@"+moderatorID+">", resolution(posted))
	s.True(allDisabled(posted.Buttons))
	s.Equal(1, s.audits.CountAction(string(models.ActionApprove)))
}

func (s *ServiceSuite) TestRejectAppliesUnverifiedRole() {
	m := s.member(userID)
	m.RoleIDs = nil
	s.platform.AddMember(m)
	queued := s.queue()

	res, err := s.review(time.Hour, models.DecisionReject)

	s.Require().NoError(err)
	s.Equal(models.StatusRejected, res.State.Status)
	s.Equal("Rejected by Mod", res.State.ManualReason)
	s.Equal(s.now.Add(time.Hour), res.State.CreatedAt)
	s.True(s.platform.Member(guildID, userID).HasRole(unverifiedRole))
	s.Equal("Rejected by <@"+moderatorID+">", resolution(s.platform.Message(*queued.ReviewMessageRef)))
}

func (s *ServiceSuite) TestRecheckResetsToPending() {
	queued := s.queue()

	res, err := s.review(time.Hour, models.DecisionRecheck)

	s.Require().NoError(err)
	st := res.State
	s.Equal(models.StatusPending, st.Status)
	s.Equal(0, st.Attempts)
	s.False(st.ManualRequired)
	s.Nil(st.ReviewMessageRef)
	s.Nil(st.LastChallengeAt)
	s.Equal(s.now.Add(time.Hour), st.CreatedAt)

	posted := s.platform.Message(*queued.ReviewMessageRef)
	s.True(allDisabled(posted.Buttons))
	s.Equal("Recheck requested by <@"+moderatorID+">", resolution(posted))
	s.Equal(1, s.audits.CountAction(string(models.ActionRecheck)))

	// The member can start over straight away.
	s.issue(time.Hour + time.Second)
}

func (s *ServiceSuite) TestSecondDecisionIsRefused() {
	s.queue()
	_, err := s.review(time.Hour, models.DecisionApprove)
	s.Require().NoError(err)

	_, err = s.review(time.Hour+time.Second, models.DecisionReject)

	s.ErrorIs(err, service.ErrReviewResolved)
	s.Equal(models.StatusVerified, s.state().Status)
	s.Equal(0, s.audits.CountAction(string(models.ActionReject)))
}

func (s *ServiceSuite) TestReviewRequiresModerateMembers() {
	s.queue()

	_, err := s.service.ReviewAction(s.at(time.Hour), service.ReviewRequest{
		GuildID:     guildID,
		UserID:      userID,
		ModeratorID: moderatorID,
		Decision:    models.DecisionApprove,
	})

	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	s.Equal(models.StatusManualReview, s.state().Status)
}

func (s *ServiceSuite) TestApproveAbsentMemberRestoresRecord() {
	queued := s.queue()
	s.platform.DropMember(guildID, userID)

	_, err := s.review(time.Hour, models.DecisionApprove)

	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	s.Equal("Member is no longer in this server.", dErrors.MessageOf(err))
	st := s.state()
	s.Equal(models.StatusManualReview, st.Status)
	s.Equal(queued.ReviewMessageRef, st.ReviewMessageRef)
}

func (s *ServiceSuite) TestApproveRoleFailureKeepsReviewOpen() {
	s.queue()
	s.platform.SetRolePosition(guildID, verifiedRole, 200)

	_, err := s.review(time.Hour, models.DecisionApprove)

	s.True(dErrors.HasCode(err, dErrors.CodeConfiguration))
	s.Equal("Manual approval failed: Bot role must be higher than verified and unverified roles.", dErrors.MessageOf(err))
	s.Equal(models.StatusManualReview, s.state().Status)
	s.NotNil(s.state().ReviewMessageRef)
}

func (s *ServiceSuite) TestRejectAbsentMemberIsAuditedButNotLogged() {
	s.queue()
	s.platform.DropMember(guildID, userID)

	res, err := s.review(time.Hour, models.DecisionReject)

	s.Require().NoError(err)
	s.Equal(models.StatusRejected, res.State.Status)
	s.Equal(1, s.audits.CountAction(string(models.ActionReject)))
	s.NotContains(s.modLogTitles(), string(models.ActionReject))
}

// =============================================================================
// Reminders and expiry
// =============================================================================

func (s *ServiceSuite) withReviewTimeout(d time.Duration) {
	s.configure(func(cfg *models.GuildConfig) { cfg.ReviewTimeout = d })
}

func (s *ServiceSuite) TestRemindOnceAfterThreeQuarters() {
	s.withReviewTimeout(time.Hour)
	opened := s.queue().CreatedAt.Sub(s.now)

	sent, err := s.service.RemindReview(s.at(opened+30*time.Minute), guildID, userID, 0.75)
	s.Require().NoError(err)
	s.False(sent)

	sent, err = s.service.RemindReview(s.at(opened+50*time.Minute), guildID, userID, 0.75)
	s.Require().NoError(err)
	s.True(sent)

	sent, err = s.service.RemindReview(s.at(opened+55*time.Minute), guildID, userID, 0.75)
	s.Require().NoError(err)
	s.False(sent)

	replies := s.platform.Replies()
	s.Require().Len(replies, 1)
	deadline := s.now.Add(opened + time.Hour).Unix()
	s.True(strings.Contains(replies[0].Content, "<t:"+strconv.FormatInt(deadline, 10)+":R>"))
	s.True(s.state().ReviewReminded)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ReviewReminders))
}

func (s *ServiceSuite) TestFailedReminderIsNotRetried() {
	s.withReviewTimeout(time.Hour)
	opened := s.queue().CreatedAt.Sub(s.now)
	s.platform.Fail(platformtest.OpReplyMessage, errors.New("missing access"))

	sent, err := s.service.RemindReview(s.at(opened+50*time.Minute), guildID, userID, 0.75)
	s.Require().NoError(err)
	s.False(sent)
	s.True(s.state().ReviewReminded)

	s.platform.Fail(platformtest.OpReplyMessage, nil)
	sent, err = s.service.RemindReview(s.at(opened+55*time.Minute), guildID, userID, 0.75)
	s.Require().NoError(err)
	s.False(sent)
	s.Empty(s.platform.Replies())
}

func (s *ServiceSuite) TestRemindWithoutTimeoutDoesNothing() {
	opened := s.queue().CreatedAt.Sub(s.now)

	sent, err := s.service.RemindReview(s.at(opened+24*time.Hour), guildID, userID, 0.75)

	s.Require().NoError(err)
	s.False(sent)
	s.False(s.state().ReviewReminded)
}

func (s *ServiceSuite) TestExpireReviewOnceAfterDeadline() {
	s.withReviewTimeout(time.Hour)
	queued := s.queue()
	opened := queued.CreatedAt.Sub(s.now)

	expired, err := s.service.ExpireReview(s.at(opened+59*time.Minute), guildID, userID)
	s.Require().NoError(err)
	s.False(expired)

	expired, err = s.service.ExpireReview(s.at(opened+61*time.Minute), guildID, userID)
	s.Require().NoError(err)
	s.True(expired)

	expired, err = s.service.ExpireReview(s.at(opened+62*time.Minute), guildID, userID)
	s.Require().NoError(err)
	s.False(expired)

	st := s.state()
	s.Equal(models.StatusReviewExpired, st.Status)
	s.False(st.ManualRequired)
	s.Equal("Review expired after 1 hour", st.ManualReason)
	// Expiry keeps the cycle start.
	s.Equal(queued.CreatedAt, st.CreatedAt)

	posted := s.platform.Message(*queued.ReviewMessageRef)
	s.Equal("Manual Review Expired", posted.Embeds[0].Title)
	s.Equal("Review expired after 1 hour; the member will be removed automatically.", resolution(posted))
	s.True(allDisabled(posted.Buttons))
	s.Equal(1, s.audits.CountAction(string(models.ActionReviewExpired)))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.ReviewsExpired))
}

func (s *ServiceSuite) TestDecisionAfterExpiryIsRefused() {
	s.withReviewTimeout(time.Hour)
	opened := s.queue().CreatedAt.Sub(s.now)
	_, err := s.service.ExpireReview(s.at(opened+2*time.Hour), guildID, userID)
	s.Require().NoError(err)

	_, err = s.review(opened+3*time.Hour, models.DecisionApprove)

	s.ErrorIs(err, service.ErrReviewResolved)
}
