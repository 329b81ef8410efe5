package service_test

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"gatekeeper/internal/verification/models"
	"gatekeeper/internal/verification/platformtest"
	"gatekeeper/internal/verification/service"
)

func (s *ServiceSuite) withChallengeTimeout(d time.Duration) {
	s.configure(func(cfg *models.GuildConfig) { cfg.ChallengeTimeout = d })
}

func (s *ServiceSuite) remove(offset time.Duration) (service.RemovalOutcome, error) {
	return s.service.RemoveUnverified(s.at(offset), guildID, userID)
}

func (s *ServiceSuite) TestRemovesStalePendingMemberOnce() {
	s.withChallengeTimeout(5 * time.Minute)
	s.arrive(0)

	outcome, err := s.remove(15 * time.Minute)

	s.Require().NoError(err)
	s.Equal(service.RemovalRemoved, outcome)
	removals := s.platform.Removals()
	s.Require().Len(removals, 1)
	s.Equal("Failed to complete verification within 5 minutes", removals[0].Reason)
	s.Equal(models.StatusKicked, s.state().Status)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Removals.WithLabelValues("pending")))

	outcome, err = s.remove(20 * time.Minute)
	s.Require().NoError(err)
	s.Equal(service.RemovalIneligible, outcome)
	s.Len(s.platform.Removals(), 1)
	s.Equal(1, s.audits.CountAction(string(models.ActionKick)))
	s.Equal([]string{string(models.ActionKick)}, s.modLogTitles())
}

func (s *ServiceSuite) TestPendingWithinTimeoutIsIneligible() {
	s.withChallengeTimeout(5 * time.Minute)
	s.arrive(0)

	outcome, err := s.remove(4 * time.Minute)

	s.Require().NoError(err)
	s.Equal(service.RemovalIneligible, outcome)
	s.Empty(s.platform.Removals())
}

func (s *ServiceSuite) TestDisabledTimeoutNeverRemovesPending() {
	s.arrive(0)

	outcome, err := s.remove(30 * 24 * time.Hour)

	s.Require().NoError(err)
	s.Equal(service.RemovalIneligible, outcome)
}

func (s *ServiceSuite) TestRemovesRejectedMember() {
	s.queue()
	_, err := s.review(time.Hour, models.DecisionReject)
	s.Require().NoError(err)

	outcome, err := s.remove(time.Hour + time.Minute)

	s.Require().NoError(err)
	s.Equal(service.RemovalRemoved, outcome)
	s.Equal("Failed to pass manual review process", s.platform.Removals()[0].Reason)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Removals.WithLabelValues("rejected")))
}

func (s *ServiceSuite) TestRejectedMemberIsRemovableAtOnce() {
	s.queue()
	_, err := s.review(time.Hour, models.DecisionReject)
	s.Require().NoError(err)

	outcome, err := s.remove(time.Hour)

	s.Require().NoError(err)
	s.Equal(service.RemovalRemoved, outcome)
	var details string
	for _, msg := range s.platform.SentTo(logChannel) {
		for _, e := range msg.Embeds {
			if e.Title != string(models.ActionKick) {
				continue
			}
			for _, f := range e.Fields {
				if f.Name == "Details" {
					details = f.Value
				}
			}
		}
	}
	s.Equal("Status was **REJECTED** since 2025-03-10 13:00:00 UTC", details)
}

func (s *ServiceSuite) TestOpenReviewIsNeverRemoved() {
	s.withChallengeTimeout(5 * time.Minute)
	s.queue()

	outcome, err := s.remove(24 * time.Hour)

	s.Require().NoError(err)
	s.Equal(service.RemovalIneligible, outcome)
}

func (s *ServiceSuite) TestDepartedMemberIsCleanedUp() {
	s.withChallengeTimeout(5 * time.Minute)
	s.arrive(0)
	s.platform.DropMember(guildID, userID)

	outcome, err := s.remove(15 * time.Minute)

	s.Require().NoError(err)
	s.Equal(service.RemovalDeparted, outcome)
	st, err := s.states.Get(context.Background(), guildID, userID)
	s.Require().NoError(err)
	s.Nil(st)
	s.Equal(0, s.audits.CountAction(string(models.ActionKick)))
}

func (s *ServiceSuite) TestMissingKickPermissionSkips() {
	s.withChallengeTimeout(5 * time.Minute)
	s.arrive(0)
	s.platform.SetCapabilities(guildID, models.BotCapabilities{
		Permissions:         models.PermManageRoles,
		HighestRolePosition: 100,
	})

	outcome, err := s.remove(15 * time.Minute)

	s.Require().NoError(err)
	s.Equal(service.RemovalSkipped, outcome)
	s.Equal(models.StatusPending, s.state().Status)

	ok, err := s.service.CanRemoveMembers(s.at(0), guildID)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *ServiceSuite) TestMemberAboveBotIsSkipped() {
	s.withChallengeTimeout(5 * time.Minute)
	s.arrive(0)
	m := s.member(userID)
	m.HighestRolePosition = 150
	s.platform.AddMember(m)

	outcome, err := s.remove(15 * time.Minute)

	s.Require().NoError(err)
	s.Equal(service.RemovalSkipped, outcome)
	s.Empty(s.platform.Removals())
}

func (s *ServiceSuite) TestRemovalFailureIsReported() {
	s.withChallengeTimeout(5 * time.Minute)
	s.arrive(0)
	s.platform.Fail(platformtest.OpRemoveMember, errors.New("missing access"))

	outcome, err := s.remove(15 * time.Minute)

	s.Error(err)
	s.Equal(service.RemovalSkipped, outcome)
	s.Equal(models.StatusPending, s.state().Status)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RemovalFailures))
}

func (s *ServiceSuite) TestVerifiedMemberIsIneligible() {
	s.withChallengeTimeout(5 * time.Minute)
	_, err := s.states.Upsert(s.at(0), guildID, userID, func(st *models.VerificationState) error {
		st.Status = models.StatusVerified
		return nil
	})
	s.Require().NoError(err)

	outcome, err := s.remove(time.Hour)

	s.Require().NoError(err)
	s.Equal(service.RemovalIneligible, outcome)
}
