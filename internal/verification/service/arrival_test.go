package service_test

import (
	"context"
	"time"

	"gatekeeper/internal/verification/invite"
	"gatekeeper/internal/verification/models"
	"gatekeeper/internal/verification/service"
)

func (s *ServiceSuite) TestArrivalStartsPendingCycle() {
	m := s.member(userID)
	m.RoleIDs = nil
	s.platform.AddMember(m)

	res, err := s.service.HandleArrival(s.at(0), s.platform.Member(guildID, userID))

	s.Require().NoError(err)
	s.True(res.Tracked)
	s.Equal(models.StatusPending, res.State.Status)
	s.Equal(s.now, res.State.CreatedAt)
	s.True(s.platform.Member(guildID, userID).HasRole(unverifiedRole))
}

func (s *ServiceSuite) TestArrivalResetsPreviousCycle() {
	s.queue()

	s.arrive(time.Hour)

	st := s.state()
	s.Equal(models.StatusPending, st.Status)
	s.Equal(0, st.Attempts)
	s.False(st.ManualRequired)
	s.Nil(st.ReviewMessageRef)
	s.Empty(st.RiskReasons)
	s.Equal(s.now.Add(time.Hour), st.CreatedAt)
}

func (s *ServiceSuite) TestArrivalClosesOpenReviewRecord() {
	queued := s.queue()
	s.Require().NotNil(queued.ReviewMessageRef)

	s.arrive(time.Hour)

	posted := s.platform.Message(*queued.ReviewMessageRef)
	s.Require().NotNil(posted)
	s.True(allDisabled(posted.Buttons))
	s.Equal("Manual Review Closed", posted.Embeds[0].Title)

	_, err := s.review(time.Hour, models.DecisionApprove)
	s.ErrorIs(err, service.ErrReviewResolved)
}

func (s *ServiceSuite) TestArrivalWithVerificationDisabled() {
	s.configure(func(cfg *models.GuildConfig) { cfg.Enabled = false })

	res, err := s.service.HandleArrival(s.at(0), s.platform.Member(guildID, userID))

	s.Require().NoError(err)
	s.False(res.Tracked)
	st, err := s.states.Get(context.Background(), guildID, userID)
	s.Require().NoError(err)
	s.Nil(st)
}

func (s *ServiceSuite) TestArrivalWithoutManageRoles() {
	s.platform.SetCapabilities(guildID, models.BotCapabilities{HighestRolePosition: 100})

	res, err := s.service.HandleArrival(s.at(0), s.platform.Member(guildID, userID))

	s.Require().NoError(err)
	s.False(res.Tracked)
}

func (s *ServiceSuite) TestArrivalAssignsOnJoinRole() {
	s.configure(func(cfg *models.GuildConfig) {
		cfg.Enabled = false
		cfg.OnJoinRoleID = "r-join"
	})
	s.platform.SetRolePosition(guildID, "r-join", 5)

	res, err := s.service.HandleArrival(s.at(0), s.platform.Member(guildID, userID))

	s.Require().NoError(err)
	s.False(res.Tracked)
	s.True(s.platform.Member(guildID, userID).HasRole("r-join"))
}

func (s *ServiceSuite) TestArrivalAttributesInvite() {
	resolver, err := invite.New(s.platform)
	s.Require().NoError(err)
	svc, err := service.New(s.states, s.configs, s.sessions, s.platform, service.WithInviteResolver(resolver))
	s.Require().NoError(err)

	s.platform.SetInvites(guildID, []models.Invite{{Code: "aBcDeF", Uses: 4}, {Code: "other", Uses: 1}})
	s.Require().NoError(svc.HandleCommunityJoin(s.at(0), guildID))
	s.platform.SetInvites(guildID, []models.Invite{{Code: "aBcDeF", Uses: 5}, {Code: "other", Uses: 1}})

	res, err := svc.HandleArrival(s.at(time.Minute), s.platform.Member(guildID, userID))

	s.Require().NoError(err)
	s.True(res.Tracked)
	s.Equal("aBcDeF", res.InviteCode)
	s.Equal("aBcDeF", s.state().InviteCode)

	svc.HandleCommunityLeave(s.at(time.Minute), guildID)
	_, cached := resolver.Cached(guildID)
	s.False(cached)
}
