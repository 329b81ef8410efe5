package service_test

import (
	"time"

	"gatekeeper/internal/verification/models"
	"gatekeeper/internal/verification/service"
	dErrors "gatekeeper/pkg/domain-errors"
)

func ptr[T any](v T) *T { return &v }

func (s *ServiceSuite) TestSetRulesValidation() {
	cases := []struct {
		name    string
		update  service.RulesUpdate
		message string
	}{
		{"nothing to update", service.RulesUpdate{}, "Provide at least one verification rule to update."},
		{"age below one hour", service.RulesUpdate{MinAccountAgeHours: ptr(0)}, "Invalid duration. Minimum is 1 hour."},
		{"age above a year", service.RulesUpdate{MinAccountAgeHours: ptr(24*365 + 1)}, "Minimum account age cannot exceed 365 days."},
		{"attempts above ten", service.RulesUpdate{MaxAttempts: ptr(11)}, "Max attempts must be between 1 and 10."},
		{"attempts below one", service.RulesUpdate{MaxAttempts: ptr(0)}, "Max attempts must be between 1 and 10."},
	}
	for _, tc := range cases {
		s.Run(tc.name, func() {
			_, err := s.service.SetRules(s.at(0), guildID, moderatorID, tc.update)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation))
			s.Equal(tc.message, dErrors.MessageOf(err))
		})
	}
}

func (s *ServiceSuite) TestSetRulesUpdatesOnlyGivenFields() {
	cfg, err := s.service.SetRules(s.at(0), guildID, moderatorID, service.RulesUpdate{MaxAttempts: ptr(5)})

	s.Require().NoError(err)
	s.Equal(5, cfg.MaxAttempts)
	s.Equal(models.DefaultMinAccountAgeHours, cfg.MinAccountAgeHours)
	s.Equal(1, s.audits.CountAction(string(models.ActionConfigChanged)))
}

func (s *ServiceSuite) TestSetRolesRequiresDistinctRoles() {
	_, err := s.service.SetRoles(s.at(0), guildID, moderatorID, verifiedRole, verifiedRole)

	s.Equal("Verified and unverified roles must be different roles.", dErrors.MessageOf(err))
}

func (s *ServiceSuite) TestSetRolesChecksHierarchy() {
	s.platform.SetRolePosition(guildID, "r-high", 150)

	_, err := s.service.SetRoles(s.at(0), guildID, moderatorID, "r-high", unverifiedRole)
	s.Equal("My highest role must be above both verified and unverified roles.", dErrors.MessageOf(err))

	s.platform.SetCapabilities(guildID, models.BotCapabilities{HighestRolePosition: 100})
	_, err = s.service.SetRoles(s.at(0), guildID, moderatorID, verifiedRole, unverifiedRole)
	s.Equal("I need the **Manage Roles** permission to manage verification roles.", dErrors.MessageOf(err))
}

func (s *ServiceSuite) TestSetRolesStoresRoles() {
	s.platform.SetRolePosition(guildID, "r-new", 3)

	cfg, err := s.service.SetRoles(s.at(0), guildID, moderatorID, "r-new", unverifiedRole)

	s.Require().NoError(err)
	s.Equal("r-new", cfg.VerifiedRoleID)
	s.Equal(unverifiedRole, cfg.UnverifiedRoleID)
}

func (s *ServiceSuite) TestSetTimeoutsValidation() {
	_, err := s.service.SetTimeouts(s.at(0), guildID, moderatorID, service.TimeoutsUpdate{
		ChallengeTimeout: ptr(30 * time.Second),
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	cfg, err := s.service.SetTimeouts(s.at(0), guildID, moderatorID, service.TimeoutsUpdate{
		ChallengeTimeout: ptr(10 * time.Minute),
		ReviewTimeout:    ptr(time.Duration(0)),
	})
	s.Require().NoError(err)
	s.Equal(10*time.Minute, cfg.ChallengeTimeout)
	s.Zero(cfg.ReviewTimeout)
}

func (s *ServiceSuite) TestSetOnJoinRoleCanBeCleared() {
	s.platform.SetRolePosition(guildID, "r-join", 5)

	cfg, err := s.service.SetOnJoinRole(s.at(0), guildID, moderatorID, "r-join")
	s.Require().NoError(err)
	s.Equal("r-join", cfg.OnJoinRoleID)

	cfg, err = s.service.SetOnJoinRole(s.at(0), guildID, moderatorID, "")
	s.Require().NoError(err)
	s.Empty(cfg.OnJoinRoleID)
}

func (s *ServiceSuite) TestPostPanelPreconditions() {
	s.configure(func(cfg *models.GuildConfig) { cfg.VerifyChannelID = "" })
	_, err := s.service.PostPanel(s.at(0), guildID)
	s.Equal("Set verification channels first.", dErrors.MessageOf(err))

	_, err = s.service.SetEnabled(s.at(0), guildID, moderatorID, false)
	s.Require().NoError(err)
	_, err = s.service.PostPanel(s.at(0), guildID)
	s.Equal("Enable verification first.", dErrors.MessageOf(err))
}

func (s *ServiceSuite) TestPostPanel() {
	ref, err := s.service.PostPanel(s.at(0), guildID)

	s.Require().NoError(err)
	s.Equal(verifyChannel, ref.ChannelID)
	sent := s.platform.SentTo(verifyChannel)
	s.Require().Len(sent, 1)
	s.Equal(models.StartID(), sent[0].Buttons[0].CustomID)
}

func (s *ServiceSuite) TestMemberState() {
	_, err := s.service.MemberState(s.at(0), guildID, userID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.arrive(0)
	st, err := s.service.MemberState(s.at(0), guildID, userID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, st.Status)
}
