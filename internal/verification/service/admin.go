package service

import (
	"context"
	"errors"
	"time"

	"gatekeeper/internal/verification/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/audit"
	"gatekeeper/pkg/platform/sentinel"
	"gatekeeper/pkg/requestcontext"
)

// MaxTimeout bounds both configurable timeouts.
const MaxTimeout = 30 * 24 * time.Hour

// RulesUpdate changes the risk and attempt rules; nil fields are left as is.
type RulesUpdate struct {
	MinAccountAgeHours *int
	MaxAttempts        *int
}

// TimeoutsUpdate changes the sweep timeouts; nil fields are left as is and a
// zero duration disables the timeout.
type TimeoutsUpdate struct {
	ChallengeTimeout *time.Duration
	ReviewTimeout    *time.Duration
}

// Config returns the guild's verification configuration, or the defaults.
func (s *Service) Config(ctx context.Context, guildID string) (*models.GuildConfig, error) {
	if guildID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "guild ID required")
	}
	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification config")
	}
	return cfg, nil
}

// MemberState returns the member's verification row.
func (s *Service) MemberState(ctx context.Context, guildID, userID string) (*models.VerificationState, error) {
	if guildID == "" || userID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "guild ID and user ID required")
	}
	st, err := s.states.Get(ctx, guildID, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification state")
	}
	if st == nil {
		return nil, dErrors.New(dErrors.CodeNotFound, "no verification state for this member")
	}
	return st, nil
}

func (s *Service) SetEnabled(ctx context.Context, guildID, actorID string, enabled bool) (*models.GuildConfig, error) {
	return s.updateConfig(ctx, guildID, actorID, "enabled", func(cfg *models.GuildConfig) error {
		cfg.Enabled = enabled
		return nil
	})
}

func (s *Service) SetChannels(ctx context.Context, guildID, actorID, verifyChannelID, reviewChannelID string) (*models.GuildConfig, error) {
	if verifyChannelID == "" || reviewChannelID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Both a verify channel and a review channel are required.")
	}
	return s.updateConfig(ctx, guildID, actorID, "channels", func(cfg *models.GuildConfig) error {
		cfg.VerifyChannelID = verifyChannelID
		cfg.ReviewChannelID = reviewChannelID
		return nil
	})
}

// SetRoles stores the verification roles after checking the bot can manage them.
func (s *Service) SetRoles(ctx context.Context, guildID, actorID, verifiedRoleID, unverifiedRoleID string) (*models.GuildConfig, error) {
	if verifiedRoleID == "" || unverifiedRoleID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "Both a verified role and an unverified role are required.")
	}
	if verifiedRoleID == unverifiedRoleID {
		return nil, dErrors.New(dErrors.CodeValidation, "Verified and unverified roles must be different roles.")
	}

	caps, err := s.platform.Capabilities(ctx, guildID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read bot permissions")
	}
	if !caps.Permissions.Has(models.PermManageRoles) {
		return nil, dErrors.New(dErrors.CodeConfiguration, "I need the **Manage Roles** permission to manage verification roles.")
	}
	for _, roleID := range []string{verifiedRoleID, unverifiedRoleID} {
		if err := s.checkManageableRole(ctx, guildID, roleID, caps,
			"My highest role must be above both verified and unverified roles."); err != nil {
			return nil, err
		}
	}

	return s.updateConfig(ctx, guildID, actorID, "roles", func(cfg *models.GuildConfig) error {
		cfg.VerifiedRoleID = verifiedRoleID
		cfg.UnverifiedRoleID = unverifiedRoleID
		return nil
	})
}

func (s *Service) SetRules(ctx context.Context, guildID, actorID string, update RulesUpdate) (*models.GuildConfig, error) {
	if update.MinAccountAgeHours == nil && update.MaxAttempts == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "Provide at least one verification rule to update.")
	}
	if h := update.MinAccountAgeHours; h != nil {
		if *h < 1 {
			return nil, dErrors.New(dErrors.CodeValidation, "Invalid duration. Minimum is 1 hour.")
		}
		if *h > models.MaxMinAccountAgeHours {
			return nil, dErrors.New(dErrors.CodeValidation, "Minimum account age cannot exceed 365 days.")
		}
	}
	if n := update.MaxAttempts; n != nil && (*n < models.MinMaxAttempts || *n > models.MaxMaxAttempts) {
		return nil, dErrors.New(dErrors.CodeValidation, "Max attempts must be between 1 and 10.")
	}

	return s.updateConfig(ctx, guildID, actorID, "rules", func(cfg *models.GuildConfig) error {
		if update.MinAccountAgeHours != nil {
			cfg.MinAccountAgeHours = *update.MinAccountAgeHours
		}
		if update.MaxAttempts != nil {
			cfg.MaxAttempts = *update.MaxAttempts
		}
		return nil
	})
}

func (s *Service) SetTimeouts(ctx context.Context, guildID, actorID string, update TimeoutsUpdate) (*models.GuildConfig, error) {
	if update.ChallengeTimeout == nil && update.ReviewTimeout == nil {
		return nil, dErrors.New(dErrors.CodeValidation, "Provide at least one timeout to update.")
	}
	for _, d := range []*time.Duration{update.ChallengeTimeout, update.ReviewTimeout} {
		if d == nil || *d == 0 {
			continue
		}
		if *d < time.Minute || *d > MaxTimeout {
			return nil, dErrors.New(dErrors.CodeValidation, "Timeouts must be 0 (disabled) or between 1 minute and 30 days.")
		}
	}

	return s.updateConfig(ctx, guildID, actorID, "timeouts", func(cfg *models.GuildConfig) error {
		if update.ChallengeTimeout != nil {
			cfg.ChallengeTimeout = *update.ChallengeTimeout
		}
		if update.ReviewTimeout != nil {
			cfg.ReviewTimeout = *update.ReviewTimeout
		}
		return nil
	})
}

// SetLogChannel sets the mod-log channel; an empty id turns the mod-log off.
func (s *Service) SetLogChannel(ctx context.Context, guildID, actorID, channelID string) (*models.GuildConfig, error) {
	return s.updateConfig(ctx, guildID, actorID, "log_channel", func(cfg *models.GuildConfig) error {
		cfg.LogChannelID = channelID
		return nil
	})
}

// SetOnJoinRole sets the role every arrival receives; an empty id clears it.
func (s *Service) SetOnJoinRole(ctx context.Context, guildID, actorID, roleID string) (*models.GuildConfig, error) {
	if roleID != "" {
		caps, err := s.platform.Capabilities(ctx, guildID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read bot permissions")
		}
		if !caps.Permissions.Has(models.PermManageRoles) {
			return nil, dErrors.New(dErrors.CodeConfiguration, "I need the **Manage Roles** permission to assign the on-join role.")
		}
		if err := s.checkManageableRole(ctx, guildID, roleID, caps, "My highest role must be above the on-join role."); err != nil {
			return nil, err
		}
	}
	return s.updateConfig(ctx, guildID, actorID, "on_join_role", func(cfg *models.GuildConfig) error {
		cfg.OnJoinRoleID = roleID
		return nil
	})
}

// PostPanel posts the "Start Verification" message to the verify channel.
func (s *Service) PostPanel(ctx context.Context, guildID string) (*models.MessageRef, error) {
	cfg, err := s.Config(ctx, guildID)
	if err != nil {
		return nil, err
	}
	switch {
	case !cfg.Enabled:
		return nil, dErrors.New(dErrors.CodeConfiguration, "Enable verification first.")
	case cfg.VerifyChannelID == "" || cfg.ReviewChannelID == "":
		return nil, dErrors.New(dErrors.CodeConfiguration, "Set verification channels first.")
	case !cfg.RolesConfigured():
		return nil, dErrors.New(dErrors.CodeConfiguration, "Set verification roles first.")
	}

	ref, err := s.platform.SendMessage(ctx, cfg.VerifyChannelID, panelMessage(requestcontext.Now(ctx)))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "Verify channel is missing or inaccessible.")
	}
	return ref, nil
}

func (s *Service) checkManageableRole(ctx context.Context, guildID, roleID string, caps *models.BotCapabilities, tooHigh string) error {
	pos, err := s.platform.RolePosition(ctx, guildID, roleID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeValidation, "Role not found in this server.")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read role")
	}
	if pos >= caps.HighestRolePosition {
		return dErrors.New(dErrors.CodeConfiguration, tooHigh)
	}
	return nil
}

func (s *Service) updateConfig(ctx context.Context, guildID, actorID, field string, mutate func(cfg *models.GuildConfig) error) (*models.GuildConfig, error) {
	if guildID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "guild ID required")
	}
	cfg, err := s.configs.Update(ctx, guildID, mutate)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification config")
	}
	if actorID == "" {
		actorID = audit.SystemActor
	}
	s.logAudit(ctx, audit.Event{
		GuildID:  guildID,
		ActorID:  actorID,
		Action:   string(models.ActionConfigChanged),
		Reason:   "Verification " + field + " updated",
		Metadata: map[string]string{"field": field},
	})
	return cfg, nil
}
