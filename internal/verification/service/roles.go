package service

import (
	"context"
	"errors"

	"gatekeeper/internal/verification/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/sentinel"
)

// checkRoleHierarchy verifies the bot may move member between the verified
// and unverified roles. The returned error is a configuration problem that
// moderators can act on.
func (s *Service) checkRoleHierarchy(ctx context.Context, cfg *models.GuildConfig, member *models.Member) (*models.BotCapabilities, error) {
	if !cfg.RolesConfigured() {
		return nil, dErrors.New(dErrors.CodeConfiguration, "Verification roles are not fully configured.")
	}

	caps, err := s.platform.Capabilities(ctx, cfg.GuildID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "Unable to read bot permissions.")
	}
	if !caps.Permissions.Has(models.PermManageRoles) {
		return nil, dErrors.New(dErrors.CodeConfiguration, "Bot is missing Manage Roles permission.")
	}
	if !caps.CanManage(member) {
		return nil, dErrors.New(dErrors.CodeConfiguration, "Bot role is not high enough to manage this member.")
	}

	for _, roleID := range []string{cfg.VerifiedRoleID, cfg.UnverifiedRoleID} {
		pos, err := s.platform.RolePosition(ctx, cfg.GuildID, roleID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeConfiguration, "Configured verification roles were not found.")
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "Unable to read verification roles.")
		}
		if pos >= caps.HighestRolePosition {
			return nil, dErrors.New(dErrors.CodeConfiguration, "Bot role must be higher than verified and unverified roles.")
		}
	}
	return caps, nil
}

// applyVerifiedRoles grants the verified role and drops the unverified one.
func (s *Service) applyVerifiedRoles(ctx context.Context, cfg *models.GuildConfig, member *models.Member, reason string) error {
	if _, err := s.checkRoleHierarchy(ctx, cfg, member); err != nil {
		return err
	}

	userID := member.User.ID
	if err := s.platform.AddRole(ctx, cfg.GuildID, userID, cfg.VerifiedRoleID, reason); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "Failed to grant the verified role.")
	}
	if member.HasRole(cfg.UnverifiedRoleID) {
		if err := s.platform.RemoveRole(ctx, cfg.GuildID, userID, cfg.UnverifiedRoleID, reason); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "Failed to remove the unverified role.")
		}
	}
	return nil
}

// applyUnverifiedRoles drops the verified role if held and (re)applies the
// unverified one.
func (s *Service) applyUnverifiedRoles(ctx context.Context, cfg *models.GuildConfig, member *models.Member, reason string) error {
	if _, err := s.checkRoleHierarchy(ctx, cfg, member); err != nil {
		return err
	}

	userID := member.User.ID
	if member.HasRole(cfg.VerifiedRoleID) {
		if err := s.platform.RemoveRole(ctx, cfg.GuildID, userID, cfg.VerifiedRoleID, reason); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "Failed to remove the verified role.")
		}
	}
	if !member.HasRole(cfg.UnverifiedRoleID) {
		if err := s.platform.AddRole(ctx, cfg.GuildID, userID, cfg.UnverifiedRoleID, reason); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "Failed to apply the unverified role.")
		}
	}
	return nil
}
