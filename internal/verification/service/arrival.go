package service

import (
	"context"
	"errors"

	"gatekeeper/internal/verification/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/sentinel"
	"gatekeeper/pkg/requestcontext"
)

// HandleArrival runs when a member joins a guild. It assigns the on-join role
// if one is configured and, when verification is on, applies the unverified
// role, attributes the invite, and starts a fresh PENDING cycle.
//
// Missing permissions and hierarchy problems are logged and leave the member
// untracked; they are configuration issues, not arrival failures.
func (s *Service) HandleArrival(ctx context.Context, member *models.Member) (*ArrivalResult, error) {
	if member == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "member is required")
	}
	guildID, userID := member.GuildID, member.User.ID
	ctx, span := s.startSpan(ctx, "HandleArrival", guildID, userID)
	defer span.End()

	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load verification config")
	}
	verifying := cfg.Enabled && cfg.UnverifiedRoleID != ""
	if cfg.OnJoinRoleID == "" && !verifying {
		return &ArrivalResult{}, nil
	}

	caps, err := s.platform.Capabilities(ctx, guildID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read bot permissions")
	}
	if !caps.Permissions.Has(models.PermManageRoles) {
		s.logger.WarnContext(ctx, "missing Manage Roles permission for role assignment on join", "guild_id", guildID)
		return &ArrivalResult{}, nil
	}

	if cfg.OnJoinRoleID != "" {
		s.assignOnJoinRole(ctx, cfg, caps, member)
	}
	if !verifying {
		return &ArrivalResult{}, nil
	}

	pos, err := s.platform.RolePosition(ctx, guildID, cfg.UnverifiedRoleID)
	if errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "unverified role not found",
			"guild_id", guildID,
			"role_id", cfg.UnverifiedRoleID,
		)
		return &ArrivalResult{}, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read unverified role")
	}
	if pos >= caps.HighestRolePosition {
		s.logger.WarnContext(ctx, "cannot assign unverified role: role hierarchy is too high", "guild_id", guildID)
		return &ArrivalResult{}, nil
	}
	if !caps.CanManage(member) {
		s.logger.WarnContext(ctx, "cannot manage member: role hierarchy is too high",
			"guild_id", guildID,
			"user_id", userID,
		)
		return &ArrivalResult{}, nil
	}

	if !member.HasRole(cfg.UnverifiedRoleID) {
		if err := s.platform.AddRole(ctx, guildID, userID, cfg.UnverifiedRoleID, "Auto-assign unverified role on join"); err != nil {
			s.logger.ErrorContext(ctx, "failed to auto-assign unverified role",
				"guild_id", guildID,
				"user_id", userID,
				"error", err,
			)
			return &ArrivalResult{}, nil
		}
	}

	var inviteCode string
	if s.invites != nil {
		inviteCode, err = s.invites.Resolve(ctx, guildID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to resolve invite for arrival",
				"guild_id", guildID,
				"user_id", userID,
				"error", err,
			)
		}
	}

	unlock, err := s.lockActor(ctx, guildID, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	now := requestcontext.Now(ctx)
	var openReview *models.MessageRef
	st, err := s.states.Upsert(ctx, guildID, userID, func(st *models.VerificationState) error {
		if st.Status == models.StatusManualReview && st.ReviewMessageRef != nil {
			ref := *st.ReviewMessageRef
			openReview = &ref
		}
		st.ResetForArrival(now)
		st.InviteCode = inviteCode
		return nil
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save verification state")
	}
	s.closeRecord(ctx, openReview, "Manual Review Closed", models.ActionRecheck,
		"Member rejoined before a decision; a new verification cycle started.")

	s.logger.InfoContext(ctx, "member arrival tracked",
		"guild_id", guildID,
		"user_id", userID,
		"invite_code", inviteCode,
	)
	return &ArrivalResult{InviteCode: inviteCode, State: st, Tracked: true}, nil
}

func (s *Service) assignOnJoinRole(ctx context.Context, cfg *models.GuildConfig, caps *models.BotCapabilities, member *models.Member) {
	pos, err := s.platform.RolePosition(ctx, cfg.GuildID, cfg.OnJoinRoleID)
	if err != nil {
		s.logger.WarnContext(ctx, "on-join role not available",
			"guild_id", cfg.GuildID,
			"role_id", cfg.OnJoinRoleID,
			"error", err,
		)
		return
	}
	if pos >= caps.HighestRolePosition {
		s.logger.WarnContext(ctx, "cannot assign on-join role: role hierarchy is too high", "guild_id", cfg.GuildID)
		return
	}
	if member.HasRole(cfg.OnJoinRoleID) {
		return
	}
	if err := s.platform.AddRole(ctx, cfg.GuildID, member.User.ID, cfg.OnJoinRoleID, "Auto-assign on-join role"); err != nil {
		s.logger.ErrorContext(ctx, "failed to auto-assign on-join role",
			"guild_id", cfg.GuildID,
			"user_id", member.User.ID,
			"error", err,
		)
	}
}

// HandleCommunityJoin seeds the invite baseline for a guild the engine was
// added to (or saw on startup).
func (s *Service) HandleCommunityJoin(ctx context.Context, guildID string) error {
	if s.invites == nil {
		return nil
	}
	if err := s.invites.Refresh(ctx, guildID); err != nil {
		s.logger.WarnContext(ctx, "failed to cache invites", "guild_id", guildID, "error", err)
		return err
	}
	return nil
}

// HandleCommunityLeave drops in-memory state for a guild the engine left.
func (s *Service) HandleCommunityLeave(_ context.Context, guildID string) {
	if s.invites != nil {
		s.invites.Forget(guildID)
	}
}
