package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"gatekeeper/internal/verification/models"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/platform/sentinel"
	"gatekeeper/pkg/requestcontext"
)

// CanRemoveMembers reports whether the engine may kick members of the guild.
func (s *Service) CanRemoveMembers(ctx context.Context, guildID string) (bool, error) {
	caps, err := s.platform.Capabilities(ctx, guildID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read bot permissions")
	}
	return caps.Permissions.Has(models.PermKickMembers), nil
}

// RemoveUnverified removes a member whose admission cycle ended without
// verification: PENDING or CHALLENGE past the challenge timeout, REJECTED,
// or REVIEW_EXPIRED. Eligibility is re-checked under the member's lock, so
// a member who verified after the sweep listed them is left alone.
//
// A member who already left is cleaned up and reported as departed, not as
// an error.
func (s *Service) RemoveUnverified(ctx context.Context, guildID, userID string) (RemovalOutcome, error) {
	ctx, span := s.startSpan(ctx, "RemoveUnverified", guildID, userID)
	defer span.End()

	cfg, err := s.configs.Get(ctx, guildID)
	if err != nil {
		return RemovalSkipped, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load verification config")
	}

	unlock, err := s.lockActor(ctx, guildID, userID)
	if err != nil {
		return RemovalSkipped, err
	}
	defer unlock()

	st, err := s.states.Get(ctx, guildID, userID)
	if err != nil {
		return RemovalSkipped, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load verification state")
	}
	if st == nil || !removable(cfg, st, requestcontext.Now(ctx)) {
		return RemovalIneligible, nil
	}

	member, err := s.platform.FetchMember(ctx, guildID, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return s.departed(ctx, guildID, userID)
	}
	if err != nil {
		s.incrementRemovalFailures()
		return RemovalSkipped, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to fetch member")
	}

	caps, err := s.platform.Capabilities(ctx, guildID)
	if err != nil {
		s.incrementRemovalFailures()
		return RemovalSkipped, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to read bot permissions")
	}
	if !caps.Permissions.Has(models.PermKickMembers) {
		s.logger.WarnContext(ctx, "missing Kick Members permission, skipping removal",
			"guild_id", guildID,
			"user_id", userID,
		)
		return RemovalSkipped, nil
	}
	if !caps.CanManage(member) {
		s.logger.WarnContext(ctx, "member is above the bot in the role hierarchy, skipping removal",
			"guild_id", guildID,
			"user_id", userID,
			"status", st.Status,
		)
		return RemovalSkipped, nil
	}

	reason := "Failed to pass manual review process"
	if st.Status == models.StatusPending || st.Status == models.StatusChallenge {
		reason = "Failed to complete verification within " + formatDuration(cfg.ChallengeTimeout)
	}

	err = s.platform.RemoveMember(ctx, guildID, userID, reason)
	if errors.Is(err, sentinel.ErrNotFound) {
		return s.departed(ctx, guildID, userID)
	}
	if err != nil {
		s.incrementRemovalFailures()
		return RemovalSkipped, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to remove member")
	}

	previous := st.Status
	_, err = s.states.Upsert(ctx, guildID, userID, func(st *models.VerificationState) error {
		if !models.CanTransition(st.Status, models.StatusKicked) {
			return sentinel.ErrInvalidState
		}
		st.Status = models.StatusKicked
		return nil
	})
	if err != nil {
		// The member is gone either way; the row catches up on their next arrival.
		s.logger.ErrorContext(ctx, "failed to mark removed member as kicked",
			"guild_id", guildID,
			"user_id", userID,
			"error", err,
		)
	}

	s.incrementRemovals(strings.ToLower(string(previous)))
	s.record(ctx, cfg, modAction{
		action:   models.ActionKick,
		userID:   userID,
		reason:   reason,
		extra:    "Status was **" + string(previous) + "** since " + formatTimestamp(st.CreatedAt),
		metadata: map[string]string{"previous_status": string(previous)},
	})
	return RemovalRemoved, nil
}

// removable reports whether st is due for removal at now.
func removable(cfg *models.GuildConfig, st *models.VerificationState, now time.Time) bool {
	switch st.Status {
	case models.StatusRejected, models.StatusReviewExpired:
		return true
	case models.StatusPending, models.StatusChallenge:
		return cfg.ChallengeTimeout > 0 && !now.Before(st.CreatedAt.Add(cfg.ChallengeTimeout))
	}
	return false
}

func (s *Service) departed(ctx context.Context, guildID, userID string) (RemovalOutcome, error) {
	if err := s.states.Delete(ctx, guildID, userID); err != nil {
		return RemovalSkipped, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete verification state")
	}
	s.logger.InfoContext(ctx, "member left before removal, state cleared",
		"guild_id", guildID,
		"user_id", userID,
	)
	return RemovalDeparted, nil
}
