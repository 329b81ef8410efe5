package service

import (
	"context"

	"gatekeeper/internal/verification/models"
	"gatekeeper/pkg/platform/audit"
	"gatekeeper/pkg/requestcontext"
)

// modAction is one verification decision as recorded in the audit trail and
// the guild's mod-log channel.
type modAction struct {
	action      models.ActionType
	userID      string
	moderatorID string
	reason      string
	// extra is shown as a Details field in the mod-log only.
	extra    string
	metadata map[string]string
	// silent skips the mod-log post; the audit event is always emitted.
	silent bool
}

// record audits a decision and mirrors it to the mod-log channel.
func (s *Service) record(ctx context.Context, cfg *models.GuildConfig, a modAction) {
	actor := a.moderatorID
	if actor == "" {
		actor = audit.SystemActor
	}
	s.logAudit(ctx, audit.Event{
		GuildID:  cfg.GuildID,
		UserID:   a.userID,
		ActorID:  actor,
		Action:   string(a.action),
		Reason:   a.reason,
		Metadata: a.metadata,
	})
	if !a.silent {
		s.postModLog(ctx, cfg, a)
	}
}

// postModLog is best effort: a missing or unreachable log channel never
// fails the action being logged.
func (s *Service) postModLog(ctx context.Context, cfg *models.GuildConfig, a modAction) {
	if cfg.LogChannelID == "" {
		return
	}

	moderator := "System"
	if a.moderatorID != "" {
		moderator = mention(a.moderatorID)
	}
	reason := a.reason
	if reason == "" {
		reason = "No reason provided"
	}

	embed := models.Embed{
		Title: string(a.action),
		Color: colorFor(a.action),
		Fields: []models.EmbedField{
			{Name: "User", Value: mention(a.userID) + " (" + a.userID + ")", Inline: true},
			{Name: "Moderator", Value: moderator, Inline: true},
			{Name: "Reason", Value: reason},
		},
		Footer:    embedFooter,
		Timestamp: requestcontext.Now(ctx),
	}
	if a.extra != "" {
		embed.Fields = append(embed.Fields, models.EmbedField{Name: "Details", Value: a.extra})
	}

	if _, err := s.platform.SendMessage(ctx, cfg.LogChannelID, models.OutboundMessage{Embeds: []models.Embed{embed}}); err != nil {
		s.logger.WarnContext(ctx, "failed to post mod log",
			"guild_id", cfg.GuildID,
			"channel_id", cfg.LogChannelID,
			"action", a.action,
			"error", err,
		)
	}
}
