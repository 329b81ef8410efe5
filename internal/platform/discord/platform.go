// Package discord adapts the verification engine to Discord through discordgo:
// Platform implements the engine's platform port over the REST API, and
// Router turns gateway events and component interactions into engine calls.
package discord

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"gatekeeper/internal/verification/models"
	"gatekeeper/pkg/platform/sentinel"
)

// Intents the bot needs: guild lifecycle, member arrivals, and invite usage.
const Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMembers | discordgo.IntentsGuildInvites

type Platform struct {
	session *discordgo.Session
}

func NewPlatform(session *discordgo.Session) *Platform {
	return &Platform{session: session}
}

// guild prefers the gateway cache and falls back to REST.
func (p *Platform) guild(ctx context.Context, guildID string) (*discordgo.Guild, error) {
	if p.session.State != nil {
		if g, err := p.session.State.Guild(guildID); err == nil && len(g.Roles) > 0 {
			return g, nil
		}
	}
	g, err := p.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return g, nil
}

func (p *Platform) botUserID() (string, error) {
	if p.session.State == nil || p.session.State.User == nil {
		return "", errors.New("discord session is not ready")
	}
	return p.session.State.User.ID, nil
}

func (p *Platform) FetchMember(ctx context.Context, guildID, userID string) (*models.Member, error) {
	g, err := p.guild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	m, err := p.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return toMember(guildID, m, newRoleIndex(g)), nil
}

// ConvertMember builds the engine's view of a member delivered by a gateway event.
func (p *Platform) ConvertMember(ctx context.Context, m *discordgo.Member) (*models.Member, error) {
	g, err := p.guild(ctx, m.GuildID)
	if err != nil {
		return nil, err
	}
	return toMember(m.GuildID, m, newRoleIndex(g)), nil
}

func (p *Platform) Capabilities(ctx context.Context, guildID string) (*models.BotCapabilities, error) {
	botID, err := p.botUserID()
	if err != nil {
		return nil, err
	}
	g, err := p.guild(ctx, guildID)
	if err != nil {
		return nil, err
	}
	me, err := p.session.GuildMember(guildID, botID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	idx := newRoleIndex(g)
	return &models.BotCapabilities{
		UserID:              botID,
		Permissions:         toPermissions(idx.permissions(botID, me.Roles)),
		HighestRolePosition: idx.highestPosition(me.Roles),
	}, nil
}

func (p *Platform) RolePosition(ctx context.Context, guildID, roleID string) (int, error) {
	g, err := p.guild(ctx, guildID)
	if err != nil {
		return 0, err
	}
	for _, r := range g.Roles {
		if r.ID == roleID {
			return r.Position, nil
		}
	}
	return 0, fmt.Errorf("role %s: %w", roleID, sentinel.ErrNotFound)
}

func (p *Platform) AddRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return mapError(p.session.GuildMemberRoleAdd(guildID, userID, roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason)))
}

func (p *Platform) RemoveRole(ctx context.Context, guildID, userID, roleID, reason string) error {
	return mapError(p.session.GuildMemberRoleRemove(guildID, userID, roleID,
		discordgo.WithContext(ctx), discordgo.WithAuditLogReason(reason)))
}

func (p *Platform) RemoveMember(ctx context.Context, guildID, userID, reason string) error {
	return mapError(p.session.GuildMemberDeleteWithReason(guildID, userID, reason, discordgo.WithContext(ctx)))
}

func (p *Platform) SendMessage(ctx context.Context, channelID string, msg models.OutboundMessage) (*models.MessageRef, error) {
	sent, err := p.session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content:    msg.Content,
		Embeds:     toEmbeds(msg.Embeds),
		Components: toComponents(msg.Buttons),
		Files:      toFiles(msg.Files),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Parse: []discordgo.AllowedMentionType{},
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return &models.MessageRef{ChannelID: sent.ChannelID, MessageID: sent.ID}, nil
}

func (p *Platform) FetchMessage(ctx context.Context, ref models.MessageRef) (*models.PostedMessage, error) {
	m, err := p.session.ChannelMessage(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	return toPostedMessage(m), nil
}

func (p *Platform) EditMessage(ctx context.Context, ref models.MessageRef, embeds []models.Embed, buttons []models.Button) error {
	e := toEmbeds(embeds)
	c := toComponents(buttons)
	if c == nil {
		c = []discordgo.MessageComponent{}
	}
	_, err := p.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         ref.MessageID,
		Channel:    ref.ChannelID,
		Embeds:     &e,
		Components: &c,
	}, discordgo.WithContext(ctx))
	return mapError(err)
}

func (p *Platform) ReplyMessage(ctx context.Context, ref models.MessageRef, content string) error {
	_, err := p.session.ChannelMessageSendReply(ref.ChannelID, content, &discordgo.MessageReference{
		MessageID: ref.MessageID,
		ChannelID: ref.ChannelID,
	}, discordgo.WithContext(ctx))
	return mapError(err)
}

func (p *Platform) ListInvites(ctx context.Context, guildID string) ([]models.Invite, error) {
	invites, err := p.session.GuildInvites(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, mapError(err)
	}
	out := make([]models.Invite, 0, len(invites))
	for _, inv := range invites {
		out = append(out, models.Invite{Code: inv.Code, Uses: inv.Uses, MaxUses: inv.MaxUses})
	}
	return out, nil
}
