package discord

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"gatekeeper/internal/verification/models"
	"gatekeeper/pkg/platform/sentinel"
)

// mapError turns Discord 404s into sentinel.ErrNotFound so the engine can
// treat departed members and deleted messages as facts, not failures.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if errors.As(err, &rest) && rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", sentinel.ErrNotFound, rest.Error())
	}
	return err
}

func toPermissions(bits int64) models.Permission {
	var p models.Permission
	if bits&discordgo.PermissionAdministrator != 0 {
		p |= models.PermAdministrator
	}
	if bits&discordgo.PermissionManageRoles != 0 {
		p |= models.PermManageRoles
	}
	if bits&discordgo.PermissionKickMembers != 0 {
		p |= models.PermKickMembers
	}
	if bits&discordgo.PermissionModerateMembers != 0 {
		p |= models.PermModerateMembers
	}
	return p
}

// roleIndex answers position and permission questions about a guild's roles.
type roleIndex struct {
	guildID string
	ownerID string
	roles   map[string]*discordgo.Role
}

func newRoleIndex(guild *discordgo.Guild) roleIndex {
	idx := roleIndex{guildID: guild.ID, ownerID: guild.OwnerID, roles: make(map[string]*discordgo.Role, len(guild.Roles))}
	for _, r := range guild.Roles {
		idx.roles[r.ID] = r
	}
	return idx
}

func (idx roleIndex) highestPosition(roleIDs []string) int {
	highest := 0
	for _, id := range roleIDs {
		if r, ok := idx.roles[id]; ok && r.Position > highest {
			highest = r.Position
		}
	}
	return highest
}

// permissions is the guild-level permission set of a member: @everyone plus
// every role they hold. The owner implicitly holds everything.
func (idx roleIndex) permissions(userID string, roleIDs []string) int64 {
	if userID != "" && userID == idx.ownerID {
		return discordgo.PermissionAll
	}
	var bits int64
	if everyone, ok := idx.roles[idx.guildID]; ok {
		bits |= everyone.Permissions
	}
	for _, id := range roleIDs {
		if r, ok := idx.roles[id]; ok {
			bits |= r.Permissions
		}
	}
	return bits
}

func toMember(guildID string, m *discordgo.Member, idx roleIndex) *models.Member {
	out := &models.Member{
		GuildID:             guildID,
		JoinedAt:            m.JoinedAt,
		RoleIDs:             append([]string(nil), m.Roles...),
		HighestRolePosition: idx.highestPosition(m.Roles),
	}
	if m.User != nil {
		out.User = toUser(m.User)
		out.IsOwner = m.User.ID == idx.ownerID
		if m.Nick != "" {
			out.User.DisplayName = m.Nick
		}
	}
	return out
}

func toUser(u *discordgo.User) models.User {
	created, _ := discordgo.SnowflakeTimestamp(u.ID)
	display := u.GlobalName
	if display == "" {
		display = u.Username
	}
	return models.User{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: display,
		AvatarHash:  u.Avatar,
		Bot:         u.Bot,
		CreatedAt:   created,
	}
}

func toButtonStyle(s models.ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case models.ButtonSecondary:
		return discordgo.SecondaryButton
	case models.ButtonSuccess:
		return discordgo.SuccessButton
	case models.ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func fromButtonStyle(s discordgo.ButtonStyle) models.ButtonStyle {
	switch s {
	case discordgo.SecondaryButton:
		return models.ButtonSecondary
	case discordgo.SuccessButton:
		return models.ButtonSuccess
	case discordgo.DangerButton:
		return models.ButtonDanger
	default:
		return models.ButtonPrimary
	}
}

// toComponents lays buttons out in one action row, which holds up to five.
func toComponents(buttons []models.Button) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return nil
	}
	row := discordgo.ActionsRow{}
	for _, b := range buttons {
		row.Components = append(row.Components, discordgo.Button{
			CustomID: b.CustomID,
			Label:    b.Label,
			Style:    toButtonStyle(b.Style),
			Disabled: b.Disabled,
		})
	}
	return []discordgo.MessageComponent{row}
}

func fromComponents(components []discordgo.MessageComponent) []models.Button {
	var out []models.Button
	for _, c := range components {
		var children []discordgo.MessageComponent
		switch row := c.(type) {
		case *discordgo.ActionsRow:
			children = row.Components
		case discordgo.ActionsRow:
			children = row.Components
		}
		for _, child := range children {
			var b *discordgo.Button
			switch v := child.(type) {
			case *discordgo.Button:
				b = v
			case discordgo.Button:
				b = &v
			}
			if b == nil {
				continue
			}
			out = append(out, models.Button{
				CustomID: b.CustomID,
				Label:    b.Label,
				Style:    fromButtonStyle(b.Style),
				Disabled: b.Disabled,
			})
		}
	}
	return out
}

func toEmbeds(embeds []models.Embed) []*discordgo.MessageEmbed {
	if len(embeds) == 0 {
		return nil
	}
	out := make([]*discordgo.MessageEmbed, 0, len(embeds))
	for _, e := range embeds {
		me := &discordgo.MessageEmbed{
			Title:       e.Title,
			Description: e.Description,
			Color:       e.Color,
		}
		for _, f := range e.Fields {
			me.Fields = append(me.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
		}
		if e.ImageName != "" {
			me.Image = &discordgo.MessageEmbedImage{URL: "attachment://" + e.ImageName}
		}
		if e.Footer != "" {
			me.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
		}
		if !e.Timestamp.IsZero() {
			me.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
		}
		out = append(out, me)
	}
	return out
}

// fromEmbeds keeps what the engine needs to rebuild a record; the image of a
// posted embed is already hosted by the platform and is not carried back.
func fromEmbeds(embeds []*discordgo.MessageEmbed) []models.Embed {
	out := make([]models.Embed, 0, len(embeds))
	for _, me := range embeds {
		if me == nil {
			continue
		}
		e := models.Embed{
			Title:       me.Title,
			Description: me.Description,
			Color:       me.Color,
		}
		for _, f := range me.Fields {
			if f != nil {
				e.Fields = append(e.Fields, models.EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
			}
		}
		if me.Footer != nil {
			e.Footer = me.Footer.Text
		}
		if ts, err := time.Parse(time.RFC3339, me.Timestamp); err == nil {
			e.Timestamp = ts
		}
		out = append(out, e)
	}
	return out
}

func toFiles(files []models.Attachment) []*discordgo.File {
	out := make([]*discordgo.File, 0, len(files))
	for _, f := range files {
		out = append(out, &discordgo.File{
			Name:        f.Name,
			ContentType: f.ContentType,
			Reader:      bytes.NewReader(f.Data),
		})
	}
	return out
}

func toPostedMessage(m *discordgo.Message) *models.PostedMessage {
	return &models.PostedMessage{
		Ref:     models.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID},
		Content: m.Content,
		Embeds:  fromEmbeds(m.Embeds),
		Buttons: fromComponents(m.Components),
	}
}
