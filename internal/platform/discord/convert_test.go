package discord

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gatekeeper/internal/verification/models"
	"gatekeeper/pkg/platform/sentinel"
)

func testGuildWithRoles() *discordgo.Guild {
	return &discordgo.Guild{
		ID:      "g1",
		OwnerID: "owner",
		Roles: []*discordgo.Role{
			{ID: "g1", Position: 0, Permissions: discordgo.PermissionViewChannel},
			{ID: "mods", Position: 8, Permissions: discordgo.PermissionModerateMembers | discordgo.PermissionKickMembers},
			{ID: "bots", Position: 12, Permissions: discordgo.PermissionManageRoles},
		},
	}
}

func TestMapError(t *testing.T) {
	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}, ResponseBody: []byte(`{"message":"Unknown Member"}`)}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}, ResponseBody: []byte(`{"message":"Missing Access"}`)}

	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(fmt.Errorf("fetch member: %w", notFound)), sentinel.ErrNotFound)
	assert.NotErrorIs(t, mapError(forbidden), sentinel.ErrNotFound)
	assert.Equal(t, io.EOF, mapError(io.EOF))
	assert.False(t, errors.Is(mapError(io.EOF), sentinel.ErrNotFound))
}

func TestRoleIndex(t *testing.T) {
	idx := newRoleIndex(testGuildWithRoles())

	assert.Equal(t, 12, idx.highestPosition([]string{"mods", "bots", "gone"}))
	assert.Zero(t, idx.highestPosition(nil))

	perms := toPermissions(idx.permissions("bot", []string{"bots"}))
	assert.True(t, perms.Has(models.PermManageRoles))
	assert.False(t, perms.Has(models.PermKickMembers))

	owner := toPermissions(idx.permissions("owner", nil))
	assert.True(t, owner.Has(models.PermAdministrator))
	assert.True(t, owner.Has(models.PermKickMembers))
}

func TestToMember(t *testing.T) {
	joined := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	m := &discordgo.Member{
		Nick:     "Nick",
		JoinedAt: joined,
		Roles:    []string{"mods"},
		User:     &discordgo.User{ID: "175928847299117063", Username: "someone", GlobalName: "Someone", Avatar: "a1"},
	}

	member := toMember("g1", m, newRoleIndex(testGuildWithRoles()))

	assert.Equal(t, "g1", member.GuildID)
	assert.Equal(t, "Nick", member.User.DisplayName)
	assert.Equal(t, "someone", member.User.Username)
	assert.Equal(t, "a1", member.User.AvatarHash)
	assert.Equal(t, 8, member.HighestRolePosition)
	assert.Equal(t, joined, member.JoinedAt)
	assert.False(t, member.IsOwner)
	assert.Equal(t, 2016, member.User.CreatedAt.Year())
}

func TestToUserFallsBackToUsername(t *testing.T) {
	u := toUser(&discordgo.User{ID: "1", Username: "plain"})
	assert.Equal(t, "plain", u.DisplayName)
}

func TestComponentsRoundTripButtons(t *testing.T) {
	buttons := []models.Button{
		{CustomID: models.StartID(), Label: "Start", Style: models.ButtonSuccess},
		{CustomID: "x", Label: "Off", Style: models.ButtonDanger, Disabled: true},
	}

	assert.Equal(t, buttons, fromComponents(toComponents(buttons)))
	assert.Nil(t, toComponents(nil))
}

func TestEmbedsReferenceAttachedImage(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	embeds := toEmbeds([]models.Embed{{
		Title:     "Verification Challenge",
		ImageName: "challenge.png",
		Footer:    "Gatekeeper",
		Timestamp: now,
		Fields:    []models.EmbedField{{Name: "User", Value: "<@u1>", Inline: true}},
	}})

	require.Len(t, embeds, 1)
	assert.Equal(t, "attachment://challenge.png", embeds[0].Image.URL)
	assert.Equal(t, "2025-03-10T12:00:00Z", embeds[0].Timestamp)

	back := fromEmbeds(embeds)
	require.Len(t, back, 1)
	assert.Equal(t, now, back[0].Timestamp)
	assert.Equal(t, "Gatekeeper", back[0].Footer)
	assert.Empty(t, back[0].ImageName)
}

func TestToPostedMessage(t *testing.T) {
	posted := toPostedMessage(&discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		Content:   "hello",
		Components: []discordgo.MessageComponent{
			&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				&discordgo.Button{CustomID: "a", Label: "A", Style: discordgo.PrimaryButton},
			}},
		},
	})

	assert.Equal(t, models.MessageRef{ChannelID: "c1", MessageID: "m1"}, posted.Ref)
	assert.Equal(t, []models.Button{{CustomID: "a", Label: "A", Style: models.ButtonPrimary}}, posted.Buttons)
}

func TestToFiles(t *testing.T) {
	files := toFiles([]models.Attachment{{Name: "a.png", ContentType: "image/png", Data: []byte{1, 2}}})

	require.Len(t, files, 1)
	data, err := io.ReadAll(files[0].Reader)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)
}
