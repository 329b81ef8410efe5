package models

import (
	"slices"
	"time"
)

// User is the platform-global identity of an actor.
type User struct {
	ID          string
	Username    string
	DisplayName string
	AvatarHash  string
	Bot         bool
	CreatedAt   time.Time
}

func (u User) Mention() string {
	return "<@" + u.ID + ">"
}

// Tag is the most human-friendly name available for the actor.
func (u User) Tag() string {
	if u.DisplayName != "" && u.DisplayName != u.Username {
		return u.DisplayName + " (" + u.Username + ")"
	}
	return u.Username
}

// Member is an actor's presence in one community.
type Member struct {
	GuildID  string
	User     User
	JoinedAt time.Time
	RoleIDs  []string
	// HighestRolePosition is the position of the member's top role; 0 when
	// the member only holds @everyone.
	HighestRolePosition int
	IsOwner             bool
}

func (m *Member) HasRole(roleID string) bool {
	if m == nil || roleID == "" {
		return false
	}
	return slices.Contains(m.RoleIDs, roleID)
}

// Permission is a platform-neutral permission bit.
type Permission uint64

const (
	PermManageRoles Permission = 1 << iota
	PermKickMembers
	PermModerateMembers
	PermAdministrator
)

func (p Permission) Has(want Permission) bool {
	if p&PermAdministrator != 0 {
		return true
	}
	return p&want == want
}

// BotCapabilities is what the engine is allowed to do in a community.
type BotCapabilities struct {
	UserID              string
	Permissions         Permission
	HighestRolePosition int
}

// CanManage reports whether the bot's top role sits above the member's.
func (c BotCapabilities) CanManage(m *Member) bool {
	if m == nil || m.IsOwner {
		return false
	}
	return c.HighestRolePosition > m.HighestRolePosition
}

// Invite is a snapshot of one invite code's usage.
type Invite struct {
	Code    string
	Uses    int
	MaxUses int
}

// ButtonStyle mirrors the platform's component styles.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota + 1
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

type Button struct {
	CustomID string
	Label    string
	Style    ButtonStyle
	Disabled bool
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	// ImageName references an attachment of the same message by filename.
	ImageName string
	Footer    string
	Timestamp time.Time
}

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// OutboundMessage is a message the engine asks the platform to post.
type OutboundMessage struct {
	Content string
	Embeds  []Embed
	Buttons []Button
	Files   []Attachment
}

// PostedMessage is a message as it currently exists on the platform.
type PostedMessage struct {
	Ref     MessageRef
	Content string
	Embeds  []Embed
	Buttons []Button
}

// DisabledButtons returns a copy of the buttons with every control disabled.
func (m *PostedMessage) DisabledButtons() []Button {
	out := make([]Button, len(m.Buttons))
	for i, b := range m.Buttons {
		b.Disabled = true
		out[i] = b
	}
	return out
}
