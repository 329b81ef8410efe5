// Package platformtest provides an in-memory chat platform for exercising the
// verification engine without a gateway connection.
package platformtest

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"gatekeeper/internal/verification/models"
	"gatekeeper/pkg/platform/sentinel"
)

// Op names a Platform method for failure injection.
type Op string

const (
	OpFetchMember  Op = "FetchMember"
	OpCapabilities Op = "Capabilities"
	OpAddRole      Op = "AddRole"
	OpRemoveRole   Op = "RemoveRole"
	OpRemoveMember Op = "RemoveMember"
	OpSendMessage  Op = "SendMessage"
	OpFetchMessage Op = "FetchMessage"
	OpEditMessage  Op = "EditMessage"
	OpReplyMessage Op = "ReplyMessage"
	OpListInvites  Op = "ListInvites"
)

// DefaultCapabilities is what the bot can do in a guild nobody configured.
var DefaultCapabilities = models.BotCapabilities{
	UserID:              "bot",
	Permissions:         models.PermManageRoles | models.PermKickMembers,
	HighestRolePosition: 100,
}

type Removal struct {
	GuildID string
	UserID  string
	Reason  string
}

type sentMessage struct {
	channelID string
	msg       models.OutboundMessage
}

type Reply struct {
	Ref     models.MessageRef
	Content string
}

// Platform is a ports.Platform backed by maps. It is safe for concurrent use.
type Platform struct {
	mu       sync.Mutex
	members  map[string]*models.Member
	caps     map[string]models.BotCapabilities
	roles    map[string]int
	invites  map[string][]models.Invite
	messages map[models.MessageRef]*models.PostedMessage
	failures map[Op]error

	sent     []sentMessage
	replies  []Reply
	removals []Removal
	seq      int
}

func New() *Platform {
	return &Platform{
		members:  make(map[string]*models.Member),
		caps:     make(map[string]models.BotCapabilities),
		roles:    make(map[string]int),
		invites:  make(map[string][]models.Invite),
		messages: make(map[models.MessageRef]*models.PostedMessage),
		failures: make(map[Op]error),
	}
}

func key(a, b string) string { return a + "/" + b }

// AddMember puts a copy of m in its guild.
func (p *Platform) AddMember(m *models.Member) {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := *m
	cp.RoleIDs = slices.Clone(m.RoleIDs)
	p.members[key(m.GuildID, m.User.ID)] = &cp
}

func (p *Platform) DropMember(guildID, userID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.members, key(guildID, userID))
}

// Member returns a copy of the member, or nil when absent.
func (p *Platform) Member(guildID, userID string) *models.Member {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.members[key(guildID, userID)]
	if !ok {
		return nil
	}
	cp := *m
	cp.RoleIDs = slices.Clone(m.RoleIDs)
	return &cp
}

func (p *Platform) SetCapabilities(guildID string, caps models.BotCapabilities) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.caps[guildID] = caps
}

func (p *Platform) SetRolePosition(guildID, roleID string, position int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.roles[key(guildID, roleID)] = position
}

func (p *Platform) SetInvites(guildID string, invites []models.Invite) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invites[guildID] = slices.Clone(invites)
}

// Fail makes every later call to op return err. A nil err clears the failure.
func (p *Platform) Fail(op Op, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err == nil {
		delete(p.failures, op)
		return
	}
	p.failures[op] = err
}

// DeleteMessage removes a posted message, as a moderator deleting it would.
func (p *Platform) DeleteMessage(ref models.MessageRef) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.messages, ref)
}

// Message returns the current content of a posted message, or nil.
func (p *Platform) Message(ref models.MessageRef) *models.PostedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.messages[ref]
	if !ok {
		return nil
	}
	cp := *m
	cp.Embeds = slices.Clone(m.Embeds)
	cp.Buttons = slices.Clone(m.Buttons)
	return &cp
}

// SentTo returns the messages posted to a channel so far, in order.
func (p *Platform) SentTo(channelID string) []models.OutboundMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []models.OutboundMessage
	for _, s := range p.sent {
		if s.channelID == channelID {
			out = append(out, s.msg)
		}
	}
	return out
}

func (p *Platform) Replies() []Reply {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.replies)
}

func (p *Platform) Removals() []Removal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.removals)
}

func (p *Platform) failure(op Op) error {
	return p.failures[op]
}

func (p *Platform) ListInvites(_ context.Context, guildID string) ([]models.Invite, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpListInvites); err != nil {
		return nil, err
	}
	return slices.Clone(p.invites[guildID]), nil
}

func (p *Platform) FetchMember(_ context.Context, guildID, userID string) (*models.Member, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpFetchMember); err != nil {
		return nil, err
	}
	m, ok := p.members[key(guildID, userID)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	cp.RoleIDs = slices.Clone(m.RoleIDs)
	return &cp, nil
}

func (p *Platform) Capabilities(_ context.Context, guildID string) (*models.BotCapabilities, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpCapabilities); err != nil {
		return nil, err
	}
	caps, ok := p.caps[guildID]
	if !ok {
		caps = DefaultCapabilities
	}
	return &caps, nil
}

func (p *Platform) RolePosition(_ context.Context, guildID, roleID string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pos, ok := p.roles[key(guildID, roleID)]
	if !ok {
		return 0, sentinel.ErrNotFound
	}
	return pos, nil
}

func (p *Platform) AddRole(_ context.Context, guildID, userID, roleID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpAddRole); err != nil {
		return err
	}
	m, ok := p.members[key(guildID, userID)]
	if !ok {
		return sentinel.ErrNotFound
	}
	if !slices.Contains(m.RoleIDs, roleID) {
		m.RoleIDs = append(m.RoleIDs, roleID)
	}
	return nil
}

func (p *Platform) RemoveRole(_ context.Context, guildID, userID, roleID, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpRemoveRole); err != nil {
		return err
	}
	m, ok := p.members[key(guildID, userID)]
	if !ok {
		return sentinel.ErrNotFound
	}
	m.RoleIDs = slices.DeleteFunc(m.RoleIDs, func(id string) bool { return id == roleID })
	return nil
}

func (p *Platform) RemoveMember(_ context.Context, guildID, userID, reason string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpRemoveMember); err != nil {
		return err
	}
	k := key(guildID, userID)
	if _, ok := p.members[k]; !ok {
		return sentinel.ErrNotFound
	}
	delete(p.members, k)
	p.removals = append(p.removals, Removal{GuildID: guildID, UserID: userID, Reason: reason})
	return nil
}

func (p *Platform) SendMessage(_ context.Context, channelID string, msg models.OutboundMessage) (*models.MessageRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpSendMessage); err != nil {
		return nil, err
	}
	p.seq++
	ref := models.MessageRef{ChannelID: channelID, MessageID: "m" + strconv.Itoa(p.seq)}
	p.messages[ref] = &models.PostedMessage{
		Ref:     ref,
		Content: msg.Content,
		Embeds:  slices.Clone(msg.Embeds),
		Buttons: slices.Clone(msg.Buttons),
	}
	p.sent = append(p.sent, sentMessage{channelID: channelID, msg: msg})
	return &ref, nil
}

func (p *Platform) FetchMessage(_ context.Context, ref models.MessageRef) (*models.PostedMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpFetchMessage); err != nil {
		return nil, err
	}
	m, ok := p.messages[ref]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *m
	cp.Embeds = slices.Clone(m.Embeds)
	cp.Buttons = slices.Clone(m.Buttons)
	return &cp, nil
}

func (p *Platform) EditMessage(_ context.Context, ref models.MessageRef, embeds []models.Embed, buttons []models.Button) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpEditMessage); err != nil {
		return err
	}
	m, ok := p.messages[ref]
	if !ok {
		return sentinel.ErrNotFound
	}
	m.Embeds = slices.Clone(embeds)
	m.Buttons = slices.Clone(buttons)
	return nil
}

func (p *Platform) ReplyMessage(_ context.Context, ref models.MessageRef, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failure(OpReplyMessage); err != nil {
		return err
	}
	if _, ok := p.messages[ref]; !ok {
		return sentinel.ErrNotFound
	}
	p.replies = append(p.replies, Reply{Ref: ref, Content: content})
	return nil
}
