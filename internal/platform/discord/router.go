package discord

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"gatekeeper/internal/verification/models"
	"gatekeeper/internal/verification/service"
	dErrors "gatekeeper/pkg/domain-errors"
	"gatekeeper/pkg/requestcontext"
)

const genericFailure = "There was an error handling this interaction."

// Engine is what the router needs from the verification service.
type Engine interface {
	HandleArrival(ctx context.Context, member *models.Member) (*service.ArrivalResult, error)
	HandleCommunityJoin(ctx context.Context, guildID string) error
	HandleCommunityLeave(ctx context.Context, guildID string)
	EvaluateAndChallenge(ctx context.Context, req service.ChallengeRequest) (*service.Result, error)
	CheckSession(ctx context.Context, guildID, userID, sessionID string) (*models.ChallengeSession, error)
	SubmitAnswer(ctx context.Context, req service.AnswerRequest) (*service.Result, error)
	ReviewAction(ctx context.Context, req service.ReviewRequest) (*service.ReviewResult, error)
}

// MemberConverter resolves role positions for members delivered by the gateway.
type MemberConverter interface {
	ConvertMember(ctx context.Context, m *discordgo.Member) (*models.Member, error)
}

// Responder is the interaction half of *discordgo.Session.
type Responder interface {
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	FollowupMessageCreate(interaction *discordgo.Interaction, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Router struct {
	engine    Engine
	members   MemberConverter
	responder Responder
	logger    *slog.Logger
	timeout   time.Duration
	now       func() time.Time
}

type RouterOption func(*Router)

func WithRouterLogger(logger *slog.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// WithHandlerTimeout bounds the work done for a single gateway event.
func WithHandlerTimeout(d time.Duration) RouterOption {
	return func(r *Router) {
		r.timeout = d
	}
}

func WithRouterClock(now func() time.Time) RouterOption {
	return func(r *Router) {
		r.now = now
	}
}

func NewRouter(engine Engine, members MemberConverter, responder Responder, opts ...RouterOption) (*Router, error) {
	if engine == nil {
		return nil, errors.New("engine is required")
	}
	if members == nil {
		return nil, errors.New("member converter is required")
	}
	if responder == nil {
		return nil, errors.New("responder is required")
	}
	r := &Router{
		engine:    engine,
		members:   members,
		responder: responder,
		timeout:   30 * time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = slog.New(slog.DiscardHandler)
	}
	return r, nil
}

// Register attaches the gateway handlers to a session.
func (r *Router) Register(s *discordgo.Session) {
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildMemberAdd) { r.MemberAdded(e.Member) })
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildCreate) { r.GuildJoined(e.Guild) })
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildDelete) { r.GuildLeft(e.Guild) })
	s.AddHandler(func(_ *discordgo.Session, e *discordgo.InteractionCreate) { r.Interaction(e.Interaction) })
}

func (r *Router) eventContext(requestID string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	ctx = requestcontext.WithRequestID(ctx, requestID)
	ctx = requestcontext.WithTime(ctx, r.now())
	return ctx, cancel
}

func (r *Router) MemberAdded(m *discordgo.Member) {
	if m == nil || m.User == nil || m.User.Bot {
		return
	}
	ctx, cancel := r.eventContext("join:" + m.GuildID + ":" + m.User.ID)
	defer cancel()

	member, err := r.members.ConvertMember(ctx, m)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to resolve joining member", "guild_id", m.GuildID, "user_id", m.User.ID, "error", err)
		return
	}
	if _, err := r.engine.HandleArrival(ctx, member); err != nil {
		r.logger.ErrorContext(ctx, "failed to handle member arrival", "guild_id", m.GuildID, "user_id", m.User.ID, "error", err)
	}
}

func (r *Router) GuildJoined(g *discordgo.Guild) {
	if g == nil || g.Unavailable {
		return
	}
	ctx, cancel := r.eventContext("guild:" + g.ID)
	defer cancel()
	if err := r.engine.HandleCommunityJoin(ctx, g.ID); err != nil {
		r.logger.WarnContext(ctx, "failed to prepare guild", "guild_id", g.ID, "error", err)
	}
}

// GuildLeft ignores outages; only a real removal drops guild state.
func (r *Router) GuildLeft(g *discordgo.Guild) {
	if g == nil || g.Unavailable {
		return
	}
	ctx, cancel := r.eventContext("guild:" + g.ID)
	defer cancel()
	r.engine.HandleCommunityLeave(ctx, g.ID)
}

// Interaction dispatches verification components and modals. Anything whose
// custom id is not ours is left for other handlers.
func (r *Router) Interaction(i *discordgo.Interaction) {
	var raw string
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		raw = i.MessageComponentData().CustomID
	case discordgo.InteractionModalSubmit:
		raw = i.ModalSubmitData().CustomID
	default:
		return
	}
	id, err := models.ParseCustomID(raw)
	if err != nil {
		return
	}

	ctx, cancel := r.eventContext(i.ID)
	defer cancel()

	switch id.Kind {
	case models.KindStart:
		r.start(ctx, i)
	case models.KindAnswer, models.KindContextAnswer:
		r.openAnswerForm(ctx, i, id)
	case models.KindModal, models.KindContextModal:
		r.submitAnswer(ctx, i, id)
	case models.KindReview:
		r.review(ctx, i, id)
	}
}

func (r *Router) start(ctx context.Context, i *discordgo.Interaction) {
	if !r.deferEphemeral(ctx, i) {
		return
	}
	res, err := r.engine.EvaluateAndChallenge(ctx, service.ChallengeRequest{
		GuildID:   i.GuildID,
		UserID:    interactionUserID(i),
		ChannelID: i.ChannelID,
	})
	if err != nil {
		r.followupError(ctx, i, err)
		return
	}
	r.followupResult(ctx, i, res)
}

func (r *Router) openAnswerForm(ctx context.Context, i *discordgo.Interaction, id models.CustomID) {
	session, err := r.engine.CheckSession(ctx, i.GuildID, interactionUserID(i), id.SessionID)
	if err != nil {
		r.respondError(ctx, i, err)
		return
	}
	r.respond(ctx, i, answerModal(session.ID, id.Phase()))
}

func (r *Router) submitAnswer(ctx context.Context, i *discordgo.Interaction, id models.CustomID) {
	answer := modalValue(i.ModalSubmitData().Components, models.AnswerInputID)
	if !r.deferEphemeral(ctx, i) {
		return
	}
	res, err := r.engine.SubmitAnswer(ctx, service.AnswerRequest{
		GuildID:   i.GuildID,
		UserID:    interactionUserID(i),
		SessionID: id.SessionID,
		Answer:    answer,
	})
	if err != nil {
		r.followupError(ctx, i, err)
		return
	}
	r.followupResult(ctx, i, res)
}

func (r *Router) review(ctx context.Context, i *discordgo.Interaction, id models.CustomID) {
	req := service.ReviewRequest{
		GuildID:  i.GuildID,
		UserID:   id.UserID,
		Decision: id.Decision,
	}
	if i.Member != nil {
		req.Permissions = toPermissions(i.Member.Permissions)
		if i.Member.User != nil {
			req.ModeratorID = i.Member.User.ID
			req.ModeratorName = toUser(i.Member.User).DisplayName
		}
	}
	if !r.deferEphemeral(ctx, i) {
		return
	}
	res, err := r.engine.ReviewAction(ctx, req)
	if err != nil {
		r.followupError(ctx, i, err)
		return
	}
	r.followup(ctx, i, &discordgo.WebhookParams{Content: res.Message})
}

func (r *Router) respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) bool {
	if err := r.responder.InteractionRespond(i, resp, discordgo.WithContext(ctx)); err != nil {
		r.logger.ErrorContext(ctx, "failed to respond to interaction", "interaction_id", i.ID, "error", err)
		return false
	}
	return true
}

func (r *Router) deferEphemeral(ctx context.Context, i *discordgo.Interaction) bool {
	return r.respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

func (r *Router) respondError(ctx context.Context, i *discordgo.Interaction, err error) {
	content, buttons := r.errorMessage(ctx, err)
	r.respond(ctx, i, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: toComponents(buttons),
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

func (r *Router) followup(ctx context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) {
	params.Flags |= discordgo.MessageFlagsEphemeral
	if _, err := r.responder.FollowupMessageCreate(i, true, params, discordgo.WithContext(ctx)); err != nil {
		r.logger.ErrorContext(ctx, "failed to send interaction followup", "interaction_id", i.ID, "error", err)
	}
}

func (r *Router) followupError(ctx context.Context, i *discordgo.Interaction, err error) {
	content, buttons := r.errorMessage(ctx, err)
	r.followup(ctx, i, &discordgo.WebhookParams{Content: content, Components: toComponents(buttons)})
}

func (r *Router) followupResult(ctx context.Context, i *discordgo.Interaction, res *service.Result) {
	if res.Challenge != nil {
		msg := res.Challenge.Message
		r.followup(ctx, i, &discordgo.WebhookParams{
			Content:    msg.Content,
			Embeds:     toEmbeds(msg.Embeds),
			Components: toComponents(msg.Buttons),
			Files:      toFiles(msg.Files),
		})
		return
	}
	var buttons []models.Button
	if res.Retry {
		buttons = []models.Button{service.RetryButton()}
	}
	r.followup(ctx, i, &discordgo.WebhookParams{Content: res.Message, Components: toComponents(buttons)})
}

// errorMessage hides internal failures from members; expired challenges
// come with a way to start over.
func (r *Router) errorMessage(ctx context.Context, err error) (string, []models.Button) {
	if errors.Is(err, service.ErrSessionNotFound) {
		return dErrors.MessageOf(err), []models.Button{service.RetryButton()}
	}
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		r.logger.ErrorContext(ctx, "verification interaction failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return genericFailure, nil
	}
	return dErrors.MessageOf(err), nil
}

func interactionUserID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func answerModal(sessionID string, phase models.Phase) *discordgo.InteractionResponse {
	customID := models.ModalID(sessionID)
	title := "Verification Challenge"
	input := discordgo.TextInput{
		CustomID:    models.AnswerInputID,
		Label:       "Type the thin characters from the center",
		Style:       discordgo.TextInputShort,
		Placeholder: "e.g. ACDF7K",
		Required:    true,
		MaxLength:   10,
	}
	if phase == models.PhaseContext {
		customID = models.ContextModalID(sessionID)
		title = "Identity Verification"
		input.Label = "Your answer"
		input.Placeholder = "Type the number or invite code"
		input.MaxLength = 20
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID:   customID,
			Title:      title,
			Components: []discordgo.MessageComponent{discordgo.ActionsRow{Components: []discordgo.MessageComponent{input}}},
		},
	}
}

// modalValue finds a text input's submitted value among the modal's rows.
func modalValue(components []discordgo.MessageComponent, inputID string) string {
	for _, c := range components {
		var children []discordgo.MessageComponent
		switch row := c.(type) {
		case *discordgo.ActionsRow:
			children = row.Components
		case discordgo.ActionsRow:
			children = row.Components
		}
		for _, child := range children {
			switch in := child.(type) {
			case *discordgo.TextInput:
				if in.CustomID == inputID {
					return in.Value
				}
			case discordgo.TextInput:
				if in.CustomID == inputID {
					return in.Value
				}
			}
		}
	}
	return ""
}
