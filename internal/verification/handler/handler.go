package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatekeeper/internal/verification/models"
	"gatekeeper/internal/verification/service"
	"gatekeeper/pkg/platform/httputil"
	"gatekeeper/pkg/requestcontext"
)

// Service is the admin slice of the verification engine.
type Service interface {
	Config(ctx context.Context, guildID string) (*models.GuildConfig, error)
	MemberState(ctx context.Context, guildID, userID string) (*models.VerificationState, error)
	SetEnabled(ctx context.Context, guildID, actorID string, enabled bool) (*models.GuildConfig, error)
	SetChannels(ctx context.Context, guildID, actorID, verifyChannelID, reviewChannelID string) (*models.GuildConfig, error)
	SetRoles(ctx context.Context, guildID, actorID, verifiedRoleID, unverifiedRoleID string) (*models.GuildConfig, error)
	SetRules(ctx context.Context, guildID, actorID string, update service.RulesUpdate) (*models.GuildConfig, error)
	SetTimeouts(ctx context.Context, guildID, actorID string, update service.TimeoutsUpdate) (*models.GuildConfig, error)
	SetLogChannel(ctx context.Context, guildID, actorID, channelID string) (*models.GuildConfig, error)
	SetOnJoinRole(ctx context.Context, guildID, actorID, roleID string) (*models.GuildConfig, error)
	PostPanel(ctx context.Context, guildID string) (*models.MessageRef, error)
}

// Handler exposes guild verification configuration to operators.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the routes on r, which is expected to be scoped to
// /guilds/{guildID} and already authenticated.
func (h *Handler) Register(r chi.Router) {
	r.Get("/config", h.HandleGetConfig)
	r.Put("/config/enabled", h.HandleSetEnabled)
	r.Put("/config/channels", h.HandleSetChannels)
	r.Put("/config/roles", h.HandleSetRoles)
	r.Put("/config/rules", h.HandleSetRules)
	r.Put("/config/timeouts", h.HandleSetTimeouts)
	r.Put("/config/log-channel", h.HandleSetLogChannel)
	r.Put("/config/on-join-role", h.HandleSetOnJoinRole)
	r.Post("/panel", h.HandlePostPanel)
	r.Get("/members/{userID}/verification", h.HandleGetMemberState)
}

func (h *Handler) HandleGetConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guildID := chi.URLParam(r, "guildID")

	cfg, err := h.service.Config(ctx, guildID)
	if err != nil {
		h.fail(ctx, w, "failed to load verification config", guildID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromConfig(cfg))
}

func (h *Handler) HandleGetMemberState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guildID := chi.URLParam(r, "guildID")

	st, err := h.service.MemberState(ctx, guildID, chi.URLParam(r, "userID"))
	if err != nil {
		h.fail(ctx, w, "failed to load member verification state", guildID, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromState(st))
}

func (h *Handler) HandleSetEnabled(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[EnabledRequest](h, w, r)
	if !ok {
		return
	}
	h.update(w, r, func(ctx context.Context, guildID, actor string) (*models.GuildConfig, error) {
		return h.service.SetEnabled(ctx, guildID, actor, *req.Enabled)
	})
}

func (h *Handler) HandleSetChannels(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[ChannelsRequest](h, w, r)
	if !ok {
		return
	}
	h.update(w, r, func(ctx context.Context, guildID, actor string) (*models.GuildConfig, error) {
		return h.service.SetChannels(ctx, guildID, actor, req.VerifyChannelID, req.ReviewChannelID)
	})
}

func (h *Handler) HandleSetRoles(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[RolesRequest](h, w, r)
	if !ok {
		return
	}
	h.update(w, r, func(ctx context.Context, guildID, actor string) (*models.GuildConfig, error) {
		return h.service.SetRoles(ctx, guildID, actor, req.VerifiedRoleID, req.UnverifiedRoleID)
	})
}

func (h *Handler) HandleSetRules(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[RulesRequest](h, w, r)
	if !ok {
		return
	}
	h.update(w, r, func(ctx context.Context, guildID, actor string) (*models.GuildConfig, error) {
		return h.service.SetRules(ctx, guildID, actor, service.RulesUpdate{
			MinAccountAgeHours: req.MinAccountAgeHours,
			MaxAttempts:        req.MaxAttempts,
		})
	})
}

func (h *Handler) HandleSetTimeouts(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[TimeoutsRequest](h, w, r)
	if !ok {
		return
	}
	h.update(w, r, func(ctx context.Context, guildID, actor string) (*models.GuildConfig, error) {
		return h.service.SetTimeouts(ctx, guildID, actor, req.Update())
	})
}

func (h *Handler) HandleSetLogChannel(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[LogChannelRequest](h, w, r)
	if !ok {
		return
	}
	h.update(w, r, func(ctx context.Context, guildID, actor string) (*models.GuildConfig, error) {
		return h.service.SetLogChannel(ctx, guildID, actor, req.ChannelID)
	})
}

func (h *Handler) HandleSetOnJoinRole(w http.ResponseWriter, r *http.Request) {
	req, ok := decode[OnJoinRoleRequest](h, w, r)
	if !ok {
		return
	}
	h.update(w, r, func(ctx context.Context, guildID, actor string) (*models.GuildConfig, error) {
		return h.service.SetOnJoinRole(ctx, guildID, actor, req.RoleID)
	})
}

func (h *Handler) HandlePostPanel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	guildID := chi.URLParam(r, "guildID")

	ref, err := h.service.PostPanel(ctx, guildID)
	if err != nil {
		h.fail(ctx, w, "failed to post verification panel", guildID, err)
		return
	}
	h.logger.InfoContext(ctx, "verification panel posted",
		"request_id", requestcontext.RequestID(ctx),
		"guild_id", guildID,
		"channel_id", ref.ChannelID,
	)
	httputil.WriteJSON(w, http.StatusCreated, PanelResponse{ChannelID: ref.ChannelID, MessageID: ref.MessageID})
}

func decode[T any, PT interface {
	*T
	httputil.Validatable
}](h *Handler, w http.ResponseWriter, r *http.Request) (*T, bool) {
	ctx := r.Context()
	return httputil.DecodeAndPrepare[T, PT](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
}

// update runs one config setter as the authenticated admin and writes the
// resulting config.
func (h *Handler) update(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, guildID, actor string) (*models.GuildConfig, error)) {
	ctx := r.Context()
	guildID := chi.URLParam(r, "guildID")
	actor := requestcontext.AdminSubject(ctx)

	cfg, err := set(ctx, guildID, actor)
	if err != nil {
		h.fail(ctx, w, "failed to update verification config", guildID, err)
		return
	}
	h.logger.InfoContext(ctx, "verification config updated",
		"request_id", requestcontext.RequestID(ctx),
		"guild_id", guildID,
		"actor", actor,
		"path", r.URL.Path,
	)
	httputil.WriteJSON(w, http.StatusOK, FromConfig(cfg))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg, guildID string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"guild_id", guildID,
		"error", err,
	)
	httputil.WriteError(w, err)
}
