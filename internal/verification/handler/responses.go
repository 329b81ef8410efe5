package handler

import (
	"time"

	"gatekeeper/internal/verification/models"
)

type ConfigResponse struct {
	GuildID                 string    `json:"guild_id"`
	Enabled                 bool      `json:"enabled"`
	VerifyChannelID         string    `json:"verify_channel_id,omitempty"`
	ReviewChannelID         string    `json:"review_channel_id,omitempty"`
	LogChannelID            string    `json:"log_channel_id,omitempty"`
	VerifiedRoleID          string    `json:"verified_role_id,omitempty"`
	UnverifiedRoleID        string    `json:"unverified_role_id,omitempty"`
	OnJoinRoleID            string    `json:"on_join_role_id,omitempty"`
	MinAccountAgeHours      int       `json:"min_account_age_hours"`
	MaxAttempts             int       `json:"max_attempts"`
	ChallengeTimeoutSeconds int64     `json:"challenge_timeout_seconds"`
	ReviewTimeoutSeconds    int64     `json:"review_timeout_seconds"`
	UpdatedAt               time.Time `json:"updated_at,omitzero"`
}

func FromConfig(cfg *models.GuildConfig) *ConfigResponse {
	return &ConfigResponse{
		GuildID:                 cfg.GuildID,
		Enabled:                 cfg.Enabled,
		VerifyChannelID:         cfg.VerifyChannelID,
		ReviewChannelID:         cfg.ReviewChannelID,
		LogChannelID:            cfg.LogChannelID,
		VerifiedRoleID:          cfg.VerifiedRoleID,
		UnverifiedRoleID:        cfg.UnverifiedRoleID,
		OnJoinRoleID:            cfg.OnJoinRoleID,
		MinAccountAgeHours:      cfg.MinAccountAgeHours,
		MaxAttempts:             cfg.MaxAttempts,
		ChallengeTimeoutSeconds: int64(cfg.ChallengeTimeout / time.Second),
		ReviewTimeoutSeconds:    int64(cfg.ReviewTimeout / time.Second),
		UpdatedAt:               cfg.UpdatedAt,
	}
}

type StateResponse struct {
	GuildID         string             `json:"guild_id"`
	UserID          string             `json:"user_id"`
	Status          string             `json:"status"`
	Attempts        int                `json:"attempts"`
	ManualRequired  bool               `json:"manual_required"`
	RiskScore       int                `json:"risk_score"`
	RiskReasons     []string           `json:"risk_reasons"`
	InviteCode      string             `json:"invite_code,omitempty"`
	ManualReason    string             `json:"manual_reason,omitempty"`
	ReviewMessage   *models.MessageRef `json:"review_message,omitempty"`
	ReviewReminded  bool               `json:"review_reminded"`
	LastChallengeAt *time.Time         `json:"last_challenge_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

func FromState(st *models.VerificationState) *StateResponse {
	reasons := st.RiskReasons
	if reasons == nil {
		reasons = []string{}
	}
	return &StateResponse{
		GuildID:         st.GuildID,
		UserID:          st.UserID,
		Status:          string(st.Status),
		Attempts:        st.Attempts,
		ManualRequired:  st.ManualRequired,
		RiskScore:       st.RiskScore,
		RiskReasons:     reasons,
		InviteCode:      st.InviteCode,
		ManualReason:    st.ManualReason,
		ReviewMessage:   st.ReviewMessageRef,
		ReviewReminded:  st.ReviewReminded,
		LastChallengeAt: st.LastChallengeAt,
		CreatedAt:       st.CreatedAt,
		UpdatedAt:       st.UpdatedAt,
	}
}

type PanelResponse struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}
