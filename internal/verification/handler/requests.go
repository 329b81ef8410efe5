package handler

import (
	"strings"
	"time"

	"gatekeeper/internal/verification/service"
	dErrors "gatekeeper/pkg/domain-errors"
)

type EnabledRequest struct {
	Enabled *bool `json:"enabled"`
}

func (r *EnabledRequest) Validate() error {
	if r.Enabled == nil {
		return dErrors.New(dErrors.CodeValidation, "enabled is required")
	}
	return nil
}

type ChannelsRequest struct {
	VerifyChannelID string `json:"verify_channel_id"`
	ReviewChannelID string `json:"review_channel_id"`
}

func (r *ChannelsRequest) Validate() error {
	r.VerifyChannelID = strings.TrimSpace(r.VerifyChannelID)
	r.ReviewChannelID = strings.TrimSpace(r.ReviewChannelID)
	if r.VerifyChannelID == "" || r.ReviewChannelID == "" {
		return dErrors.New(dErrors.CodeValidation, "verify_channel_id and review_channel_id are required")
	}
	return nil
}

type RolesRequest struct {
	VerifiedRoleID   string `json:"verified_role_id"`
	UnverifiedRoleID string `json:"unverified_role_id"`
}

func (r *RolesRequest) Validate() error {
	r.VerifiedRoleID = strings.TrimSpace(r.VerifiedRoleID)
	r.UnverifiedRoleID = strings.TrimSpace(r.UnverifiedRoleID)
	if r.VerifiedRoleID == "" || r.UnverifiedRoleID == "" {
		return dErrors.New(dErrors.CodeValidation, "verified_role_id and unverified_role_id are required")
	}
	return nil
}

// RulesRequest leaves omitted fields unchanged; range checks live in the service.
type RulesRequest struct {
	MinAccountAgeHours *int `json:"min_account_age_hours"`
	MaxAttempts        *int `json:"max_attempts"`
}

func (r *RulesRequest) Validate() error {
	return nil
}

// TimeoutsRequest takes Go duration strings ("10m", "72h"); "0" disables a timeout.
type TimeoutsRequest struct {
	ChallengeTimeout *string `json:"challenge_timeout"`
	ReviewTimeout    *string `json:"review_timeout"`

	challenge *time.Duration
	review    *time.Duration
}

func (r *TimeoutsRequest) Validate() error {
	var err error
	if r.challenge, err = parseTimeout("challenge_timeout", r.ChallengeTimeout); err != nil {
		return err
	}
	if r.review, err = parseTimeout("review_timeout", r.ReviewTimeout); err != nil {
		return err
	}
	return nil
}

func (r *TimeoutsRequest) Update() service.TimeoutsUpdate {
	return service.TimeoutsUpdate{ChallengeTimeout: r.challenge, ReviewTimeout: r.review}
}

func parseTimeout(field string, raw *string) (*time.Duration, error) {
	if raw == nil {
		return nil, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(*raw))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, field+" must be a duration such as 10m or 72h")
	}
	return &d, nil
}

type LogChannelRequest struct {
	ChannelID string `json:"channel_id"`
}

func (r *LogChannelRequest) Validate() error {
	r.ChannelID = strings.TrimSpace(r.ChannelID)
	return nil
}

type OnJoinRoleRequest struct {
	RoleID string `json:"role_id"`
}

func (r *OnJoinRoleRequest) Validate() error {
	r.RoleID = strings.TrimSpace(r.RoleID)
	return nil
}
