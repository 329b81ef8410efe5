package models

import (
	"time"
)

const (
	DefaultMinAccountAgeHours = 24
	DefaultMaxAttempts        = 3
	// Timeouts are opt-in: a community that never sets them never auto-removes anyone.
	DefaultChallengeTimeout time.Duration = 0
	DefaultReviewTimeout    time.Duration = 0

	MaxMinAccountAgeHours = 24 * 365
	MinMaxAttempts        = 1
	MaxMaxAttempts        = 10
)

// GuildConfig is the admin-controlled verification configuration of one community.
type GuildConfig struct {
	GuildID            string
	Enabled            bool
	VerifyChannelID    string
	ReviewChannelID    string
	LogChannelID       string
	VerifiedRoleID     string
	UnverifiedRoleID   string
	OnJoinRoleID       string
	MinAccountAgeHours int
	MaxAttempts        int
	// Zero disables the timeout.
	ChallengeTimeout time.Duration
	ReviewTimeout    time.Duration
	UpdatedAt        time.Time
}

// DefaultGuildConfig is what a community gets before an admin touches anything.
func DefaultGuildConfig(guildID string) *GuildConfig {
	return &GuildConfig{
		GuildID:            guildID,
		Enabled:            false,
		MinAccountAgeHours: DefaultMinAccountAgeHours,
		MaxAttempts:        DefaultMaxAttempts,
		ChallengeTimeout:   DefaultChallengeTimeout,
		ReviewTimeout:      DefaultReviewTimeout,
	}
}

func (c *GuildConfig) Clone() *GuildConfig {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

// MissingForChallenge returns the admin-facing reason the community cannot
// issue challenges, or "" when it is fully configured.
func (c *GuildConfig) MissingForChallenge() string {
	switch {
	case !c.Enabled:
		return "Verification is currently disabled by admins."
	case c.VerifyChannelID == "":
		return "Verify channel is not configured."
	case c.ReviewChannelID == "":
		return "Review channel is not configured."
	case c.VerifiedRoleID == "" || c.UnverifiedRoleID == "":
		return "Verified and unverified roles are not configured."
	}
	return ""
}

// RolesConfigured reports whether both verification roles are set.
func (c *GuildConfig) RolesConfigured() bool {
	return c.VerifiedRoleID != "" && c.UnverifiedRoleID != ""
}
