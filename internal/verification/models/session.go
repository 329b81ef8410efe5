package models

import "time"

const (
	ChallengeTTL      = 5 * time.Minute
	MinSolveTime      = 3 * time.Second
	ChallengeCooldown = 30 * time.Second
)

// Phase is the stage a challenge session gates.
type Phase string

const (
	PhaseCode    Phase = "code"
	PhaseContext Phase = "context"
)

// ChallengeSession is a short-lived, single-use record for one issued challenge.
type ChallengeSession struct {
	ID        string    `json:"id"`
	GuildID   string    `json:"guild_id"`
	UserID    string    `json:"user_id"`
	Phase     Phase     `json:"phase"`
	Answer    string    `json:"answer"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *ChallengeSession) IsExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// SolvedTooFast reports whether an answer arrived faster than a human could plausibly solve.
func (s *ChallengeSession) SolvedTooFast(now time.Time, minimum time.Duration) bool {
	return now.Sub(s.CreatedAt) < minimum
}

// BelongsTo reports whether the session was issued to this actor in this community.
func (s *ChallengeSession) BelongsTo(guildID, userID string) bool {
	return s.GuildID == guildID && s.UserID == userID
}
