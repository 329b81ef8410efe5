package models

import (
	"strings"
	"time"
)

// MessageRef locates a posted message (review record, panel) on the platform.
type MessageRef struct {
	ChannelID string `json:"channel_id"`
	MessageID string `json:"message_id"`
}

func (r *MessageRef) IsZero() bool {
	return r == nil || r.ChannelID == "" || r.MessageID == ""
}

// VerificationState is the durable per-(community, actor) admission record.
type VerificationState struct {
	GuildID          string
	UserID           string
	Status           Status
	Attempts         int
	LastChallengeAt  *time.Time
	ManualRequired   bool
	RiskScore        int
	RiskReasons      []string
	InviteCode       string
	ReviewMessageRef *MessageRef
	ManualReason     string
	ReviewReminded   bool
	// RemovalDeferredUntil hides the row from the removal sweep after a
	// removal attempt was skipped or failed.
	RemovalDeferredUntil *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// NewVerificationState returns the PENDING row a fresh cycle starts from.
func NewVerificationState(guildID, userID string, now time.Time) *VerificationState {
	return &VerificationState{
		GuildID:   guildID,
		UserID:    userID,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (s *VerificationState) Clone() *VerificationState {
	if s == nil {
		return nil
	}
	out := *s
	if s.LastChallengeAt != nil {
		t := *s.LastChallengeAt
		out.LastChallengeAt = &t
	}
	if s.RiskReasons != nil {
		out.RiskReasons = append([]string(nil), s.RiskReasons...)
	}
	if s.ReviewMessageRef != nil {
		ref := *s.ReviewMessageRef
		out.ReviewMessageRef = &ref
	}
	if s.RemovalDeferredUntil != nil {
		t := *s.RemovalDeferredUntil
		out.RemovalDeferredUntil = &t
	}
	return &out
}

// Normalize enforces the row invariants that must hold after every write:
// manual-required tracks MANUAL_REVIEW, the review reference and reminder
// flag only exist while a review is open, and attempts is never negative.
func (s *VerificationState) Normalize() {
	if s.Attempts < 0 {
		s.Attempts = 0
	}
	s.ManualRequired = s.Status == StatusManualReview
	if s.Status != StatusManualReview {
		s.ReviewMessageRef = nil
		s.ReviewReminded = false
	}
	if s.ReviewMessageRef.IsZero() {
		s.ReviewMessageRef = nil
	}
	if !s.Status.AwaitsRemoval() {
		s.RemovalDeferredUntil = nil
	}
	s.ManualReason = strings.TrimSpace(s.ManualReason)
}

// ResetForArrival starts a new admission cycle for an actor who (re)joined.
// Risk data and the invite code are discarded with the old cycle.
func (s *VerificationState) ResetForArrival(now time.Time) {
	s.Status = StatusPending
	s.Attempts = 0
	s.LastChallengeAt = nil
	s.RiskScore = 0
	s.RiskReasons = nil
	s.InviteCode = ""
	s.ManualReason = ""
	s.ReviewMessageRef = nil
	s.ReviewReminded = false
	s.RemovalDeferredUntil = nil
	s.CreatedAt = now
}

// RemovalDeferred reports whether the removal sweep is backing off this row at now.
func (s *VerificationState) RemovalDeferred(now time.Time) bool {
	return s.RemovalDeferredUntil != nil && now.Before(*s.RemovalDeferredUntil)
}

// CooldownRemaining returns how long the actor must wait before another
// challenge may be issued. Zero means a challenge may be issued now.
func (s *VerificationState) CooldownRemaining(cooldown time.Duration, now time.Time) time.Duration {
	if s == nil || s.LastChallengeAt == nil {
		return 0
	}
	remaining := s.LastChallengeAt.Add(cooldown).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ReviewDeadline is when an open review expires; zero when reviews never expire.
func (s *VerificationState) ReviewDeadline(timeout time.Duration) time.Time {
	if timeout <= 0 {
		return time.Time{}
	}
	return s.CreatedAt.Add(timeout)
}
