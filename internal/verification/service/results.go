package service

import (
	"time"

	"gatekeeper/internal/verification/models"
	dErrors "gatekeeper/pkg/domain-errors"
)

// Errors the interaction layer renders specially. Everything else surfaces
// through dErrors.MessageOf.
var (
	ErrSessionNotFound = dErrors.New(dErrors.CodeNotFound, "This challenge has expired.")
	ErrSessionForeign  = dErrors.New(dErrors.CodeForbidden, "This challenge belongs to another member.")
	ErrReviewResolved  = dErrors.New(dErrors.CodeConflict, "This verification request has already been resolved.")

	errStaleChallenge = dErrors.New(dErrors.CodeConflict, "This challenge is no longer active. Please start verification again.")
	errMemberLookup   = dErrors.New(dErrors.CodeUnavailable, "Unable to load your server membership. Please try again.")
)

// Outcome tells the caller how to reply to the member.
type Outcome string

const (
	OutcomeChallenge       Outcome = "challenge"
	OutcomeAlreadyVerified Outcome = "already_verified"
	OutcomeInReview        Outcome = "in_review"
	OutcomeQueued          Outcome = "queued"
	OutcomeRetry           Outcome = "retry"
	OutcomeVerified        Outcome = "verified"
)

type ChallengeRequest struct {
	GuildID string
	UserID  string
	// ChannelID is where the request came from; empty skips the verify-channel check.
	ChannelID string
}

type AnswerRequest struct {
	GuildID   string
	UserID    string
	SessionID string
	Answer    string
}

// Challenge is a rendered challenge ready to be shown privately to the member.
type Challenge struct {
	SessionID string
	Phase     models.Phase
	ExpiresAt time.Time
	Message   models.OutboundMessage
}

// Result is the member-facing outcome of a challenge request or an answer.
type Result struct {
	Outcome Outcome
	Message string
	// Retry asks the caller to offer a fresh start control next to Message.
	Retry     bool
	Challenge *Challenge
	// ReviewError is the advisory reported when the member was moved to
	// manual review but the review record could not be posted.
	ReviewError string
	State       *models.VerificationState
}

// QueueRequest moves a member into manual review.
type QueueRequest struct {
	GuildID string
	UserID  string
	// Member may be nil when the member could not be fetched; the review is
	// still recorded and posted with what is known.
	Member      *models.Member
	Reasons     []string
	RiskScore   int
	TriggeredBy string
}

type QueueResult struct {
	State *models.VerificationState
	// Existing is set when a reachable review record was already posted.
	Existing bool
	// Error is the advisory explaining why the record could not be posted.
	Error string
}

// ReviewRequest is a moderator's click on a review record.
type ReviewRequest struct {
	GuildID       string
	UserID        string
	ModeratorID   string
	ModeratorName string
	Permissions   models.Permission
	Decision      models.ReviewDecision
}

type ReviewResult struct {
	Decision models.ReviewDecision
	State    *models.VerificationState
	Message  string
}

// RemovalOutcome reports what the removal path did for one member.
type RemovalOutcome string

const (
	RemovalRemoved    RemovalOutcome = "removed"
	RemovalDeparted   RemovalOutcome = "departed"
	RemovalSkipped    RemovalOutcome = "skipped"
	RemovalIneligible RemovalOutcome = "ineligible"
)

// ArrivalResult reports what happened when a member joined.
type ArrivalResult struct {
	InviteCode string
	State      *models.VerificationState
	// Tracked is false when verification is off or could not be applied;
	// no state row is written then.
	Tracked bool
}
