package models

import (
	"fmt"
	"strings"
)

// ReviewDecision is a moderator's verdict on a queued actor.
type ReviewDecision string

const (
	DecisionApprove ReviewDecision = "approve"
	DecisionReject  ReviewDecision = "reject"
	DecisionRecheck ReviewDecision = "recheck"
)

func ParseReviewDecision(raw string) (ReviewDecision, error) {
	switch d := ReviewDecision(strings.ToLower(strings.TrimSpace(raw))); d {
	case DecisionApprove, DecisionReject, DecisionRecheck:
		return d, nil
	}
	return "", fmt.Errorf("unknown review decision %q", raw)
}

// TargetStatus is the lifecycle status a decision moves the actor to.
func (d ReviewDecision) TargetStatus() Status {
	switch d {
	case DecisionApprove:
		return StatusVerified
	case DecisionReject:
		return StatusRejected
	default:
		return StatusPending
	}
}

// RiskAssessment is the outcome of scoring an actor before a challenge.
type RiskAssessment struct {
	Score          int
	Reasons        []string
	ManualRequired bool
}

// ActionType names an auditable moderation action.
type ActionType string

const (
	ActionQueue         ActionType = "VERIFY_QUEUE"
	ActionApprove       ActionType = "VERIFY_APPROVE"
	ActionReject        ActionType = "VERIFY_REJECT"
	ActionRecheck       ActionType = "VERIFY_RECHECK"
	ActionReviewExpired ActionType = "REVIEW_EXPIRED"
	ActionKick          ActionType = "VERIFY_KICK"
	ActionConfigChanged ActionType = "CONFIG_CHANGED"
)

// ActionForDecision maps a moderator decision to its audit action.
func ActionForDecision(d ReviewDecision) ActionType {
	switch d {
	case DecisionApprove:
		return ActionApprove
	case DecisionReject:
		return ActionReject
	default:
		return ActionRecheck
	}
}
