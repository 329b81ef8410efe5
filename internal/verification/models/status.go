package models

import "fmt"

// Status is the position of one actor in the admission lifecycle of one community.
type Status string

const (
	StatusPending       Status = "PENDING"
	StatusChallenge     Status = "CHALLENGE"
	StatusManualReview  Status = "MANUAL_REVIEW"
	StatusVerified      Status = "VERIFIED"
	StatusRejected      Status = "REJECTED"
	StatusReviewExpired Status = "REVIEW_EXPIRED"
	StatusKicked        Status = "KICKED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusChallenge, StatusManualReview, StatusVerified,
		StatusRejected, StatusReviewExpired, StatusKicked:
		return true
	}
	return false
}

// IsTerminal reports whether the cycle has ended. REJECTED and REVIEW_EXPIRED
// are terminal-but-unresolved: the sweep still owes a removal.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusVerified, StatusRejected, StatusReviewExpired, StatusKicked:
		return true
	}
	return false
}

// AwaitsRemoval reports whether the sweep may remove an actor in this status.
func (s Status) AwaitsRemoval() bool {
	switch s {
	case StatusPending, StatusChallenge, StatusRejected, StatusReviewExpired:
		return true
	}
	return false
}

func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("unknown verification status %q", raw)
	}
	return s, nil
}

// transitions lists every legal edge of the lifecycle. A fresh arrival resets
// any row to PENDING and is modelled separately by ResetForArrival.
var transitions = map[Status][]Status{
	StatusPending:       {StatusChallenge, StatusManualReview, StatusVerified, StatusKicked},
	StatusChallenge:     {StatusChallenge, StatusPending, StatusManualReview, StatusVerified, StatusKicked},
	StatusManualReview:  {StatusVerified, StatusRejected, StatusPending, StatusReviewExpired},
	StatusRejected:      {StatusKicked},
	StatusReviewExpired: {StatusKicked},
	StatusVerified:      {},
	StatusKicked:        {},
}

// CanTransition reports whether the lifecycle permits moving from one status to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
