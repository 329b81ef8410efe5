package models

import (
	"fmt"
	"strings"
)

// Interaction kinds carried in component custom IDs.
const (
	CustomIDPrefix = "verify"

	KindStart         = "start"
	KindAnswer        = "answer"
	KindContextAnswer = "ctxanswer"
	KindModal         = "modal"
	KindContextModal  = "ctxmodal"
	KindReview        = "review"

	// AnswerInputID is the text input inside the answer modals.
	AnswerInputID = "verify:input"
)

// CustomID is a parsed component or modal identifier.
type CustomID struct {
	Kind      string
	SessionID string
	Decision  ReviewDecision
	UserID    string
}

func StartID() string {
	return CustomIDPrefix + ":" + KindStart
}

func AnswerID(sessionID string) string {
	return CustomIDPrefix + ":" + KindAnswer + ":" + sessionID
}

func ContextAnswerID(sessionID string) string {
	return CustomIDPrefix + ":" + KindContextAnswer + ":" + sessionID
}

func ModalID(sessionID string) string {
	return CustomIDPrefix + ":" + KindModal + ":" + sessionID
}

func ContextModalID(sessionID string) string {
	return CustomIDPrefix + ":" + KindContextModal + ":" + sessionID
}

func ReviewID(decision ReviewDecision, userID string) string {
	return CustomIDPrefix + ":" + KindReview + ":" + string(decision) + ":" + userID
}

// ParseCustomID decodes an identifier produced by the builders above.
func ParseCustomID(raw string) (CustomID, error) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 || parts[0] != CustomIDPrefix {
		return CustomID{}, fmt.Errorf("not a verification custom id: %q", raw)
	}

	id := CustomID{Kind: parts[1]}
	switch id.Kind {
	case KindStart:
		if len(parts) != 2 {
			return CustomID{}, fmt.Errorf("malformed start id: %q", raw)
		}
	case KindAnswer, KindContextAnswer, KindModal, KindContextModal:
		if len(parts) != 3 || parts[2] == "" {
			return CustomID{}, fmt.Errorf("malformed %s id: %q", id.Kind, raw)
		}
		id.SessionID = parts[2]
	case KindReview:
		if len(parts) != 4 || parts[3] == "" {
			return CustomID{}, fmt.Errorf("malformed review id: %q", raw)
		}
		decision, err := ParseReviewDecision(parts[2])
		if err != nil {
			return CustomID{}, err
		}
		id.Decision = decision
		id.UserID = parts[3]
	default:
		return CustomID{}, fmt.Errorf("unknown verification interaction %q", id.Kind)
	}
	return id, nil
}

// Phase reports which challenge phase an answer or modal id belongs to.
func (c CustomID) Phase() Phase {
	switch c.Kind {
	case KindContextAnswer, KindContextModal:
		return PhaseContext
	}
	return PhaseCode
}
