package challenge

import (
	"crypto/subtle"
	"strings"

	"gatekeeper/internal/verification/models"
)

// AnswerMatches compares a submitted answer against the expected one.
// Visual codes are compared case-insensitively with whitespace removed;
// context answers are trimmed but otherwise exact, since invite codes are
// case-sensitive.
func AnswerMatches(phase models.Phase, expected, given string) bool {
	if expected == "" {
		return false
	}
	switch phase {
	case models.PhaseCode:
		expected = normalizeCode(expected)
		given = normalizeCode(given)
	default:
		given = strings.TrimSpace(given)
		given = strings.TrimSuffix(given, ".")
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}

func normalizeCode(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
