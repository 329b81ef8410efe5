// Package strings holds slice helpers for user-supplied identifier lists.
package strings

import "strings"

// Compact trims each value and drops empties and repeats, keeping the order
// in which values were first seen. A nil input stays nil.
func Compact(values []string) []string {
	if values == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
