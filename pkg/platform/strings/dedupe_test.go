package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompact(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil stays nil", nil, nil},
		{"blank entries vanish", []string{" ", ""}, []string{}},
		{"guild ids are trimmed", []string{" 1234 ", "5678"}, []string{"1234", "5678"}},
		{"first occurrence wins", []string{"b", "a", "b", " a"}, []string{"b", "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compact(tt.input))
		})
	}
}
