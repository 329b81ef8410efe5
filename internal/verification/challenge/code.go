package challenge

import (
	"strings"
)

// Alphabet excludes glyphs that are easily confused once distorted (0/O, 1/I/L, 2/Z, 5/S, 8/B, 9/G...).
const Alphabet = "ACDEFGHJKMNPQRTUVWXY3467"

const (
	MinCodeLength = 5
	MaxCodeLength = 7
)

// NewCode returns a random code of 5 to 7 characters drawn from Alphabet.
func (g *Generator) NewCode() string {
	r := g.stream()
	n := between(r, MinCodeLength, MaxCodeLength+1)
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(Alphabet[r.IntN(len(Alphabet))])
	}
	return b.String()
}
