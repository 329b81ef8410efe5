// Package challenge produces the two challenge phases an actor must pass:
// a distorted visual code and a membership context question.
package challenge

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
)

// Generator is safe for concurrent use. Each call derives its own random
// stream so renders never contend on a shared source.
type Generator struct {
	mu   sync.Mutex
	seed *rand.Rand

	regular *truetype.Font
	bold    *truetype.Font
}

type Option func(*Generator)

// WithSeed makes output reproducible. Intended for tests and the preview tool.
func WithSeed(a, b uint64) Option {
	return func(g *Generator) {
		g.seed = rand.New(rand.NewPCG(a, b))
	}
}

func New(opts ...Option) (*Generator, error) {
	regular, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse regular font: %w", err)
	}
	bold, err := truetype.Parse(gomonobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse bold font: %w", err)
	}

	g := &Generator{regular: regular, bold: bold}
	for _, opt := range opts {
		opt(g)
	}
	if g.seed == nil {
		var buf [32]byte
		if _, err := crand.Read(buf[:]); err != nil {
			return nil, fmt.Errorf("seed challenge generator: %w", err)
		}
		g.seed = rand.New(rand.NewChaCha8(buf))
	}
	return g, nil
}

// stream returns an independent source for one generation or render.
func (g *Generator) stream() *rand.Rand {
	g.mu.Lock()
	defer g.mu.Unlock()
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[0:], g.seed.Uint64())
	binary.LittleEndian.PutUint64(buf[8:], g.seed.Uint64())
	binary.LittleEndian.PutUint64(buf[16:], g.seed.Uint64())
	binary.LittleEndian.PutUint64(buf[24:], g.seed.Uint64())
	return rand.New(rand.NewChaCha8(buf))
}

// between returns an int in [lo, hi).
func between(r *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.IntN(hi-lo)
}
