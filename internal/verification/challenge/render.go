package challenge

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"math/rand/v2"
	"regexp"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
)

const (
	codeWidth     = 480
	codeHeight    = 140
	glyphSpacing  = 42
	questionWidth = 520
	lineHeight    = 32
	padding       = 24
)

var optionLine = regexp.MustCompile(`^\d\.`)

type glyph struct {
	Char   string
	X, Y   float64
	Angle  float64
	Size   float64
	Hue    float64
	Shadow [2]float64
}

type stroke struct {
	Points [4][2]float64
	Width  float64
	Color  color.Color
}

// codeLayout is every random decision behind one code image, in draw order.
type codeLayout struct {
	Decoys []glyph
	Curves []stroke
	Grid   []stroke
	Glyphs []glyph
}

func planCode(r *rand.Rand, code string) codeLayout {
	w, h := float64(codeWidth), float64(codeHeight)
	var l codeLayout

	for range between(r, 6, 13) {
		var dy float64
		if r.IntN(2) == 0 {
			dy = float64(between(r, 5, int(h*0.3)+1))
		} else {
			dy = float64(between(r, int(math.Ceil(h*0.7)), codeHeight-4))
		}
		l.Decoys = append(l.Decoys, glyph{
			Char:  string(Alphabet[r.IntN(len(Alphabet))]),
			X:     float64(between(r, 10, codeWidth-10)),
			Y:     dy,
			Angle: float64(between(r, -60, 61)),
			Size:  float64(between(r, 28, 51)),
			Hue:   float64(r.IntN(360)),
		})
	}

	yMin, yMax := int(h*0.15), int(h*0.85)
	hMin, hMax := int(h*0.05), int(h*0.95)
	for range 6 {
		l.Curves = append(l.Curves, stroke{
			Color: hsla(float64(r.IntN(360)), 0.80, 0.60, float64(between(r, 40, 71))/100),
			Width: float64(between(r, 2, 5)),
			Points: [4][2]float64{
				{float64(between(r, 0, 21)), float64(between(r, yMin, yMax+1))},
				{float64(between(r, int(w*0.15), int(w*0.45)+1)), float64(between(r, hMin, hMax+1))},
				{float64(between(r, int(w*0.55), int(w*0.85)+1)), float64(between(r, hMin, hMax+1))},
				{float64(between(r, codeWidth-20, codeWidth+1)), float64(between(r, yMin, yMax+1))},
			},
		})
	}

	gridMin, gridMax := int(h*0.2), int(h*0.8)
	for range 5 {
		y := float64(between(r, gridMin, gridMax+1))
		l.Grid = append(l.Grid, stroke{
			Color: hsla(float64(r.IntN(360)), 0.60, 0.55, float64(between(r, 20, 41))/100),
			Width: float64(between(r, 1, 4)),
			Points: [4][2]float64{
				{0, y + float64(between(r, -8, 9))},
				{w, y + float64(between(r, -8, 9))},
			},
		})
	}

	amplitude := float64(between(r, 8, 16))
	frequency := float64(between(r, 15, 31)) / 1000
	phase := float64(between(r, 0, 629)) / 100
	x := (w - float64(len(code)*glyphSpacing)) / 2
	for _, ch := range code {
		l.Glyphs = append(l.Glyphs, glyph{
			Char:   string(ch),
			X:      x + glyphSpacing/2,
			Y:      h/2 + math.Sin(x*frequency+phase)*amplitude + float64(between(r, -5, 6)),
			Angle:  float64(between(r, -31, 32)),
			Size:   float64(between(r, 28, 49)),
			Hue:    float64(r.IntN(360)),
			Shadow: [2]float64{float64(between(r, -2, 3)), float64(between(r, -2, 3))},
		})
		x += glyphSpacing
	}
	return l
}

// RenderCode draws the visual code phase as a PNG.
//
// Layering order matters: background noise, then bold decoys confined to the
// top and bottom bands, then interference curves and grid lines, and the
// real glyphs last along a sinusoidal baseline so they stay legible after
// lossy recompression while the decoys remain the highest-contrast shapes.
func (g *Generator) RenderCode(code string) ([]byte, error) {
	if code == "" {
		return nil, fmt.Errorf("render code: empty code")
	}
	r := g.stream()
	dc := gg.NewContext(codeWidth, codeHeight)
	paintNoise(dc, r, codeWidth, codeHeight, 8, 80)

	l := planCode(r, code)

	for _, d := range l.Decoys {
		dc.Push()
		dc.Translate(d.X, d.Y)
		dc.Rotate(gg.Radians(d.Angle))
		dc.SetFontFace(g.face(g.bold, d.Size))
		dc.SetColor(hsla(d.Hue, 0.65, 0.68, 0.80))
		dc.DrawStringAnchored(d.Char, 0, 0, 0.5, 0.5)
		dc.Pop()
	}

	for _, c := range l.Curves {
		dc.SetColor(c.Color)
		dc.SetLineWidth(c.Width)
		dc.MoveTo(c.Points[0][0], c.Points[0][1])
		dc.CubicTo(c.Points[1][0], c.Points[1][1], c.Points[2][0], c.Points[2][1], c.Points[3][0], c.Points[3][1])
		dc.Stroke()
	}

	for _, line := range l.Grid {
		dc.SetColor(line.Color)
		dc.SetLineWidth(line.Width)
		dc.DrawLine(line.Points[0][0], line.Points[0][1], line.Points[1][0], line.Points[1][1])
		dc.Stroke()
	}

	for _, gl := range l.Glyphs {
		dc.Push()
		dc.Translate(gl.X, gl.Y)
		dc.Rotate(gg.Radians(gl.Angle))
		dc.SetFontFace(g.face(g.regular, gl.Size))
		// Offset outline for depth confusion.
		dc.SetColor(hsla(math.Mod(gl.Hue+180, 360), 0.40, 0.25, 0.4))
		dc.DrawStringAnchored(gl.Char, gl.Shadow[0], gl.Shadow[1], 0.5, 0.5)
		dc.SetColor(hsla(gl.Hue, 0.60, 0.65, 0.70))
		dc.DrawStringAnchored(gl.Char, 0, 0, 0.5, 0.5)
		dc.Pop()
	}

	return encode(dc)
}

// RenderQuestion draws a context question with per-glyph jitter.
func (g *Generator) RenderQuestion(lines []string) ([]byte, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("render question: no lines")
	}
	r := g.stream()
	height := padding*2 + len(lines)*lineHeight
	dc := gg.NewContext(questionWidth, height)

	paintNoise(dc, r, questionWidth, height, 4, 40)

	y := float64(padding + lineHeight/2)
	for _, line := range lines {
		if line == "" {
			y += lineHeight * 0.5
			continue
		}
		isPrompt := !optionLine.MatchString(line)
		size := 18.0
		fnt := g.regular
		if isPrompt {
			size = 20
			fnt = g.bold
		}
		face := g.face(fnt, size)
		dc.SetFontFace(face)

		x := float64(padding)
		for _, ch := range line {
			dc.Push()
			dc.Translate(x+6, y+float64(between(r, -2, 3)))
			dc.Rotate(gg.Radians(float64(between(r, -5, 6))))
			if isPrompt {
				dc.SetColor(hsla(float64(between(r, 40, 61)), 0.80, 0.75, 1))
			} else {
				dc.SetColor(hsla(float64(between(r, 180, 221)), 0.70, 0.75, 1))
			}
			dc.DrawStringAnchored(string(ch), 0, 0, 0.5, 0.5)
			dc.Pop()
			x += size * 0.62
		}
		y += lineHeight
	}

	for range 2 {
		dc.SetColor(hsla(float64(r.IntN(360)), 0.60, 0.60, 0.25))
		dc.SetLineWidth(1)
		dc.DrawLine(
			float64(r.IntN(questionWidth)), float64(r.IntN(height)),
			float64(r.IntN(questionWidth)), float64(r.IntN(height)),
		)
		dc.Stroke()
	}

	return encode(dc)
}

func (g *Generator) face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingNone})
}

func paintNoise(dc *gg.Context, r *rand.Rand, width, height, curves, dots int) {
	dc.SetColor(hsla(float64(between(r, 200, 261)), 0.15, 0.18, 1))
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()

	for range curves {
		dc.SetColor(hsla(float64(r.IntN(360)), 0.50, 0.50, 0.25))
		dc.SetLineWidth(float64(between(r, 1, 3)))
		dc.MoveTo(float64(r.IntN(width)), float64(r.IntN(height)))
		dc.CubicTo(
			float64(r.IntN(width)), float64(r.IntN(height)),
			float64(r.IntN(width)), float64(r.IntN(height)),
			float64(r.IntN(width)), float64(r.IntN(height)),
		)
		dc.Stroke()
	}

	for range dots {
		dc.SetColor(hsla(float64(r.IntN(360)), 0.40, 0.60, float64(between(r, 10, 31))/100))
		dc.DrawCircle(float64(r.IntN(width)), float64(r.IntN(height)), float64(between(r, 1, 3)))
		dc.Fill()
	}
}

func encode(dc *gg.Context) ([]byte, error) {
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// hsla converts hue (degrees), saturation, lightness and alpha (0..1) to a color.
func hsla(h, s, l, a float64) color.Color {
	h = math.Mod(h, 360) / 360
	var r, g, b float64
	if s == 0 {
		r, g, b = l, l, l
	} else {
		q := l * (1 + s)
		if l >= 0.5 {
			q = l + s - l*s
		}
		p := 2*l - q
		r = hueToRGB(p, q, h+1.0/3)
		g = hueToRGB(p, q, h)
		b = hueToRGB(p, q, h-1.0/3)
	}
	return color.NRGBA{
		R: uint8(math.Round(r * 255)),
		G: uint8(math.Round(g * 255)),
		B: uint8(math.Round(b * 255)),
		A: uint8(math.Round(a * 255)),
	}
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 0.5:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}
