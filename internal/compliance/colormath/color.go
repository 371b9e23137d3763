// Package colormath implementa parse de cores CSS, composição alpha ("over")
// e a razão de contraste WCAG.
package colormath

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

// Color é uma cor não pré-multiplicada: canais 0..255, alpha 0..1
type Color struct {
	R, G, B float64
	A       float64
}

var (
	Transparent = Color{}
	Black       = Color{A: 1}
	White       = Color{R: 255, G: 255, B: 255, A: 1}
)

// Parse lê os formatos devolvidos por getComputedStyle:
// rgb(r, g, b), rgba(r, g, b, a), rgb(r g b / a), #rgb, #rrggbb e "transparent".
func Parse(s string) (Color, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "" || s == "transparent" || s == "none":
		return Transparent, nil
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb"):
		return parseFunc(s)
	}
	return Transparent, fmt.Errorf("unsupported color %q", s)
}

func parseHex(h string) (Color, error) {
	if len(h) == 3 {
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	}
	if len(h) != 6 {
		return Transparent, fmt.Errorf("invalid hex color %q", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return Transparent, fmt.Errorf("invalid hex color %q: %w", h, err)
	}
	return Color{R: float64(v >> 16 & 0xff), G: float64(v >> 8 & 0xff), B: float64(v & 0xff), A: 1}, nil
}

func parseFunc(s string) (Color, error) {
	open, closing := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || closing < open {
		return Transparent, fmt.Errorf("invalid color %q", s)
	}
	parts := strings.FieldsFunc(s[open+1:closing], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(parts) != 3 && len(parts) != 4 {
		return Transparent, fmt.Errorf("invalid color %q", s)
	}
	vals := make([]float64, 4)
	vals[3] = 1
	for i, p := range parts {
		pct := strings.HasSuffix(p, "%")
		f, err := strconv.ParseFloat(strings.TrimSuffix(p, "%"), 64)
		if err != nil {
			return Transparent, fmt.Errorf("invalid color %q: %w", s, err)
		}
		switch {
		case pct && i < 3:
			f = f * 255 / 100
		case pct:
			f /= 100
		}
		vals[i] = f
	}
	return Color{R: clamp(vals[0], 0, 255), G: clamp(vals[1], 0, 255), B: clamp(vals[2], 0, 255), A: clamp(vals[3], 0, 1)}, nil
}

// WithOpacity multiplica o alpha pela opacidade do elemento
func (c Color) WithOpacity(opacity float64) Color {
	c.A = clamp(c.A*clamp(opacity, 0, 1), 0, 1)
	return c
}

// Opaque informa alpha == 1
func (c Color) Opaque() bool { return c.A >= 1 }

// IsBlack compara só os canais RGB
func (c Color) IsBlack() bool { return c.R == 0 && c.G == 0 && c.B == 0 }

// RGB descarta o alpha
func (c Color) RGB() model.RGB { return model.RGB{R: c.R, G: c.G, B: c.B} }

func (c Color) String() string {
	return fmt.Sprintf("rgba(%s, %s, %s, %s)", ftoa(c.R), ftoa(c.G), ftoa(c.B), ftoa(c.A))
}

// Over compõe top sobre bottom (Porter-Duff "over"):
// out·αout = top·αt + bottom·αb·(1−αt), αout = αt + αb·(1−αt).
func Over(top, bottom Color) Color {
	a := top.A + bottom.A*(1-top.A)
	if a <= 0 {
		return Transparent
	}
	ch := func(t, b float64) float64 {
		return (t*top.A + b*bottom.A*(1-top.A)) / a
	}
	return Color{R: ch(top.R, bottom.R), G: ch(top.G, bottom.G), B: ch(top.B, bottom.B), A: a}
}

// Luminance é a luminância relativa WCAG 2.x
func Luminance(c model.RGB) float64 {
	lin := func(v float64) float64 {
		v /= 255
		if v <= 0.03928 {
			return v / 12.92
		}
		return math.Pow((v+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(c.R) + 0.7152*lin(c.G) + 0.0722*lin(c.B)
}

// ContrastRatio é simétrica e vale 1 para cores iguais
func ContrastRatio(a, b model.RGB) float64 {
	la, lb := Luminance(a), Luminance(b)
	hi, lo := math.Max(la, lb), math.Min(la, lb)
	return (hi + 0.05) / (lo + 0.05)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
