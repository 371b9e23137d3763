package extractor

import (
	"fmt"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/compliance/colormath"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/browser"
)

// DefaultMaxDepth limita a subida pela cadeia de ancestrais
const DefaultMaxDepth = 64

// Background é o fundo resolvido de um elemento
type Background struct {
	Color colormath.Color
	Raw   string // cor computada do nó onde a subida parou, ou o acumulado
	Depth int    // nós visitados
}

// ResolveBackground sobe pelas camadas (índice 0 = o próprio elemento).
// A primeira cor opaca e não preta encerra a subida; camadas translúcidas
// são compostas no acumulador. Sem camada opaca, devolve o acumulado.
func ResolveBackground(layers []browser.Layer, maxDepth int) (Background, error) {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	acc := colormath.Transparent
	for i, l := range layers {
		if i >= maxDepth {
			break
		}
		c, err := colormath.Parse(l.Background)
		if err != nil {
			return Background{}, fmt.Errorf("layer %d: %w", i, err)
		}
		c = c.WithOpacity(l.Opacity)
		if c.Opaque() && !c.IsBlack() {
			out := colormath.Over(acc, c)
			raw := l.Background
			if acc.A > 0 {
				raw = out.String()
			}
			return Background{Color: out, Raw: raw, Depth: i + 1}, nil
		}
		acc = colormath.Over(acc, c)
	}
	n := len(layers)
	if n > maxDepth {
		n = maxDepth
	}
	return Background{Color: acc, Raw: acc.String(), Depth: n}, nil
}

// ResolveForeground compõe a cor do texto sobre o fundo resolvido
func ResolveForeground(textColor string, bg colormath.Color) (colormath.Color, error) {
	c, err := colormath.Parse(textColor)
	if err != nil {
		return colormath.Color{}, fmt.Errorf("text color: %w", err)
	}
	return colormath.Over(c, bg), nil
}
