// Package normalize prepara textos para comparação contra o vocabulário de compliance.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Text aplica caixa baixa, remove acentos (NFD sem marcas combinantes),
// colapsa espaços e apara as pontas. Normalizar duas vezes não muda o resultado.
func Text(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		out = strings.ToLower(s)
	}
	return strings.Join(strings.Fields(out), " ")
}

// All normaliza uma lista inteira, preservando a ordem
func All(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Text(s)
	}
	return out
}
