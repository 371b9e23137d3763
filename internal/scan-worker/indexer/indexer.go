// Package indexer enumera os elementos DOM da página e filtra os que contêm
// alguma frase do vocabulário de compliance.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/browser"
)

// ErrAlreadyScanned: o snapshot é de uma passada só por carregamento de página
var ErrAlreadyScanned = errors.New("page already scanned")

// Indexer mantém o conjunto de trabalho de uma Task
type Indexer struct {
	log     *zap.Logger
	phrases []string

	scanned  bool
	elements []browser.Element
}

func New(log *zap.Logger, phrases []string) *Indexer {
	ps := make([]string, 0, len(phrases))
	for _, p := range phrases {
		if p != "" {
			ps = append(ps, p)
		}
	}
	return &Indexer{log: log, phrases: ps}
}

// Scan tira o snapshot ordenado de todos os elementos; uma segunda chamada falha
func (ix *Indexer) Scan(ctx context.Context, s browser.Session) ([]browser.Element, error) {
	if ix.scanned {
		return nil, ErrAlreadyScanned
	}
	ix.scanned = true

	els, err := s.Elements(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan elements: %w", err)
	}
	ix.elements = els
	ix.log.Debug("dom scanned", zap.Int("elements", len(els)))
	return els, nil
}

// Elements é o conjunto de trabalho atual
func (ix *Indexer) Elements() []browser.Element { return ix.elements }

// Filter substitui o conjunto de trabalho pelos elementos que casam
func (ix *Indexer) Filter(ctx context.Context) ([]browser.Element, error) {
	kept, err := ix.FilterElements(ctx, ix.elements)
	if err != nil {
		return nil, err
	}
	ix.elements = kept
	return kept, nil
}

// FilterElements devolve, na mesma ordem, os elementos cujo texto contém
// alguma frase (substring exata, sensível a caixa). Elementos que falham na
// leitura do texto são descartados e logados.
func (ix *Indexer) FilterElements(ctx context.Context, els []browser.Element) ([]browser.Element, error) {
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := el.Text(ctx)
		if err != nil {
			ix.log.Warn("element text unreadable, skipping", zap.String("element", el.Key()), zap.Error(err))
			continue
		}
		if ix.contains(text) {
			out = append(out, el)
		}
	}
	return out, nil
}

// Matches lista as frases contidas no texto, na ordem do vocabulário
func (ix *Indexer) Matches(text string) []string {
	var out []string
	for _, p := range ix.phrases {
		if strings.Contains(text, p) {
			out = append(out, p)
		}
	}
	return out
}

func (ix *Indexer) contains(text string) bool {
	for _, p := range ix.phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
