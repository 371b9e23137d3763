// Package matcher casa linhas reconhecidas por OCR contra o vocabulário de compliance.
//
// Cada linha gera quatro janelas de contexto ({anterior+linha+próxima},
// {anterior+linha}, {linha+próxima}, {linha}) para capturar frases quebradas
// entre linhas adjacentes. A varredura roda na ordem original e na ordem
// reversa; o resultado é a união das duas, deduplicada por frase.
package matcher

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/compliance/normalize"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

// DefaultThreshold é a similaridade mínima para uma janela contar como match
const DefaultThreshold = 0.6

// Store é a persistência usada pelo matcher
type Store interface {
	GetOCR(ctx context.Context, id int64) (*model.OCR, error)
	SetOCRCompliances(ctx context.Context, ocrID int64, complianceIDs []int64) error
}

// Matcher calcula similaridade Sørensen-Dice por bigramas
type Matcher struct {
	log       *zap.Logger
	threshold float64
	metric    strutil.StringMetric
}

func New(log *zap.Logger, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Matcher{log: log, threshold: threshold, metric: metrics.NewSorensenDice()}
}

type phrase struct {
	c    model.Compliance
	norm string
	pos  int
}

// Lines retorna as frases do vocabulário encontradas nas linhas, na ordem do vocabulário
func (m *Matcher) Lines(lines []string, vocab []model.Compliance) []model.Compliance {
	if len(lines) == 0 || len(vocab) == 0 {
		return nil
	}
	phrases := make([]phrase, 0, len(vocab))
	for i, c := range vocab {
		if n := normalize.Text(c.Value); n != "" {
			phrases = append(phrases, phrase{c: c, norm: n, pos: i})
		}
	}

	found := make(map[int64]phrase)
	m.pass(lines, phrases, found)
	m.pass(reversed(lines), phrases, found)

	// fallback: substring exato no texto completo, nas duas ordens
	full := normalize.Text(strings.Join(lines, " "))
	fullRev := normalize.Text(strings.Join(reversed(lines), " "))
	for _, p := range phrases {
		if strings.Contains(full, p.norm) || strings.Contains(fullRev, p.norm) {
			found[p.c.ID] = p
		}
	}
	return ordered(found)
}

func (m *Matcher) pass(lines []string, phrases []phrase, found map[int64]phrase) {
	for i, line := range lines {
		var prev, next string
		if i > 0 {
			prev = lines[i-1]
		}
		if i+1 < len(lines) {
			next = lines[i+1]
		}
		windows := [4]string{
			normalize.Text(prev + " " + line + " " + next),
			normalize.Text(prev + " " + line),
			normalize.Text(line + " " + next),
			normalize.Text(line),
		}
		for _, p := range phrases {
			if _, ok := found[p.c.ID]; ok {
				continue
			}
			for _, w := range windows {
				if w != "" && m.Score(w, p.norm) >= m.threshold {
					found[p.c.ID] = p
					break
				}
			}
		}
	}
}

// Score é a similaridade [0,1] entre dois textos já normalizados
func (m *Matcher) Score(a, b string) float64 {
	return strutil.Similarity(a, b, m.metric)
}

// Match consolida o conjunto de compliances de uma unidade OCR a partir das imagens
func (m *Matcher) Match(unit *model.OCR, vocab []model.Compliance) []model.Compliance {
	found := make(map[int64]phrase)
	pos := make(map[int64]int, len(vocab))
	for i, c := range vocab {
		pos[c.ID] = i
	}
	for _, img := range unit.Images {
		if len(img.Content) == 0 {
			m.log.Info("image without recognized content, skipping",
				zap.Int64("ocr_id", unit.ID), zap.Int64("image_id", img.ID), zap.String("hash", img.Hash))
			continue
		}
		for _, c := range m.Lines(img.Content, vocab) {
			found[c.ID] = phrase{c: c, pos: pos[c.ID]}
		}
	}
	return ordered(found)
}

// Apply recalcula e sobrescreve o conjunto de compliances persistido da unidade OCR
func (m *Matcher) Apply(ctx context.Context, store Store, ocrID int64, vocab []model.Compliance) ([]model.Compliance, error) {
	unit, err := store.GetOCR(ctx, ocrID)
	if err != nil {
		return nil, fmt.Errorf("load ocr %d: %w", ocrID, err)
	}
	matched := m.Match(unit, vocab)
	ids := make([]int64, 0, len(matched))
	for _, c := range matched {
		ids = append(ids, c.ID)
	}
	if err := store.SetOCRCompliances(ctx, ocrID, ids); err != nil {
		return nil, fmt.Errorf("persist ocr %d compliances: %w", ocrID, err)
	}
	m.log.Debug("ocr compliances updated", zap.Int64("ocr_id", ocrID), zap.Int("matches", len(ids)))
	return matched, nil
}

func ordered(found map[int64]phrase) []model.Compliance {
	ps := make([]phrase, 0, len(found))
	for _, p := range found {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].pos != ps[j].pos {
			return ps[i].pos < ps[j].pos
		}
		return ps[i].c.ID < ps[j].c.ID
	})
	out := make([]model.Compliance, len(ps))
	for i, p := range ps {
		out[i] = p.c
	}
	return out
}

func reversed(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[len(in)-1-i] = s
	}
	return out
}
