// Package extractor percorre os elementos filtrados até as folhas que casam
// com o vocabulário e registra as propriedades visuais de cada uma: fundo
// composto pela cadeia de ancestrais, cor do texto, contraste WCAG e posição.
package extractor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/compliance/colormath"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/browser"
)

// Filter é a parte do indexador usada na descida
type Filter interface {
	FilterElements(ctx context.Context, els []browser.Element) ([]browser.Element, error)
	Matches(text string) []string
}

// Store persiste as Properties de uma Task
type Store interface {
	ListProperties(ctx context.Context, taskID int64) ([]model.Property, error)
	CreateProperty(ctx context.Context, p *model.Property) error
}

// Result traz as Properties criadas e os elementos folha correspondentes, na mesma ordem
type Result struct {
	Properties []model.Property
	Elements   []browser.Element
}

type Extractor struct {
	log      *zap.Logger
	filter   Filter
	store    Store
	maxDepth int
}

func New(log *zap.Logger, filter Filter, store Store, maxDepth int) *Extractor {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Extractor{log: log, filter: filter, store: store, maxDepth: maxDepth}
}

type dedupKey struct {
	width, distance float64
}

type walk struct {
	taskID  int64
	metrics browser.PageMetrics
	visited map[string]struct{}
	seen    map[dedupKey]struct{}
	// prior: Properties gravadas por uma tentativa anterior da mesma Task
	prior map[dedupKey]model.Property
	out   Result
}

// Extract percorre o conjunto filtrado em profundidade. Um elemento com filhos
// que casam nunca é registrado: a descida segue pelos filhos.
func (x *Extractor) Extract(ctx context.Context, taskID int64, m browser.PageMetrics, filtered []browser.Element) (Result, error) {
	existing, err := x.store.ListProperties(ctx, taskID)
	if err != nil {
		return Result{}, fmt.Errorf("list properties: %w", err)
	}
	w := &walk{
		taskID:  taskID,
		metrics: m,
		visited: make(map[string]struct{}),
		seen:    make(map[dedupKey]struct{}, len(existing)),
		prior:   make(map[dedupKey]model.Property, len(existing)),
	}
	for _, p := range existing {
		w.prior[dedupKey{p.ElementBox.Width, p.DistanceToTop}] = p
	}

	for _, el := range filtered {
		if err := x.visit(ctx, w, el); err != nil {
			return w.out, err
		}
	}
	x.log.Info("visual properties extracted",
		zap.Int64("task_id", taskID), zap.Int("filtered", len(filtered)), zap.Int("properties", len(w.out.Properties)))
	return w.out, nil
}

func (x *Extractor) visit(ctx context.Context, w *walk, el browser.Element) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := el.Key()
	if _, ok := w.visited[key]; ok {
		return nil
	}
	w.visited[key] = struct{}{}

	kids, err := el.Children(ctx)
	if err != nil {
		x.skip(el, "children", err)
		return nil
	}
	matching, err := x.filter.FilterElements(ctx, kids)
	if err != nil {
		return err
	}
	if len(matching) > 0 {
		for _, k := range matching {
			if err := x.visit(ctx, w, k); err != nil {
				return err
			}
		}
		return nil
	}

	p, err := x.Property(ctx, el, w.metrics)
	if err != nil {
		x.skip(el, "property", err)
		return nil
	}
	if p == nil {
		x.log.Debug("leaf not rendered, skipping", zap.String("element", key))
		return nil
	}

	k := dedupKey{p.ElementBox.Width, p.DistanceToTop}
	if _, dup := w.seen[k]; dup {
		x.log.Debug("duplicate property discarded",
			zap.String("element", key), zap.Float64("width", k.width), zap.Float64("distance_to_top", k.distance))
		return nil
	}
	// retry: a linha já existe, mas a folha ainda precisa de screenshot e OCR
	if old, ok := w.prior[k]; ok {
		w.seen[k] = struct{}{}
		w.out.Properties = append(w.out.Properties, old)
		w.out.Elements = append(w.out.Elements, el)
		return nil
	}

	p.TaskID = w.taskID
	if err := x.store.CreateProperty(ctx, p); err != nil {
		return fmt.Errorf("create property: %w", err)
	}
	w.seen[k] = struct{}{}
	w.out.Properties = append(w.out.Properties, *p)
	w.out.Elements = append(w.out.Elements, el)
	return nil
}

// Property monta o retrato visual de uma folha; nil quando ela não tem box
func (x *Extractor) Property(ctx context.Context, el browser.Element, m browser.PageMetrics) (*model.Property, error) {
	text, err := el.Text(ctx)
	if err != nil {
		return nil, fmt.Errorf("text: %w", err)
	}
	g, err := ReadGeometry(ctx, el, m)
	if err != nil || g == nil {
		return nil, err
	}

	layers, err := el.Layers(ctx, x.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("layers: %w", err)
	}
	bg, err := ResolveBackground(layers, x.maxDepth)
	if err != nil {
		return nil, fmt.Errorf("background: %w", err)
	}
	rawText, err := el.TextColor(ctx)
	if err != nil {
		return nil, fmt.Errorf("text color: %w", err)
	}
	fg, err := ResolveForeground(rawText, bg.Color)
	if err != nil {
		return nil, err
	}

	return &model.Property{
		Geometry:        *g,
		Contrast:        colormath.ContrastRatio(fg.RGB(), bg.Color.RGB()),
		Text:            text,
		Matches:         x.filter.Matches(text),
		TextColor:       rawText,
		TextRGB:         fg.RGB(),
		BackgroundColor: bg.Raw,
		BackgroundRGB:   bg.Color.RGB(),
	}, nil
}

func (x *Extractor) skip(el browser.Element, stage string, err error) {
	level := x.log.Warn
	if errors.Is(err, model.ErrElementStale) {
		level = x.log.Info
	}
	level("element skipped", zap.String("element", el.Key()), zap.String("stage", stage), zap.Error(err))
}
