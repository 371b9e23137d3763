// Package browsertest traz implementações em memória de browser.Session e
// browser.Element para testes que não podem subir um navegador.
package browsertest

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/browser"
)

var seq atomic.Int64

// Element é um nó DOM falso; o texto inclui o dos filhos, como textContent
type Element struct {
	ID         string
	Own        string
	Background string
	Opacity    float64
	Color      string
	Box        *model.Box
	Shot       []byte
	Visible    bool
	Hidden     bool
	Intersects bool
	// Err é devolvido por toda chamada quando preenchido (ex.: model.ErrElementStale)
	Err error

	Parent *Element
	Kids   []*Element

	LayerCalls atomic.Int64
}

// NewElement cria um nó visível, transparente e opaco (opacity 1)
func NewElement(text string) *Element {
	return &Element{
		ID:         "fake:" + strconv.FormatInt(seq.Add(1), 10),
		Own:        text,
		Background: "rgba(0, 0, 0, 0)",
		Opacity:    1,
		Color:      "rgb(0, 0, 0)",
		Visible:    true,
		Intersects: true,
	}
}

// Add anexa filhos e devolve o próprio nó
func (e *Element) Add(kids ...*Element) *Element {
	for _, k := range kids {
		k.Parent = e
		e.Kids = append(e.Kids, k)
	}
	return e
}

// Flatten devolve o nó e descendentes em pré-ordem, como querySelectorAll("*")
func (e *Element) Flatten() []browser.Element {
	out := []browser.Element{e}
	for _, k := range e.Kids {
		out = append(out, k.Flatten()...)
	}
	return out
}

func (e *Element) Key() string { return e.ID }

func (e *Element) Text(context.Context) (string, error) {
	if e.Err != nil {
		return "", e.Err
	}
	return e.text(), nil
}

func (e *Element) text() string {
	parts := []string{}
	if e.Own != "" {
		parts = append(parts, e.Own)
	}
	for _, k := range e.Kids {
		if t := k.text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (e *Element) Children(context.Context) ([]browser.Element, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([]browser.Element, len(e.Kids))
	for i, k := range e.Kids {
		out[i] = k
	}
	return out, nil
}

func (e *Element) HasChildNodes(context.Context) (bool, error) {
	if e.Err != nil {
		return false, e.Err
	}
	return len(e.Kids) > 0 || e.Own != "", nil
}

func (e *Element) Layers(_ context.Context, maxDepth int) ([]browser.Layer, error) {
	e.LayerCalls.Add(1)
	if e.Err != nil {
		return nil, e.Err
	}
	var out []browser.Layer
	for n := e; n != nil && len(out) < maxDepth; n = n.Parent {
		out = append(out, browser.Layer{Background: n.Background, Opacity: n.Opacity})
	}
	return out, nil
}

func (e *Element) TextColor(context.Context) (string, error) {
	if e.Err != nil {
		return "", e.Err
	}
	return e.Color, nil
}

func (e *Element) BoundingBox(context.Context) (*model.Box, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	if e.Box == nil {
		return nil, nil
	}
	b := *e.Box
	return &b, nil
}

func (e *Element) Screenshot(context.Context) ([]byte, error) {
	if e.Err != nil {
		return nil, e.Err
	}
	return e.Shot, nil
}

func (e *Element) IsVisible(context.Context) (bool, error) { return e.Visible, e.Err }
func (e *Element) IsHidden(context.Context) (bool, error)  { return e.Hidden, e.Err }
func (e *Element) IsIntersectingViewport(context.Context) (bool, error) {
	return e.Intersects, e.Err
}

// Session é uma sessão falsa servindo uma árvore fixa
type Session struct {
	Root     *Element
	Page     browser.PageMetrics
	Full     []byte
	LoadErr  error
	ElemsErr error

	mu     sync.Mutex
	Loaded []string
	Saved  []string
	closed int
}

func (s *Session) Load(_ context.Context, url string) error {
	s.mu.Lock()
	s.Loaded = append(s.Loaded, url)
	s.mu.Unlock()
	return s.LoadErr
}

func (s *Session) Elements(context.Context) ([]browser.Element, error) {
	if s.ElemsErr != nil {
		return nil, s.ElemsErr
	}
	if s.Root == nil {
		return nil, nil
	}
	return s.Root.Flatten(), nil
}

func (s *Session) Metrics(context.Context) (browser.PageMetrics, error) { return s.Page, nil }

func (s *Session) Screenshot(context.Context) ([]byte, error) { return s.Full, nil }

func (s *Session) SavePageContent(ctx context.Context, w browser.ObjectWriter, key string) (string, error) {
	s.mu.Lock()
	s.Saved = append(s.Saved, key)
	s.mu.Unlock()
	return w.Put(ctx, key, []byte("%PDF-1.4 fake"), "application/pdf")
}

func (s *Session) Close() error {
	s.mu.Lock()
	s.closed++
	s.mu.Unlock()
	return nil
}

// Closed conta quantas vezes Close rodou
func (s *Session) Closed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Launcher entrega sempre a mesma sessão (ou LaunchErr)
type Launcher struct {
	Session   *Session
	LaunchErr error
	launches  atomic.Int64
}

func (l *Launcher) Launch(context.Context) (browser.Session, error) {
	l.launches.Add(1)
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	return l.Session, nil
}

// Launches conta as sessões abertas
func (l *Launcher) Launches() int { return int(l.launches.Load()) }
