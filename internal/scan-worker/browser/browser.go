// Package browser define a sessão isolada de navegador usada por uma Task e
// o handle opaco de elemento DOM consumido pelo indexador e pelos extratores.
package browser

import (
	"context"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

// Layer é o fundo computado de um nó da cadeia de ancestrais
type Layer struct {
	Background string  `json:"background"`
	Opacity    float64 `json:"opacity"`
}

// Element é o handle opaco de um nó DOM
type Element interface {
	// Key identifica o nó enquanto a página não recarrega
	Key() string
	Text(ctx context.Context) (string, error)
	Children(ctx context.Context) ([]Element, error)
	HasChildNodes(ctx context.Context) (bool, error)
	// Layers devolve o próprio nó no índice 0 seguido dos ancestrais, até maxDepth nós
	Layers(ctx context.Context, maxDepth int) ([]Layer, error)
	TextColor(ctx context.Context) (string, error)
	// BoundingBox é relativo ao viewport; nil quando o nó não é renderizado
	BoundingBox(ctx context.Context) (*model.Box, error)
	Screenshot(ctx context.Context) ([]byte, error)
	IsVisible(ctx context.Context) (bool, error)
	IsHidden(ctx context.Context) (bool, error)
	IsIntersectingViewport(ctx context.Context) (bool, error)
}

// PageMetrics descreve a página carregada
type PageMetrics struct {
	Viewport   model.Size `json:"viewport"`
	ScrollX    float64    `json:"scrollX"`
	ScrollY    float64    `json:"scrollY"`
	PageWidth  float64    `json:"pageWidth"`
	PageHeight float64    `json:"pageHeight"`
}

// Dimensions é o tamanho total da página
func (m PageMetrics) Dimensions() model.Size {
	return model.Size{Width: m.PageWidth, Height: m.PageHeight}
}

// ObjectWriter grava artefatos de evidência e devolve o caminho persistido
type ObjectWriter interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Session é uma sessão exclusiva de navegador; Close deve rodar exatamente uma vez por job
type Session interface {
	Load(ctx context.Context, url string) error
	Elements(ctx context.Context) ([]Element, error)
	Metrics(ctx context.Context) (PageMetrics, error)
	Screenshot(ctx context.Context) ([]byte, error)
	SavePageContent(ctx context.Context, w ObjectWriter, key string) (string, error)
	Close() error
}

// Launcher cria sessões isoladas
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
