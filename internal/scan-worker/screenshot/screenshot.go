// Package screenshot captura recortes por elemento, aplica o limite de tamanho
// e prepara as imagens para o OCR.
package screenshot

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/browser"
)

// DefaultMaxBytes é o teto por screenshot (500KB)
const DefaultMaxBytes = 500 * 1024

// Shot é um recorte aceito; Index é a posição do elemento na entrada
type Shot struct {
	Index   int
	Element browser.Element
	Box     model.Box
	Data    []byte
}

type Capturer struct {
	log      *zap.Logger
	maxBytes int
}

func New(log *zap.Logger, maxBytes int) *Capturer {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Capturer{log: log, maxBytes: maxBytes}
}

// GetScreenshots captura um recorte por elemento com box não degenerado.
// Recortes acima do limite e elementos que falham são pulados, não retornados como erro.
func (c *Capturer) GetScreenshots(ctx context.Context, els []browser.Element) ([]Shot, error) {
	out := make([]Shot, 0, len(els))
	for i, el := range els {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		shot, err := c.capture(ctx, el)
		switch {
		case err == nil && shot == nil:
			c.log.Debug("degenerate box, no screenshot", zap.Int("index", i), zap.String("element", el.Key()))
		case errors.Is(err, model.ErrScreenshotTooLarge):
			c.log.Info("screenshot over size cap, discarded", zap.Int("index", i), zap.Error(err))
		case err != nil:
			c.log.Warn("screenshot failed, skipping element", zap.Int("index", i), zap.String("element", el.Key()), zap.Error(err))
		default:
			shot.Index = i
			out = append(out, *shot)
		}
	}
	return out, nil
}

func (c *Capturer) capture(ctx context.Context, el browser.Element) (*Shot, error) {
	box, err := el.BoundingBox(ctx)
	if err != nil {
		return nil, err
	}
	if box == nil || box.Width <= 0 || box.Height <= 0 {
		return nil, nil
	}
	data, err := el.Screenshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	if len(data) > c.maxBytes {
		return nil, fmt.Errorf("%w: %d bytes > %d", model.ErrScreenshotTooLarge, len(data), c.maxBytes)
	}
	return &Shot{Element: el, Box: *box, Data: data}, nil
}
