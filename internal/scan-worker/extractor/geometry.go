package extractor

import (
	"context"
	"fmt"
	"math"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/browser"
)

// ComputeGeometry converte o bounding box relativo ao viewport em posições
// absolutas da página. Porcentagens nunca saem negativas nem NaN.
func ComputeGeometry(box model.Box, m browser.PageMetrics) model.Geometry {
	distance := box.Y + m.ScrollY
	return model.Geometry{
		ProportionPercentage: percent(box.Width, m.Viewport.Width),
		ScrollPercentage:     percent(distance, m.PageHeight),
		DistanceToTop:        distance,
		IsInViewport:         distance <= m.Viewport.Height,
		Viewport:             m.Viewport,
		ElementBox:           box,
		PageDimensions:       m.Dimensions(),
	}
}

func percent(part, whole float64) float64 {
	if whole <= 0 || math.IsNaN(part) || math.IsInf(part, 0) {
		return 0
	}
	return math.Max(0, part/whole*100)
}

// ReadGeometry lê box e flags de um elemento; box nil significa não renderizado
func ReadGeometry(ctx context.Context, el browser.Element, m browser.PageMetrics) (*model.Geometry, error) {
	box, err := el.BoundingBox(ctx)
	if err != nil {
		return nil, fmt.Errorf("bounding box: %w", err)
	}
	if box == nil {
		return nil, nil
	}
	g := ComputeGeometry(*box, m)

	if g.IsVisible, err = el.IsVisible(ctx); err != nil {
		return nil, fmt.Errorf("is visible: %w", err)
	}
	if g.IsHidden, err = el.IsHidden(ctx); err != nil {
		return nil, fmt.Errorf("is hidden: %w", err)
	}
	if g.IsIntersectingViewport, err = el.IsIntersectingViewport(ctx); err != nil {
		return nil, fmt.Errorf("intersecting viewport: %w", err)
	}
	if g.HasChildNodes, err = el.HasChildNodes(ctx); err != nil {
		return nil, fmt.Errorf("has child nodes: %w", err)
	}
	return &g, nil
}
