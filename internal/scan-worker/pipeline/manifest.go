package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/storage"
)

// ManifestEntry é uma linha do metadata.json da Task
type ManifestEntry struct {
	Name                   string     `json:"name"`
	Path                   string     `json:"path"`
	IsHidden               bool       `json:"isHidden"`
	IsVisible              bool       `json:"isVisible"`
	IsInViewport           bool       `json:"isInViewport"`
	IsIntersectingViewport bool       `json:"isIntersectingViewport"`
	HasChildNodes          bool       `json:"hasChildNodes"`
	DistanceToTop          float64    `json:"distanceToTop"`
	ProportionPercentage   float64    `json:"proportionPercentage"`
	ScrollPercentage       float64    `json:"scrollPercentage"`
	ElementBox             model.Box  `json:"elementBox"`
	Viewport               model.Size `json:"viewport"`
}

func newManifestEntry(name, path string, g model.Geometry) ManifestEntry {
	return ManifestEntry{
		Name:                   name,
		Path:                   path,
		IsHidden:               g.IsHidden,
		IsVisible:              g.IsVisible,
		IsInViewport:           g.IsInViewport,
		IsIntersectingViewport: g.IsIntersectingViewport,
		HasChildNodes:          g.HasChildNodes,
		DistanceToTop:          g.DistanceToTop,
		ProportionPercentage:   g.ProportionPercentage,
		ScrollPercentage:       g.ScrollPercentage,
		ElementBox:             g.ElementBox,
		Viewport:               g.Viewport,
	}
}

// writeManifest grava metadata.json; sem recortes vira "[]"
func (p *Pipeline) writeManifest(ctx context.Context, r *run) error {
	entries := r.rep.Manifest
	if entries == nil {
		entries = []ManifestEntry{}
	}
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if _, err := p.files.Put(ctx, storage.Key(r.dir, "metadata.json"), b, "application/json"); err != nil {
		return fmt.Errorf("store manifest: %w", err)
	}
	return nil
}
