// Package dedup endereça screenshots pelo hash do conteúdo e funde linhas de
// Image duplicadas, unindo as associações com unidades OCR.
package dedup

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

// Store é a persistência de Image usada pelo deduplicador
type Store interface {
	// ImagesByHash devolve as linhas com o hash, por id crescente, com OCRIDs preenchido
	ImagesByHash(ctx context.Context, hash string) ([]model.Image, error)
	CreateImage(ctx context.Context, img *model.Image) error
	AddImageOCRs(ctx context.Context, imageID int64, ocrIDs []int64) error
	SetImageContent(ctx context.Context, imageID int64, lines []string) error
	DeleteImage(ctx context.Context, imageID int64) error
}

type Deduplicator struct {
	log   *zap.Logger
	store Store
}

func New(log *zap.Logger, store Store) *Deduplicator {
	return &Deduplicator{log: log, store: store}
}

// Attach associa a unidade OCR à Image do hash, criando a linha se preciso.
// Depois de criar, relê o hash e funde caso outro worker tenha criado a mesma.
func (d *Deduplicator) Attach(ctx context.Context, hash, path string, ocrID int64) (*model.Image, error) {
	imgs, err := d.store.ImagesByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("images by hash: %w", err)
	}
	if len(imgs) == 0 {
		img := &model.Image{Hash: hash, Path: path}
		if err := d.store.CreateImage(ctx, img); err != nil {
			return nil, fmt.Errorf("create image: %w", err)
		}
		if err := d.store.AddImageOCRs(ctx, img.ID, []int64{ocrID}); err != nil {
			return nil, fmt.Errorf("link image %d: %w", img.ID, err)
		}
		img.OCRIDs = []int64{ocrID}

		if imgs, err = d.store.ImagesByHash(ctx, hash); err != nil {
			return nil, fmt.Errorf("images by hash: %w", err)
		}
		if len(imgs) <= 1 {
			return img, nil
		}
		return d.Merge(ctx, imgs)
	}

	keep, err := d.Merge(ctx, imgs)
	if err != nil {
		return nil, err
	}
	if missing := Missing(keep.OCRIDs, []int64{ocrID}); len(missing) > 0 {
		if err := d.store.AddImageOCRs(ctx, keep.ID, missing); err != nil {
			return nil, fmt.Errorf("link image %d: %w", keep.ID, err)
		}
		keep.OCRIDs = append(keep.OCRIDs, missing...)
	}
	return keep, nil
}

// Merge funde as linhas na primeira (menor id): associações unidas sem
// repetição, conteúdo herdado se a primeira ainda não tem, duplicadas apagadas.
func (d *Deduplicator) Merge(ctx context.Context, imgs []model.Image) (*model.Image, error) {
	if len(imgs) == 0 {
		return nil, fmt.Errorf("merge: %w", model.ErrNotFound)
	}
	keep := imgs[0]
	for _, dup := range imgs[1:] {
		if missing := Missing(keep.OCRIDs, dup.OCRIDs); len(missing) > 0 {
			if err := d.store.AddImageOCRs(ctx, keep.ID, missing); err != nil {
				return nil, fmt.Errorf("link image %d: %w", keep.ID, err)
			}
		}
		keep.OCRIDs = Union(keep.OCRIDs, dup.OCRIDs)

		if keep.Content == nil && dup.Content != nil {
			if err := d.store.SetImageContent(ctx, keep.ID, dup.Content); err != nil {
				return nil, fmt.Errorf("copy content to image %d: %w", keep.ID, err)
			}
			keep.Content = dup.Content
		}
		if err := d.store.DeleteImage(ctx, dup.ID); err != nil {
			return nil, fmt.Errorf("delete duplicate image %d: %w", dup.ID, err)
		}
		d.log.Info("duplicate image merged",
			zap.String("hash", keep.Hash), zap.Int64("kept", keep.ID), zap.Int64("deleted", dup.ID), zap.Int("ocrs", len(keep.OCRIDs)))
	}
	return &keep, nil
}

// MergeHash funde todas as linhas de um hash; usado pela varredura offline
func (d *Deduplicator) MergeHash(ctx context.Context, hash string) (*model.Image, error) {
	imgs, err := d.store.ImagesByHash(ctx, hash)
	if err != nil {
		return nil, fmt.Errorf("images by hash: %w", err)
	}
	return d.Merge(ctx, imgs)
}

// Missing lista, sem repetição, os ids de extra que não estão em base
func Missing(base, extra []int64) []int64 {
	have := make(map[int64]struct{}, len(base))
	for _, id := range base {
		have[id] = struct{}{}
	}
	var out []int64
	for _, id := range extra {
		if _, ok := have[id]; ok {
			continue
		}
		have[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Union devolve base seguido dos ids de extra ausentes em base, sem repetição
func Union(base, extra []int64) []int64 {
	seen := make(map[int64]struct{}, len(base)+len(extra))
	out := make([]int64, 0, len(base)+len(extra))
	for _, id := range base {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range extra {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
