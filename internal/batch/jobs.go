package batch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/compliance/matcher"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/ocr"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/dedup"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/screenshot"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/storage"
)

// Store é a persistência lida e escrita pelos scripts
type Store interface {
	matcher.Store
	dedup.Store
	ImagesWithoutContent(ctx context.Context) ([]model.Image, error)
	OCRIDsByImage(ctx context.Context, imageID int64) ([]int64, error)
	DuplicateHashes(ctx context.Context) ([]string, error)
	ListOCRIDs(ctx context.Context) ([]int64, error)
	ListCompliances(ctx context.Context) ([]model.Compliance, error)
}

type Jobs struct {
	log     *zap.Logger
	store   Store
	files   storage.Store
	ocr     ocr.Recognizer
	matcher *matcher.Matcher
	dedup   *dedup.Deduplicator
	limit   int
}

func New(log *zap.Logger, store Store, files storage.Store, rec ocr.Recognizer, threshold float64, limit int) *Jobs {
	return &Jobs{
		log:     log,
		store:   store,
		files:   files,
		ocr:     rec,
		matcher: matcher.New(log, threshold),
		dedup:   dedup.New(log, store),
		limit:   limit,
	}
}

// OCRBackfill reconhece toda Image sem conteúdo e recalcula as unidades OCR ligadas a ela
func (j *Jobs) OCRBackfill(ctx context.Context) (Summary, error) {
	vocab, err := j.store.ListCompliances(ctx)
	if err != nil {
		return Summary{Job: "ocr-backfill"}, fmt.Errorf("load vocabulary: %w", err)
	}
	imgs, err := j.store.ImagesWithoutContent(ctx)
	if err != nil {
		return Summary{Job: "ocr-backfill"}, fmt.Errorf("list pending images: %w", err)
	}
	return Run(ctx, j.log, "ocr-backfill", j.limit, imgs,
		func(img model.Image) zap.Field { return zap.Int64("image_id", img.ID) },
		func(ctx context.Context, img model.Image) error { return j.backfill(ctx, img, vocab) },
	)
}

func (j *Jobs) backfill(ctx context.Context, img model.Image, vocab []model.Compliance) error {
	data, err := j.files.Get(ctx, img.Path)
	if err != nil {
		return fmt.Errorf("load %s: %w", img.Path, err)
	}
	norm, err := screenshot.Normalize(data)
	if err != nil {
		return err
	}
	lines, err := j.ocr.Recognize(ctx, norm)
	if err != nil {
		return err
	}
	if err := j.store.SetImageContent(ctx, img.ID, lines); err != nil {
		return err
	}

	ids, err := j.store.OCRIDsByImage(ctx, img.ID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := j.matcher.Apply(ctx, j.store, id, vocab); err != nil {
			return err
		}
	}
	return nil
}

// DedupImages funde cada grupo de Images com o mesmo hash
func (j *Jobs) DedupImages(ctx context.Context) (Summary, error) {
	hashes, err := j.store.DuplicateHashes(ctx)
	if err != nil {
		return Summary{Job: "dedup-images"}, fmt.Errorf("list duplicate hashes: %w", err)
	}
	return Run(ctx, j.log, "dedup-images", j.limit, hashes,
		func(h string) zap.Field { return zap.String("hash", h) },
		func(ctx context.Context, h string) error {
			_, err := j.dedup.MergeHash(ctx, h)
			return err
		},
	)
}

// Rematch recalcula o conjunto de compliances de todas as unidades OCR
func (j *Jobs) Rematch(ctx context.Context) (Summary, error) {
	vocab, err := j.store.ListCompliances(ctx)
	if err != nil {
		return Summary{Job: "rematch"}, fmt.Errorf("load vocabulary: %w", err)
	}
	ids, err := j.store.ListOCRIDs(ctx)
	if err != nil {
		return Summary{Job: "rematch"}, fmt.Errorf("list ocrs: %w", err)
	}
	return Run(ctx, j.log, "rematch", j.limit, ids,
		func(id int64) zap.Field { return zap.Int64("ocr_id", id) },
		func(ctx context.Context, id int64) error {
			_, err := j.matcher.Apply(ctx, j.store, id, vocab)
			return err
		},
	)
}
