package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

type imageRow struct {
	ID      int64          `db:"id"`
	Hash    string         `db:"hash"`
	Path    string         `db:"path"`
	Content pq.StringArray `db:"content"`
	OCRIDs  pq.Int64Array  `db:"ocr_ids"`
}

func (r imageRow) model() model.Image {
	img := model.Image{ID: r.ID, Hash: r.Hash, Path: r.Path}
	if r.Content != nil {
		img.Content = []string(r.Content)
	}
	if len(r.OCRIDs) > 0 {
		img.OCRIDs = []int64(r.OCRIDs)
	}
	return img
}

const imageSelect = `SELECT i.id, i.hash, i.path, i.content,
	COALESCE(array_agg(oi.ocr_id ORDER BY oi.ocr_id) FILTER (WHERE oi.ocr_id IS NOT NULL), '{}') AS ocr_ids
	FROM images i LEFT JOIN ocr_images oi ON oi.image_id = i.id`

func (p *Postgres) selectImages(ctx context.Context, op, where string, args ...any) ([]model.Image, error) {
	var rows []imageRow
	q := imageSelect + ` ` + where + ` GROUP BY i.id ORDER BY i.id`
	if err := p.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, persistErr(op, err)
	}
	out := make([]model.Image, len(rows))
	for i, r := range rows {
		out[i] = r.model()
	}
	return out, nil
}

// ImagesByHash devolve as linhas do hash, por id crescente
func (p *Postgres) ImagesByHash(ctx context.Context, hash string) ([]model.Image, error) {
	return p.selectImages(ctx, "images by hash", `WHERE i.hash = $1`, hash)
}

// ImagesWithoutContent lista as imagens que o OCR ainda não processou
func (p *Postgres) ImagesWithoutContent(ctx context.Context) ([]model.Image, error) {
	return p.selectImages(ctx, "images without content", `WHERE i.content IS NULL`)
}

// DuplicateHashes lista hashes com mais de uma linha
func (p *Postgres) DuplicateHashes(ctx context.Context) ([]string, error) {
	var hashes []string
	if err := p.db.SelectContext(ctx, &hashes,
		`SELECT hash FROM images GROUP BY hash HAVING COUNT(*) > 1 ORDER BY hash`); err != nil {
		return nil, persistErr("duplicate hashes", err)
	}
	return hashes, nil
}

// CreateImage insere a imagem sem conteúdo e preenche o id
func (p *Postgres) CreateImage(ctx context.Context, img *model.Image) error {
	var content any
	if img.Content != nil {
		content = pq.Array(img.Content)
	}
	err := p.db.QueryRowxContext(ctx,
		`INSERT INTO images (hash, path, content) VALUES ($1, $2, $3) RETURNING id`,
		img.Hash, img.Path, content,
	).Scan(&img.ID)
	return persistErr("create image", err)
}

// AddImageOCRs associa unidades OCR à imagem; pares existentes são ignorados
func (p *Postgres) AddImageOCRs(ctx context.Context, imageID int64, ocrIDs []int64) error {
	if len(ocrIDs) == 0 {
		return nil
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO ocr_images (image_id, ocr_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`, imageID, pq.Array(ocrIDs))
	return persistErr(fmt.Sprintf("link image %d", imageID), err)
}

// SetImageContent grava as linhas reconhecidas
func (p *Postgres) SetImageContent(ctx context.Context, imageID int64, lines []string) error {
	if lines == nil {
		lines = []string{}
	}
	res, err := p.db.ExecContext(ctx, `UPDATE images SET content = $2 WHERE id = $1`, imageID, pq.Array(lines))
	return requireRows(fmt.Sprintf("set image %d content", imageID), res, err, model.ErrNotFound)
}

// DeleteImage remove a imagem e suas associações
func (p *Postgres) DeleteImage(ctx context.Context, imageID int64) error {
	op := fmt.Sprintf("delete image %d", imageID)
	return p.inTx(ctx, op, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM ocr_images WHERE image_id = $1`, imageID); err != nil {
			return persistErr(op, err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, imageID)
		return requireRows(op, res, err, model.ErrNotFound)
	})
}

// OCRIDsByImage lista as unidades OCR que usam a imagem
func (p *Postgres) OCRIDsByImage(ctx context.Context, imageID int64) ([]int64, error) {
	var ids []int64
	if err := p.db.SelectContext(ctx, &ids,
		`SELECT ocr_id FROM ocr_images WHERE image_id = $1 ORDER BY ocr_id`, imageID); err != nil {
		return nil, persistErr(fmt.Sprintf("ocrs of image %d", imageID), err)
	}
	return ids, nil
}
