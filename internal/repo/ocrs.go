package repo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

type ocrRow struct {
	ID     int64 `db:"id"`
	TaskID int64 `db:"task_id"`
	geometryRow
}

// CreateOCR insere a unidade OCR e preenche o id
func (p *Postgres) CreateOCR(ctx context.Context, o *model.OCR) error {
	args := append([]any{o.TaskID}, geometryArgs(o.Geometry)...)
	err := p.db.QueryRowxContext(ctx, `
		INSERT INTO ocrs (task_id, `+geometryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`, args...,
	).Scan(&o.ID)
	return persistErr("create ocr", err)
}

// GetOCR carrega a unidade com Images (conteúdo reconhecido) e Compliances atuais
func (p *Postgres) GetOCR(ctx context.Context, id int64) (*model.OCR, error) {
	op := fmt.Sprintf("get ocr %d", id)

	var row ocrRow
	if err := p.db.GetContext(ctx, &row, `SELECT id, task_id, `+geometryColumns+` FROM ocrs WHERE id = $1`, id); err != nil {
		return nil, persistErr(op, err)
	}
	o := &model.OCR{ID: row.ID, TaskID: row.TaskID, Geometry: row.geometryRow.model()}

	var imgs []imageRow
	if err := p.db.SelectContext(ctx, &imgs, `
		SELECT i.id, i.hash, i.path, i.content
		FROM images i JOIN ocr_images oi ON oi.image_id = i.id
		WHERE oi.ocr_id = $1 ORDER BY i.id`, id); err != nil {
		return nil, persistErr(op, err)
	}
	for _, r := range imgs {
		o.Images = append(o.Images, r.model())
	}

	if err := p.db.SelectContext(ctx, &o.Compliances, `
		SELECT c.id, c.value, c.type
		FROM compliances c JOIN ocr_compliances oc ON oc.compliance_id = c.id
		WHERE oc.ocr_id = $1 ORDER BY c.id`, id); err != nil {
		return nil, persistErr(op, err)
	}
	return o, nil
}

// SetOCRCompliances substitui o conjunto de compliances da unidade
func (p *Postgres) SetOCRCompliances(ctx context.Context, ocrID int64, complianceIDs []int64) error {
	op := fmt.Sprintf("set ocr %d compliances", ocrID)
	return p.inTx(ctx, op, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM ocr_compliances WHERE ocr_id = $1`, ocrID); err != nil {
			return persistErr(op, err)
		}
		if len(complianceIDs) == 0 {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ocr_compliances (ocr_id, compliance_id)
			SELECT $1, unnest($2::bigint[])
			ON CONFLICT DO NOTHING`, ocrID, pq.Array(complianceIDs)); err != nil {
			return persistErr(op, err)
		}
		return nil
	})
}

// ListOCRIDs devolve todas as unidades OCR, para o rematch
func (p *Postgres) ListOCRIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := p.db.SelectContext(ctx, &ids, `SELECT id FROM ocrs ORDER BY id`); err != nil {
		return nil, persistErr("list ocrs", err)
	}
	return ids, nil
}
