package repo

import (
	"context"
	"fmt"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

type propertyRow struct {
	ID     int64 `db:"id"`
	TaskID int64 `db:"task_id"`
	geometryRow

	Contrast        float64            `db:"contrast"`
	Text            string             `db:"text"`
	TextColor       string             `db:"text_color"`
	TextRGB         jsonCol[model.RGB] `db:"text_rgb"`
	BackgroundColor string             `db:"background_color"`
	BackgroundRGB   jsonCol[model.RGB] `db:"background_rgb"`
}

// ListProperties devolve as Properties já gravadas para a Task
func (p *Postgres) ListProperties(ctx context.Context, taskID int64) ([]model.Property, error) {
	var rows []propertyRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT id, task_id, `+geometryColumns+`,
			contrast, text, text_color, text_rgb, background_color, background_rgb
		FROM properties WHERE task_id = $1 ORDER BY id`, taskID)
	if err != nil {
		return nil, persistErr(fmt.Sprintf("list properties of task %d", taskID), err)
	}
	out := make([]model.Property, len(rows))
	for i, r := range rows {
		out[i] = model.Property{
			ID:              r.ID,
			TaskID:          r.TaskID,
			Geometry:        r.geometryRow.model(),
			Contrast:        r.Contrast,
			Text:            r.Text,
			TextColor:       r.TextColor,
			TextRGB:         r.TextRGB.V,
			BackgroundColor: r.BackgroundColor,
			BackgroundRGB:   r.BackgroundRGB.V,
		}
	}
	return out, nil
}

// CreateProperty insere a Property e preenche o id
func (p *Postgres) CreateProperty(ctx context.Context, prop *model.Property) error {
	args := append([]any{prop.TaskID}, geometryArgs(prop.Geometry)...)
	args = append(args,
		prop.Contrast, prop.Text, prop.TextColor, jsonCol[model.RGB]{prop.TextRGB},
		prop.BackgroundColor, jsonCol[model.RGB]{prop.BackgroundRGB},
	)
	err := p.db.QueryRowxContext(ctx, `
		INSERT INTO properties (task_id, `+geometryColumns+`,
			contrast, text, text_color, text_rgb, background_color, background_rgb)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`, args...,
	).Scan(&prop.ID)
	return persistErr("create property", err)
}
