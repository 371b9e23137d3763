// Package repo implementa a persistência do scanner em Postgres (sqlx + lib/pq).
package repo

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

// Postgres concentra as queries de tasks, properties, ocrs, images, compliances e bets
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres retorna o repositório sobre uma conexão já aberta
func NewPostgres(db *sqlx.DB) *Postgres { return &Postgres{db: db} }

// Ping é usado pelo /healthz
func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

// persistErr marca falhas de banco como ErrPersistence; sql.ErrNoRows vira ErrNotFound
func persistErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, model.ErrNotFound)
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrPersistence, err)
}

// requireRows devolve notFound quando o comando não afetou linhas
func requireRows(op string, res sql.Result, err error, notFound error) error {
	if err != nil {
		return persistErr(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return persistErr(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, notFound)
	}
	return nil
}

// inTx roda fn numa transação; rollback em erro
func (p *Postgres) inTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return persistErr(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return persistErr(op, tx.Commit())
}

// jsonCol grava structs pequenas (box, viewport, rgb) em colunas jsonb
type jsonCol[T any] struct{ V T }

func (j jsonCol[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (j *jsonCol[T]) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		var zero T
		j.V = zero
		return nil
	case []byte:
		return json.Unmarshal(v, &j.V)
	case string:
		return json.Unmarshal([]byte(v), &j.V)
	}
	return fmt.Errorf("jsonb: unsupported source %T", src)
}

// geometryRow espelha model.Geometry nas colunas comuns de properties e ocrs
type geometryRow struct {
	ProportionPercentage   float64             `db:"proportion_percentage"`
	ScrollPercentage       float64             `db:"scroll_percentage"`
	DistanceToTop          float64             `db:"distance_to_top"`
	IsHidden               bool                `db:"is_hidden"`
	IsVisible              bool                `db:"is_visible"`
	IsInViewport           bool                `db:"is_in_viewport"`
	IsIntersectingViewport bool                `db:"is_intersecting_viewport"`
	HasChildNodes          bool                `db:"has_child_nodes"`
	Viewport               jsonCol[model.Size] `db:"viewport"`
	ElementBox             jsonCol[model.Box]  `db:"element_box"`
	PageDimensions         jsonCol[model.Size] `db:"page_dimensions"`
}

const geometryColumns = `proportion_percentage, scroll_percentage, distance_to_top,
	is_hidden, is_visible, is_in_viewport, is_intersecting_viewport, has_child_nodes,
	viewport, element_box, page_dimensions`

func (g geometryRow) model() model.Geometry {
	return model.Geometry{
		ProportionPercentage:   g.ProportionPercentage,
		ScrollPercentage:       g.ScrollPercentage,
		DistanceToTop:          g.DistanceToTop,
		IsHidden:               g.IsHidden,
		IsVisible:              g.IsVisible,
		IsInViewport:           g.IsInViewport,
		IsIntersectingViewport: g.IsIntersectingViewport,
		HasChildNodes:          g.HasChildNodes,
		Viewport:               g.Viewport.V,
		ElementBox:             g.ElementBox.V,
		PageDimensions:         g.PageDimensions.V,
	}
}

// geometryArgs segue a ordem de geometryColumns
func geometryArgs(g model.Geometry) []any {
	return []any{
		g.ProportionPercentage, g.ScrollPercentage, g.DistanceToTop,
		g.IsHidden, g.IsVisible, g.IsInViewport, g.IsIntersectingViewport, g.HasChildNodes,
		jsonCol[model.Size]{g.Viewport}, jsonCol[model.Box]{g.ElementBox}, jsonCol[model.Size]{g.PageDimensions},
	}
}
