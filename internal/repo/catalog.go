package repo

import (
	"context"
	"fmt"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

// ListCompliances devolve o vocabulário na ordem de cadastro
func (p *Postgres) ListCompliances(ctx context.Context) ([]model.Compliance, error) {
	var out []model.Compliance
	if err := p.db.SelectContext(ctx, &out, `SELECT id, value, type FROM compliances ORDER BY id`); err != nil {
		return nil, persistErr("list compliances", err)
	}
	return out, nil
}

// GetBet carrega o site alvo
func (p *Postgres) GetBet(ctx context.Context, id int64) (*model.Bet, error) {
	var b model.Bet
	if err := p.db.GetContext(ctx, &b, `SELECT id, name, url, status, score FROM bets WHERE id = $1`, id); err != nil {
		return nil, persistErr(fmt.Sprintf("get bet %d", id), err)
	}
	return &b, nil
}

// BetSchedule é uma Bet com a recorrência associada
type BetSchedule struct {
	Bet  model.Bet
	Cron model.Cron
}

type betScheduleRow struct {
	model.Bet
	CronID   int64  `db:"cron_id"`
	CronExpr string `db:"cron_expression"`
}

// ListScheduledBets lista as Bets que possuem Cron
func (p *Postgres) ListScheduledBets(ctx context.Context) ([]BetSchedule, error) {
	var rows []betScheduleRow
	if err := p.db.SelectContext(ctx, &rows, `
		SELECT b.id, b.name, b.url, b.status, b.score, c.id AS cron_id, c.expression AS cron_expression
		FROM bets b JOIN crons c ON c.id = b.cron_id
		ORDER BY b.id`); err != nil {
		return nil, persistErr("list scheduled bets", err)
	}
	out := make([]BetSchedule, len(rows))
	for i, r := range rows {
		out[i] = BetSchedule{Bet: r.Bet, Cron: model.Cron{ID: r.CronID, Expression: r.CronExpr}}
	}
	return out, nil
}
