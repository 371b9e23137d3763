package repo

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

type taskRow struct {
	ID           int64          `db:"id"`
	UUID         string         `db:"uuid"`
	Status       string         `db:"status"`
	ErrorMessage sql.NullString `db:"error_message"`
	Duration     sql.NullInt64  `db:"duration"`
	ScheduledAt  sql.NullTime   `db:"scheduled_at"`
	FinishedAt   sql.NullTime   `db:"finished_at"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`

	BetID     int64  `db:"bet_id"`
	BetName   string `db:"bet_name"`
	BetURL    string `db:"bet_url"`
	BetStatus string `db:"bet_status"`
	BetScore  int    `db:"bet_score"`

	UserID   sql.NullInt64  `db:"user_id"`
	UserName sql.NullString `db:"user_name"`
	CronID   sql.NullInt64  `db:"cron_id"`
	CronExpr sql.NullString `db:"cron_expression"`
}

const taskSelect = `SELECT t.id, t.uuid, t.status, t.error_message, t.duration,
	t.scheduled_at, t.finished_at, t.created_at, t.updated_at,
	b.id AS bet_id, b.name AS bet_name, b.url AS bet_url, b.status AS bet_status, b.score AS bet_score,
	u.id AS user_id, u.name AS user_name, c.id AS cron_id, c.expression AS cron_expression
	FROM tasks t
	JOIN bets b ON b.id = t.bet_id
	LEFT JOIN users u ON u.id = t.user_id
	LEFT JOIN crons c ON c.id = t.cron_id`

func (r taskRow) model() *model.Task {
	t := &model.Task{
		ID:        r.ID,
		UUID:      r.UUID,
		Status:    model.TaskStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Bet: model.Bet{
			ID: r.BetID, Name: r.BetName, URL: r.BetURL,
			Status: model.BetStatus(r.BetStatus), Score: r.BetScore,
		},
	}
	if r.ErrorMessage.Valid {
		t.ErrorMessage = &r.ErrorMessage.String
	}
	if r.Duration.Valid {
		t.Duration = &r.Duration.Int64
	}
	if r.ScheduledAt.Valid {
		t.ScheduledAt = &r.ScheduledAt.Time
	}
	if r.FinishedAt.Valid {
		t.FinishedAt = &r.FinishedAt.Time
	}
	if r.UserID.Valid {
		t.User = &model.User{ID: r.UserID.Int64, Name: r.UserName.String}
	}
	if r.CronID.Valid {
		t.Cron = &model.Cron{ID: r.CronID.Int64, Expression: r.CronExpr.String}
	}
	return t
}

// CreateTask insere a Task como Scheduled e preenche id, uuid e timestamps
func (p *Postgres) CreateTask(ctx context.Context, t *model.Task) error {
	if t.UUID == "" {
		t.UUID = uuid.NewString()
	}
	t.Status = model.TaskScheduled

	var userID, cronID *int64
	if t.User != nil {
		userID = &t.User.ID
	}
	if t.Cron != nil {
		cronID = &t.Cron.ID
	}
	err := p.db.QueryRowxContext(ctx, `
		INSERT INTO tasks (uuid, status, bet_id, user_id, cron_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`,
		t.UUID, string(t.Status), t.Bet.ID, userID, cronID,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return persistErr("create task", err)
}

// GetTask carrega a Task com Bet, User e Cron
func (p *Postgres) GetTask(ctx context.Context, id int64) (*model.Task, error) {
	var row taskRow
	if err := p.db.GetContext(ctx, &row, taskSelect+` WHERE t.id = $1`, id); err != nil {
		return nil, persistErr(fmt.Sprintf("get task %d", id), err)
	}
	return row.model(), nil
}

// TransitionTask aplica from -> to só se a linha ainda estiver em from.
// Zero linhas afetadas significa que outro handler já mudou o status.
func (p *Postgres) TransitionTask(ctx context.Context, id int64, from, to model.TaskStatus, patch model.TaskPatch) error {
	if err := model.ValidateTransition(from, to); err != nil {
		return err
	}
	res, err := p.db.ExecContext(ctx, `
		UPDATE tasks SET
			status = $3,
			scheduled_at = COALESCE($4, scheduled_at),
			finished_at = COALESCE($5, finished_at),
			duration = COALESCE($6, duration),
			error_message = COALESCE($7, error_message),
			updated_at = NOW()
		WHERE id = $1 AND status = $2`,
		id, string(from), string(to), patch.ScheduledAt, patch.FinishedAt, patch.Duration, patch.ErrorMessage,
	)
	return requireRows(fmt.Sprintf("transition task %d %s->%s", id, from, to), res, err,
		fmt.Errorf("%w: task %d is no longer %s", model.ErrInvalidTransition, id, from))
}
