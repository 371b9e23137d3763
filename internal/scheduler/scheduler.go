// Package scheduler cria Tasks, coloca na fila e aplica as transições de status
// disparadas pelo ciclo de vida de cada job.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/metrics"
	"github.com/Ashu11-A/BetScraper-API-sub000/pkg/contracts/events"
)

const publishTimeout = 5 * time.Second

// Store é o que o scheduler precisa da persistência de Tasks
type Store interface {
	CreateTask(ctx context.Context, t *model.Task) error
	GetTask(ctx context.Context, id int64) (*model.Task, error)
	TransitionTask(ctx context.Context, id int64, from, to model.TaskStatus, patch model.TaskPatch) error
}

// Queue é o produtor da fila de varredura
type Queue interface {
	Enqueue(ctx context.Context, job events.ScanJob) (string, error)
	Retry(ctx context.Context, job events.ScanJob) (string, error)
	CanRetry(attempt int) bool
}

// EventPublisher recebe cada transição aplicada
type EventPublisher interface {
	PublishTaskEvent(ctx context.Context, ev events.TaskEvent) error
}

// Job é o handle devolvido por AddToQueue
type Job struct {
	ID      string // id da mensagem no stream
	Task    *model.Task
	Attempt int
}

type Scheduler struct {
	log     *zap.Logger
	store   Store
	queue   Queue
	events  EventPublisher
	metrics *metrics.Scan
	locks   keyedLock
	now     func() time.Time
}

// New monta o scheduler; publisher e métricas podem ser nil
func New(log *zap.Logger, store Store, queue Queue, publisher EventPublisher, m *metrics.Scan) *Scheduler {
	return &Scheduler{
		log:     log,
		store:   store,
		queue:   queue,
		events:  publisher,
		metrics: m,
		now:     time.Now,
	}
}

// AddToQueue persiste a Task como Scheduled e enfileira o job {task}
func (s *Scheduler) AddToQueue(ctx context.Context, bet model.Bet, user *model.User, cron *model.Cron) (*Job, error) {
	t := &model.Task{Bet: bet, User: user, Cron: cron}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("create task for bet %d: %w", bet.ID, err)
	}

	job := events.ScanJob{Task: *t, Attempt: 1}
	id, err := s.queue.Enqueue(ctx, job)
	if err != nil {
		// sem mensagem na fila a Task ficaria Scheduled pra sempre
		msg := "enqueue failed: " + err.Error()
		if perr := s.store.TransitionTask(ctx, t.ID, model.TaskScheduled, model.TaskPaused, model.TaskPatch{ErrorMessage: &msg}); perr != nil {
			s.log.Error("pause orphan task", zap.Int64("task_id", t.ID), zap.Error(perr))
		}
		return nil, fmt.Errorf("enqueue task %d: %w", t.ID, err)
	}

	if s.metrics != nil {
		metrics.Inc(s.metrics.Enqueued)
	}
	s.publish(ctx, t, "", model.TaskScheduled, 1, "")
	s.log.Info("task enqueued",
		zap.Int64("task_id", t.ID),
		zap.String("task_uuid", t.UUID),
		zap.Int64("bet_id", bet.ID),
		zap.String("job_id", id),
	)
	return &Job{ID: id, Task: t, Attempt: 1}, nil
}

// MarkActive: Scheduled -> Running, scheduledAt = agora
func (s *Scheduler) MarkActive(ctx context.Context, job events.ScanJob) (*model.Task, error) {
	unlock := s.locks.Lock(job.Task.ID)
	defer unlock()

	t, err := s.apply(ctx, job, model.TaskRunning, func(_ *model.Task, now time.Time) model.TaskPatch {
		return model.TaskPatch{ScheduledAt: &now}
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		metrics.Inc(s.metrics.Started)
	}
	return t, nil
}

// MarkCompleted: Running -> Completed, finishedAt = agora, duration = finishedAt - scheduledAt
func (s *Scheduler) MarkCompleted(ctx context.Context, job events.ScanJob) (*model.Task, error) {
	unlock := s.locks.Lock(job.Task.ID)
	defer unlock()

	t, err := s.apply(ctx, job, model.TaskCompleted, func(t *model.Task, now time.Time) model.TaskPatch {
		d := duration(t, now)
		return model.TaskPatch{FinishedAt: &now, Duration: &d}
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		metrics.Inc(s.metrics.Completed)
	}
	return t, nil
}

// MarkPaused tira a Task do fluxo a partir de Scheduled ou Running
func (s *Scheduler) MarkPaused(ctx context.Context, job events.ScanJob) (*model.Task, error) {
	unlock := s.locks.Lock(job.Task.ID)
	defer unlock()

	t, err := s.apply(ctx, job, model.TaskPaused, nil)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		metrics.Inc(s.metrics.Paused)
	}
	return t, nil
}

// HandleFailure decide entre retry e Failed conforme o orçamento de tentativas.
// O reenfileiramento acontece sob o lock da task, então a nova entrega só
// consegue ir pra Running depois que a Task voltou pra Scheduled.
func (s *Scheduler) HandleFailure(ctx context.Context, job events.ScanJob, cause error) (retried bool, err error) {
	unlock := s.locks.Lock(job.Task.ID)
	defer unlock()

	if !s.queue.CanRetry(job.Attempt) {
		_, err := s.fail(ctx, job, cause)
		return false, err
	}

	// o status muda antes do enqueue: se a gravação falhar, nenhuma nova tentativa fica na fila
	msg := cause.Error()
	if _, err := s.apply(ctx, job, model.TaskScheduled, func(*model.Task, time.Time) model.TaskPatch {
		return model.TaskPatch{ErrorMessage: &msg}
	}); err != nil {
		return false, err
	}

	if _, qerr := s.queue.Retry(ctx, job); qerr != nil {
		s.log.Error("requeue failed, pausing task", zap.Int64("task_id", job.Task.ID), zap.Error(qerr))
		pmsg := fmt.Sprintf("%s (requeue: %v)", msg, qerr)
		if _, perr := s.apply(ctx, job, model.TaskPaused, func(*model.Task, time.Time) model.TaskPatch {
			return model.TaskPatch{ErrorMessage: &pmsg}
		}); perr != nil {
			s.log.Error("pause orphan task", zap.Int64("task_id", job.Task.ID), zap.Error(perr))
		}
		return false, fmt.Errorf("requeue task %d: %w", job.Task.ID, qerr)
	}
	if s.metrics != nil {
		metrics.Inc(s.metrics.Retried)
	}
	return true, nil
}

// fail: Running -> Failed com a causa em errorMessage
func (s *Scheduler) fail(ctx context.Context, job events.ScanJob, cause error) (*model.Task, error) {
	msg := cause.Error()
	t, err := s.apply(ctx, job, model.TaskFailed, func(*model.Task, time.Time) model.TaskPatch {
		return model.TaskPatch{ErrorMessage: &msg}
	})
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		metrics.Inc(s.metrics.Failed)
	}
	return t, nil
}

// apply lê o status atual, valida e grava a transição condicional.
// Quem chama precisa estar segurando o lock da task.
func (s *Scheduler) apply(ctx context.Context, job events.ScanJob, to model.TaskStatus, patchFn func(*model.Task, time.Time) model.TaskPatch) (*model.Task, error) {
	t, err := s.store.GetTask(ctx, job.Task.ID)
	if err != nil {
		return nil, fmt.Errorf("load task %d: %w", job.Task.ID, err)
	}
	from := t.Status
	if err := model.ValidateTransition(from, to); err != nil {
		return nil, fmt.Errorf("task %d: %w", t.ID, err)
	}

	now := s.now()
	var patch model.TaskPatch
	if patchFn != nil {
		patch = patchFn(t, now)
	}
	if err := s.store.TransitionTask(ctx, t.ID, from, to, patch); err != nil {
		return nil, err
	}

	t.Status = to
	if patch.ScheduledAt != nil {
		t.ScheduledAt = patch.ScheduledAt
	}
	if patch.FinishedAt != nil {
		t.FinishedAt = patch.FinishedAt
	}
	if patch.Duration != nil {
		t.Duration = patch.Duration
	}
	if patch.ErrorMessage != nil {
		t.ErrorMessage = patch.ErrorMessage
	}

	errMsg := ""
	if patch.ErrorMessage != nil {
		errMsg = *patch.ErrorMessage
	}
	s.log.Info("task transition",
		zap.Int64("task_id", t.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Int("attempt", job.Attempt),
	)
	s.publish(ctx, t, from, to, job.Attempt, errMsg)
	return t, nil
}

// publish é best-effort: falha no broker não desfaz a transição
func (s *Scheduler) publish(ctx context.Context, t *model.Task, from, to model.TaskStatus, attempt int, errMsg string) {
	if s.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	ev := events.TaskEvent{
		TaskID:   t.ID,
		TaskUUID: t.UUID,
		BetID:    t.Bet.ID,
		From:     string(from),
		To:       string(to),
		Attempt:  attempt,
		Error:    errMsg,
		Ts:       s.now().UTC(),
	}
	if to == model.TaskCompleted {
		ev.DurationMs = t.Duration
	}
	if err := s.events.PublishTaskEvent(pctx, ev); err != nil {
		s.log.Warn("publish task event", zap.Int64("task_id", t.ID), zap.String("to", string(to)), zap.Error(err))
	}
}

// duration em ms a partir do scheduledAt carimbado no dispatch
func duration(t *model.Task, finished time.Time) int64 {
	start := t.CreatedAt
	if t.ScheduledAt != nil {
		start = *t.ScheduledAt
	}
	d := finished.Sub(start).Milliseconds()
	if d < 0 {
		return 0
	}
	return d
}
