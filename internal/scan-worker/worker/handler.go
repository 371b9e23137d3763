package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/pipeline"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/queue"
	"github.com/Ashu11-A/BetScraper-API-sub000/pkg/contracts/events"
)

// ErrWorkerLost marca entregas reclamadas de um consumer que morreu com a Task em Running
var ErrWorkerLost = errors.New("worker lost during scan")

// Lifecycle são os handlers de transição do scheduler
type Lifecycle interface {
	MarkActive(ctx context.Context, job events.ScanJob) (*model.Task, error)
	MarkCompleted(ctx context.Context, job events.ScanJob) (*model.Task, error)
	HandleFailure(ctx context.Context, job events.ScanJob, cause error) (bool, error)
}

// Runner é o corpo do job
type Runner interface {
	Run(ctx context.Context, task *model.Task, attempt int) (*pipeline.Report, error)
}

// Acker confirma a entrega na fila
type Acker interface {
	Ack(ctx context.Context, id string) error
}

// Toucher renova a posse da entrega enquanto o job roda
type Toucher interface {
	Touch(ctx context.Context, consumer, id string) error
}

type Handler struct {
	Log       *zap.Logger
	Lifecycle Lifecycle
	Runner    Runner
	Queue     Acker

	// Heartbeat precisa ser bem menor que o ReclaimIdle do consumer
	Heartbeat      Toucher
	HeartbeatEvery time.Duration
}

// Handle roda uma entrega do começo ao fim. O retry é uma nova mensagem
// publicada pelo scheduler, então a entrega é confirmada ao final. A exceção é
// quando a Task não pôde ser gravada: a entrega fica pendente e volta por Reclaim.
func (h *Handler) Handle(ctx context.Context, d queue.Delivery) error {
	job := d.Job
	log := h.Log.With(
		zap.String("delivery", d.ID),
		zap.Int64("task_id", job.Task.ID),
		zap.Int("attempt", job.Attempt),
	)
	stop := h.heartbeat(ctx, log, d)
	var keep bool
	defer func() {
		stop()
		if keep {
			log.Warn("task state not persisted, delivery left pending for reclaim")
			return
		}
		if aerr := h.Queue.Ack(context.WithoutCancel(ctx), d.ID); aerr != nil {
			log.Warn("ack failed", zap.Error(aerr))
		}
	}()

	task, err := h.Lifecycle.MarkActive(ctx, job)
	if err != nil {
		if d.Reclaimed && errors.Is(err, model.ErrInvalidTransition) {
			keep, err = h.fail(ctx, log, job, ErrWorkerLost)
			return err
		}
		if errors.Is(err, model.ErrPersistence) {
			keep = true
			return err
		}
		log.Warn("task not dispatchable, dropping delivery", zap.Error(err))
		return err
	}

	rep, err := h.run(ctx, task, job.Attempt)
	if err != nil {
		keep, err = h.fail(ctx, log, job, err)
		return err
	}

	// o ctx do job pode ter sido cancelado no shutdown; a conclusão precisa ser gravada
	if _, err := h.Lifecycle.MarkCompleted(context.WithoutCancel(ctx), job); err != nil {
		log.Error("mark completed", zap.Error(err))
		keep, err = h.fail(ctx, log, job, fmt.Errorf("mark completed: %w", err))
		return err
	}
	log.Info("scan completed", zap.Int("properties", rep.Properties), zap.Int("matches", rep.Matches))
	return nil
}

// heartbeat renova a entrega a cada HeartbeatEvery até o stop devolvido
func (h *Handler) heartbeat(ctx context.Context, log *zap.Logger, d queue.Delivery) (stop func()) {
	if h.Heartbeat == nil || h.HeartbeatEvery <= 0 || d.Consumer == "" {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(h.HeartbeatEvery)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := h.Heartbeat.Touch(context.WithoutCancel(ctx), d.Consumer, d.ID); err != nil {
					log.Warn("delivery heartbeat failed", zap.Error(err))
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

// fail passa a falha ao scheduler. keep indica que a transição não foi
// gravada por erro de persistência e a entrega deve ficar pendente.
func (h *Handler) fail(ctx context.Context, log *zap.Logger, job events.ScanJob, cause error) (keep bool, err error) {
	retried, herr := h.Lifecycle.HandleFailure(context.WithoutCancel(ctx), job, cause)
	if herr != nil {
		log.Error("failure handler", zap.NamedError("cause", cause), zap.Error(herr))
		return errors.Is(herr, model.ErrPersistence), fmt.Errorf("%w (handle failure: %w)", cause, herr)
	}
	if retried {
		log.Warn("scan failed, retry scheduled", zap.Error(cause))
	} else {
		log.Error("scan failed, attempts exhausted", zap.Error(cause))
	}
	return false, cause
}

// run converte panic em falha da tentativa
func (h *Handler) run(ctx context.Context, task *model.Task, attempt int) (rep *pipeline.Report, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.Log.Error("scan panicked", zap.Int64("task_id", task.ID), zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Runner.Run(ctx, task, attempt)
}
