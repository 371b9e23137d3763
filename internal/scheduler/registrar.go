package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/repo"
)

// Catalog lista as Bets com recorrência
type Catalog interface {
	ListScheduledBets(ctx context.Context) ([]repo.BetSchedule, error)
}

// Enqueuer é o AddToQueue do Scheduler
type Enqueuer interface {
	AddToQueue(ctx context.Context, bet model.Bet, user *model.User, cron *model.Cron) (*Job, error)
}

// Registrar registra uma entrada de cron por Bet e enfileira a cada disparo
type Registrar struct {
	log     *zap.Logger
	catalog Catalog
	queue   Enqueuer
	backoff time.Duration

	cron    *cron.Cron
	parser  cron.Parser
	mu      sync.Mutex
	entries map[int64]cron.EntryID
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewRegistrar(log *zap.Logger, catalog Catalog, queue Enqueuer, backoff time.Duration) *Registrar {
	// segundos opcionais: aceita tanto "*/5 * * * *" quanto "0 */5 * * * *"
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Registrar{
		log:     log,
		catalog: catalog,
		queue:   queue,
		backoff: backoff,
		cron:    cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		parser:  parser,
		entries: make(map[int64]cron.EntryID),
		sleep:   sleepCtx,
	}
}

// Register carrega as Bets e adiciona uma entrada por Bet, com backoff fixo entre registros.
// Expressão inválida só pula aquela Bet.
func (r *Registrar) Register(ctx context.Context) (int, error) {
	list, err := r.catalog.ListScheduledBets(ctx)
	if err != nil {
		return 0, fmt.Errorf("list scheduled bets: %w", err)
	}

	registered := 0
	for i, bs := range list {
		if i > 0 && r.backoff > 0 {
			if err := r.sleep(ctx, r.backoff); err != nil {
				return registered, err
			}
		}
		if err := r.add(ctx, bs); err != nil {
			r.log.Warn("skip bet schedule",
				zap.Int64("bet_id", bs.Bet.ID),
				zap.String("expression", bs.Cron.Expression),
				zap.Error(err),
			)
			continue
		}
		registered++
	}

	r.log.Info("cron entries registered", zap.Int("count", registered), zap.Int("bets", len(list)))
	return registered, nil
}

func (r *Registrar) add(ctx context.Context, bs repo.BetSchedule) error {
	if _, err := r.parser.Parse(bs.Cron.Expression); err != nil {
		return fmt.Errorf("parse cron expression: %w", err)
	}

	bet, c := bs.Bet, bs.Cron
	id, err := r.cron.AddFunc(c.Expression, func() {
		r.Fire(ctx, bet, c)
	})
	if err != nil {
		return fmt.Errorf("add cron entry: %w", err)
	}

	r.mu.Lock()
	if old, ok := r.entries[bet.ID]; ok {
		r.cron.Remove(old)
	}
	r.entries[bet.ID] = id
	r.mu.Unlock()
	return nil
}

// Fire é o corpo de cada disparo: addToQueue(bet, nil, cron)
func (r *Registrar) Fire(ctx context.Context, bet model.Bet, c model.Cron) {
	if ctx.Err() != nil {
		return
	}
	job, err := r.queue.AddToQueue(ctx, bet, nil, &c)
	if err != nil {
		r.log.Error("scheduled enqueue failed", zap.Int64("bet_id", bet.ID), zap.Error(err))
		return
	}
	r.log.Debug("scheduled scan", zap.Int64("bet_id", bet.ID), zap.Int64("task_id", job.Task.ID))
}

// Entries é a quantidade de Bets com entrada ativa
func (r *Registrar) Entries() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registrar) Start() { r.cron.Start() }

// Stop para o cron e espera os disparos em andamento
func (r *Registrar) Stop(ctx context.Context) {
	done := r.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
