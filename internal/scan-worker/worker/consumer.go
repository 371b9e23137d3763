package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/queue"
)

// Source é o lado consumidor da fila
type Source interface {
	Read(ctx context.Context, consumer string, count int64, block time.Duration) ([]queue.Delivery, error)
	Reclaim(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]queue.Delivery, error)
}

// Gate libera o despacho respeitando a janela de taxa global
type Gate interface {
	Wait(ctx context.Context) error
}

// Submitter é o pool
type Submitter interface {
	Submit(ctx context.Context, d queue.Delivery) error
}

// Consumer lê a fila, passa pelo limitador e entrega ao pool.
// Callbacks de métricas por fase, como no processor de Kafka.
type Consumer struct {
	Log    *zap.Logger
	Source Source
	Gate   Gate
	Pool   Submitter
	Name   string // nome do consumer no grupo

	Block        time.Duration
	ReclaimIdle  time.Duration // entrega pendente há mais que isso é de um worker morto
	ReclaimEvery time.Duration

	OnConsumed func()
	OnError    func(string)
}

// Run roda até ctx ser cancelado
func (c *Consumer) Run(ctx context.Context) error {
	block := c.Block
	if block <= 0 {
		block = 5 * time.Second
	}
	var lastReclaim time.Time

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var batch []queue.Delivery
		if c.ReclaimIdle > 0 && time.Since(lastReclaim) >= c.ReclaimEvery {
			lastReclaim = time.Now()
			got, err := c.Source.Reclaim(ctx, c.Name, c.ReclaimIdle, 1)
			if err != nil {
				c.fail("reclaim", err)
			} else if len(got) > 0 {
				c.Log.Warn("reclaimed orphan deliveries", zap.Int("count", len(got)))
				batch = got
			}
		}

		if len(batch) == 0 {
			got, err := c.Source.Read(ctx, c.Name, 1, block)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				c.fail("read", err)
				sleep(ctx, 500*time.Millisecond)
				continue
			}
			batch = got
		}

		for _, d := range batch {
			// no máximo QUEUE_RATE_MAX despachos por janela, somando todos os workers
			if err := c.Gate.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				// sem permissão do limiter nada é despachado; o resto do lote fica pendente
				c.fail("limiter", err)
				sleep(ctx, 500*time.Millisecond)
				break
			}
			if c.OnConsumed != nil {
				c.OnConsumed()
			}
			if err := c.Pool.Submit(ctx, d); err != nil {
				// a entrega fica pendente e volta por Reclaim
				c.fail("submit", err)
				if ctx.Err() != nil {
					return ctx.Err()
				}
			}
		}
	}
}

func (c *Consumer) fail(stage string, err error) {
	c.Log.Warn("consumer stage failed", zap.String("stage", stage), zap.Error(err))
	if c.OnError != nil {
		c.OnError(stage)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
