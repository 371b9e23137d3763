// Package batch reúne os scripts offline sobre os dados já coletados: OCR
// pendente, fusão de imagens duplicadas e recálculo de compliances.
package batch

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency é o limite de itens simultâneos
const DefaultConcurrency = 100

// Summary conta o resultado de uma varredura
type Summary struct {
	Job     string        `json:"job"`
	Total   int           `json:"total"`
	OK      int           `json:"ok"`
	Failed  int           `json:"failed"`
	Elapsed time.Duration `json:"elapsed"`
}

// Run processa os itens com no máximo limit ao mesmo tempo. Falha de um item
// é logada e contada; só cancelamento do ctx interrompe o lote.
func Run[T any](ctx context.Context, log *zap.Logger, job string, limit int, items []T, label func(T) zap.Field, fn func(context.Context, T) error) (Summary, error) {
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	start := time.Now()
	var ok, failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(limit)
	for _, it := range items {
		if ctx.Err() != nil {
			break
		}
		it := it
		g.Go(func() error {
			if err := fn(ctx, it); err != nil {
				failed.Add(1)
				log.Warn("batch item failed", zap.String("job", job), label(it), zap.Error(err))
				return nil
			}
			ok.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	s := Summary{
		Job:     job,
		Total:   len(items),
		OK:      int(ok.Load()),
		Failed:  int(failed.Load()),
		Elapsed: time.Since(start),
	}
	log.Info("batch finished",
		zap.String("job", s.Job), zap.Int("total", s.Total), zap.Int("ok", s.OK),
		zap.Int("failed", s.Failed), zap.Duration("elapsed", s.Elapsed))
	return s, ctx.Err()
}
