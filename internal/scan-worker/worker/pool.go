// Package worker consome a fila de varredura e executa os jobs num pool
// limitado, aplicando as transições de ciclo de vida de cada Task.
package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/queue"
)

var (
	ErrPoolNotRunning = errors.New("pool is not running")
	ErrPoolStopping   = errors.New("pool is stopping")
)

type PoolState int32

const (
	PoolStopped PoolState = iota
	PoolRunning
	PoolDraining
)

func (s PoolState) String() string {
	switch s {
	case PoolStopped:
		return "stopped"
	case PoolRunning:
		return "running"
	case PoolDraining:
		return "draining"
	}
	return "unknown"
}

// HandleFunc processa uma entrega; o pool não olha o erro além das estatísticas
type HandleFunc func(ctx context.Context, d queue.Delivery) error

// Pool limita quantos jobs rodam ao mesmo tempo (uma sessão de navegador por job)
type Pool struct {
	log     *zap.Logger
	handle  HandleFunc
	sem     chan struct{}
	stopCh  chan struct{}
	wg      sync.WaitGroup
	state   atomic.Int32
	stopped sync.Once

	processed atomic.Int64
	failed    atomic.Int64
}

func NewPool(size int, handle HandleFunc, log *zap.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	p := &Pool{
		log:    log,
		handle: handle,
		sem:    make(chan struct{}, size),
		stopCh: make(chan struct{}),
	}
	p.state.Store(int32(PoolStopped))
	return p
}

func (p *Pool) State() PoolState { return PoolState(p.state.Load()) }

func (p *Pool) Start() error {
	if !p.state.CompareAndSwap(int32(PoolStopped), int32(PoolRunning)) {
		return errors.New("pool is already running")
	}
	p.log.Info("worker pool started", zap.Int("pool_size", cap(p.sem)))
	return nil
}

// Submit bloqueia até haver vaga; o job roda com ctx, não com o ctx do chamador de Stop
func (p *Pool) Submit(ctx context.Context, d queue.Delivery) error {
	if p.State() != PoolRunning {
		return ErrPoolNotRunning
	}
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-p.stopCh:
		return ErrPoolStopping
	}

	p.wg.Add(1)
	go func() {
		defer func() {
			<-p.sem
			p.wg.Done()
		}()
		err := p.handle(ctx, d)
		p.processed.Add(1)
		if err != nil {
			p.failed.Add(1)
		}
	}()
	return nil
}

// Stop para de aceitar jobs e espera os em andamento até ctx expirar
func (p *Pool) Stop(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(PoolRunning), int32(PoolDraining)) {
		return ErrPoolNotRunning
	}
	p.log.Info("worker pool draining")
	p.stopped.Do(func() { close(p.stopCh) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		p.log.Info("worker pool stopped gracefully")
	case <-ctx.Done():
		p.log.Warn("worker pool stop timed out")
		err = ctx.Err()
	}
	p.state.Store(int32(PoolStopped))
	return err
}

// Stats devolve (processados, falhos)
func (p *Pool) Stats() (int64, int64) { return p.processed.Load(), p.failed.Load() }
