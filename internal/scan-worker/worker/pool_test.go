package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/queue"
	"github.com/Ashu11-A/BetScraper-API-sub000/pkg/contracts/events"
)

func delivery(id int64) queue.Delivery {
	return queue.Delivery{ID: "x", Job: events.ScanJob{Task: model.Task{ID: id}, Attempt: 1}}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	var running, peak atomic.Int64
	release := make(chan struct{})
	p := NewPool(2, func(ctx context.Context, _ queue.Delivery) error {
		n := running.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		<-release
		running.Add(-1)
		return nil
	}, zap.NewNop())
	require.NoError(t, p.Start())

	ctx := context.Background()
	require.NoError(t, p.Submit(ctx, delivery(1)))
	require.NoError(t, p.Submit(ctx, delivery(2)))

	// terceiro Submit bloqueia até liberar uma vaga
	submitted := make(chan error, 1)
	go func() { submitted <- p.Submit(ctx, delivery(3)) }()
	select {
	case <-submitted:
		t.Fatal("submit should block while the pool is full")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-submitted)
	require.NoError(t, p.Stop(context.Background()))

	assert.Equal(t, int64(2), peak.Load())
	processed, failed := p.Stats()
	assert.Equal(t, int64(3), processed)
	assert.Zero(t, failed)
}

func TestPool_StopDrainsAndRejects(t *testing.T) {
	var done atomic.Int64
	p := NewPool(1, func(context.Context, queue.Delivery) error {
		time.Sleep(20 * time.Millisecond)
		done.Add(1)
		return errors.New("failed")
	}, zap.NewNop())

	assert.ErrorIs(t, p.Submit(context.Background(), delivery(1)), ErrPoolNotRunning)
	require.NoError(t, p.Start())
	require.NoError(t, p.Submit(context.Background(), delivery(1)))
	require.NoError(t, p.Stop(context.Background()))

	assert.Equal(t, int64(1), done.Load())
	assert.Equal(t, PoolStopped, p.State())
	assert.ErrorIs(t, p.Submit(context.Background(), delivery(2)), ErrPoolNotRunning)
	_, failed := p.Stats()
	assert.Equal(t, int64(1), failed)
}

type fakeSource struct {
	mu        sync.Mutex
	batches   [][]queue.Delivery
	reclaimed []queue.Delivery
	cancel    context.CancelFunc
}

func (f *fakeSource) Read(ctx context.Context, _ string, _ int64, _ time.Duration) ([]queue.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.batches) == 0 {
		f.cancel()
		return nil, ctx.Err()
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b, nil
}

func (f *fakeSource) Reclaim(context.Context, string, time.Duration, int64) ([]queue.Delivery, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.reclaimed
	f.reclaimed = nil
	return out, nil
}

type countingGate struct{ n atomic.Int64 }

func (g *countingGate) Wait(context.Context) error {
	g.n.Add(1)
	return nil
}

type recordingPool struct {
	mu  sync.Mutex
	got []queue.Delivery
}

func (r *recordingPool) Submit(_ context.Context, d queue.Delivery) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, d)
	return nil
}

func TestConsumer_ReclaimThenReadThroughGate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orphan := delivery(9)
	orphan.Reclaimed = true
	src := &fakeSource{
		batches:   [][]queue.Delivery{{delivery(1)}, nil, {delivery(2)}},
		reclaimed: []queue.Delivery{orphan},
		cancel:    cancel,
	}
	gate := &countingGate{}
	pool := &recordingPool{}
	var consumed atomic.Int64

	c := &Consumer{
		Log:          zap.NewNop(),
		Source:       src,
		Gate:         gate,
		Pool:         pool,
		Name:         "w1",
		ReclaimIdle:  time.Minute,
		ReclaimEvery: time.Hour,
		OnConsumed:   func() { consumed.Add(1) },
	}
	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	require.Len(t, pool.got, 3)
	assert.Equal(t, int64(9), pool.got[0].Job.Task.ID)
	assert.True(t, pool.got[0].Reclaimed)
	assert.Equal(t, int64(1), pool.got[1].Job.Task.ID)
	assert.Equal(t, int64(2), pool.got[2].Job.Task.ID)
	assert.Equal(t, int64(3), gate.n.Load())
	assert.Equal(t, int64(3), consumed.Load())
}

// flakyGate recusa as primeiras fails chamadas
type flakyGate struct {
	fails atomic.Int64
}

func (g *flakyGate) Wait(context.Context) error {
	if g.fails.Add(-1) >= 0 {
		return errors.New("redis timeout")
	}
	return nil
}

func TestConsumer_GateErrorLeavesBatchPending(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := &fakeSource{
		batches: [][]queue.Delivery{{delivery(1), delivery(2)}, {delivery(3)}},
		cancel:  cancel,
	}
	gate := &flakyGate{}
	gate.fails.Store(1)
	pool := &recordingPool{}
	var stages []string

	c := &Consumer{
		Log:     zap.NewNop(),
		Source:  src,
		Gate:    gate,
		Pool:    pool,
		Name:    "w1",
		OnError: func(stage string) { stages = append(stages, stage) },
	}
	err := c.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	// 1 e 2 não foram despachados e continuam pendentes para o Reclaim
	require.Len(t, pool.got, 1)
	assert.Equal(t, int64(3), pool.got[0].Job.Task.ID)
	assert.Equal(t, []string{"limiter"}, stages)
}
