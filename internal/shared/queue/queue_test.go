package queue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/pkg/contracts/events"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func job(id int64) events.ScanJob {
	return events.ScanJob{Task: model.Task{
		ID:     id,
		UUID:   "uuid-1",
		Status: model.TaskScheduled,
		Bet:    model.Bet{ID: 3, Name: "Casa", URL: "https://casa.bet"},
	}}
}

func TestQueue_EnqueueReadAck(t *testing.T) {
	ctx := context.Background()
	q := New(newRedis(t), "test", 2)
	require.NoError(t, q.Init(ctx))
	require.NoError(t, q.Init(ctx))

	id, err := q.Enqueue(ctx, job(5))
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	got, err := q.Read(ctx, "w1", 10, -1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	assert.Equal(t, int64(5), got[0].Job.Task.ID)
	assert.Equal(t, "https://casa.bet", got[0].Job.Task.Bet.URL)
	assert.Equal(t, 1, got[0].Job.Attempt)
	assert.False(t, got[0].Job.EnqueuedAt.IsZero())

	again, err := q.Read(ctx, "w1", 10, -1)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, q.Ack(ctx, id))
	n, err := q.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQueue_RetryBudget(t *testing.T) {
	ctx := context.Background()
	q := New(newRedis(t), "test", 2)
	require.NoError(t, q.Init(ctx))

	_, err := q.Enqueue(ctx, job(1))
	require.NoError(t, err)
	first, err := q.Read(ctx, "w1", 1, -1)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, q.CanRetry(first[0].Job.Attempt))

	_, err = q.Retry(ctx, first[0].Job)
	require.NoError(t, err)
	second, err := q.Read(ctx, "w1", 1, -1)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, 2, second[0].Job.Attempt)
	assert.False(t, q.CanRetry(second[0].Job.Attempt))

	_, err = q.Retry(ctx, second[0].Job)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
}

func TestQueue_ReclaimPending(t *testing.T) {
	ctx := context.Background()
	q := New(newRedis(t), "test", 2)
	require.NoError(t, q.Init(ctx))

	_, err := q.Enqueue(ctx, job(9))
	require.NoError(t, err)
	_, err = q.Read(ctx, "dead-worker", 1, -1)
	require.NoError(t, err)

	got, err := q.Reclaim(ctx, "w2", 0, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(9), got[0].Job.Task.ID)
	assert.True(t, got[0].Reclaimed)
}

func TestQueue_TouchKeepsLiveDeliveryOwned(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	mr.SetTime(clock)

	q := New(rdb, "test", 2)
	require.NoError(t, q.Init(ctx))
	_, err := q.Enqueue(ctx, job(4))
	require.NoError(t, err)
	got, err := q.Read(ctx, "w1", 1, -1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	d := got[0]
	assert.Equal(t, "w1", d.Consumer)

	// job longo: o heartbeat chega antes de estourar o idle
	mr.SetTime(clock.Add(4 * time.Minute))
	require.NoError(t, q.Touch(ctx, d.Consumer, d.ID))
	mr.SetTime(clock.Add(8 * time.Minute))
	stolen, err := q.Reclaim(ctx, "w2", 5*time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, stolen)

	// sem heartbeat (worker morto) o idle estoura e outro consumer assume
	mr.SetTime(clock.Add(10 * time.Minute))
	taken, err := q.Reclaim(ctx, "w2", 5*time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, taken, 1)
	assert.Equal(t, "w2", taken[0].Consumer)
	assert.True(t, taken[0].Reclaimed)

	// o dono antigo não toma de volta
	assert.ErrorIs(t, q.Touch(ctx, "w1", d.ID), ErrNotOwner)
}

func TestLimiter_SlidingWindow(t *testing.T) {
	ctx := context.Background()
	l := NewLimiter(newRedis(t), "test", 4, 10*time.Second)
	clock := time.UnixMilli(1_700_000_000_000)
	l.now = func() time.Time { return clock }

	for i := 0; i < 4; i++ {
		ok, _, err := l.Allow(ctx)
		require.NoError(t, err)
		assert.True(t, ok, "job %d", i)
	}

	ok, wait, err := l.Allow(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 10*time.Second, wait)

	clock = clock.Add(4 * time.Second)
	ok, wait, err = l.Allow(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 6*time.Second, wait)

	clock = clock.Add(6 * time.Second)
	ok, _, err = l.Allow(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	l := NewLimiter(newRedis(t), "test", 1, time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, l.Wait(ctx))
	assert.ErrorIs(t, l.Wait(ctx), context.DeadlineExceeded)
}
