package queue

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow admite no máximo ARGV[3] entradas em ARGV[2] ms.
// Devolve 0 quando admitiu, ou os ms até a entrada mais antiga sair da janela.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
if redis.call('ZCARD', key) < limit then
	redis.call('ZADD', key, now, ARGV[4])
	redis.call('PEXPIRE', key, window)
	return 0
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local wait = tonumber(oldest[2]) + window - now
if wait < 1 then wait = 1 end
return wait
`)

// Limiter é o limite de despacho compartilhado por todos os workers (janela deslizante no Redis)
type Limiter struct {
	rdb    *redis.Client
	key    string
	max    int
	window time.Duration
	now    func() time.Time
}

func NewLimiter(rdb *redis.Client, prefix string, max int, window time.Duration) *Limiter {
	if prefix == "" {
		prefix = "scan"
	}
	if max <= 0 {
		max = 4
	}
	if window <= 0 {
		window = 10 * time.Second
	}
	return &Limiter{rdb: rdb, key: prefix + ":limiter", max: max, window: window, now: time.Now}
}

// Allow tenta admitir um job agora; devolve a espera sugerida quando recusado
func (l *Limiter) Allow(ctx context.Context) (bool, time.Duration, error) {
	now := l.now().UnixMilli()
	res, err := slidingWindow.Run(ctx, l.rdb, []string{l.key},
		now, l.window.Milliseconds(), l.max, strconv.FormatInt(now, 10)+"-"+uuid.NewString(),
	).Int64()
	if err != nil {
		return false, 0, fmt.Errorf("rate limiter: %w", err)
	}
	if res == 0 {
		return true, 0, nil
	}
	return false, time.Duration(res) * time.Millisecond, nil
}

// Wait bloqueia até o job ser admitido ou o contexto acabar
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		ok, wait, err := l.Allow(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}
