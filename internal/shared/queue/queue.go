// Package queue é a fila de varredura sobre Redis Streams: produtor,
// leitura por consumer group, ack e recuperação de entregas órfãs.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Ashu11-A/BetScraper-API-sub000/pkg/contracts/events"
)

const (
	defaultGroup     = "scan-workers"
	defaultAttempts  = 2
	fieldPayload     = "payload"
	fieldAttempt     = "attempt"
	busyGroupMessage = "BUSYGROUP"
)

// ErrAttemptsExhausted: o job já usou todas as entregas
var ErrAttemptsExhausted = errors.New("job attempts exhausted")

// ErrNotOwner: a entrega não está mais pendente para este consumer
var ErrNotOwner = errors.New("delivery not owned by consumer")

// Delivery é uma mensagem lida do stream; precisa de Ack
type Delivery struct {
	ID       string
	Job      events.ScanJob
	Consumer string // dono da entrega no grupo
	// Reclaimed: veio de XAUTOCLAIM, o consumer anterior sumiu no meio do job
	Reclaimed bool
}

// Queue usa um stream por prefixo e um consumer group compartilhado pelos workers
type Queue struct {
	rdb      *redis.Client
	stream   string
	group    string
	attempts int
	now      func() time.Time
}

func New(rdb *redis.Client, prefix string, attempts int) *Queue {
	if prefix == "" {
		prefix = "scan"
	}
	if attempts <= 0 {
		attempts = defaultAttempts
	}
	return &Queue{
		rdb:      rdb,
		stream:   prefix + ":jobs",
		group:    defaultGroup,
		attempts: attempts,
		now:      time.Now,
	}
}

// Attempts é o total de entregas por job
func (q *Queue) Attempts() int { return q.attempts }

// Init cria o consumer group (e o stream) se ainda não existirem
func (q *Queue) Init(ctx context.Context) error {
	err := q.rdb.XGroupCreateMkStream(ctx, q.stream, q.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), busyGroupMessage) {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Enqueue publica o job; Attempt zero vira 1
func (q *Queue) Enqueue(ctx context.Context, job events.ScanJob) (string, error) {
	if job.Attempt <= 0 {
		job.Attempt = 1
	}
	if job.Attempt > q.attempts {
		return "", fmt.Errorf("%w: task %d attempt %d of %d", ErrAttemptsExhausted, job.Task.ID, job.Attempt, q.attempts)
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = q.now()
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("encode job: %w", err)
	}
	id, err := q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: map[string]any{fieldPayload: payload, fieldAttempt: job.Attempt},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	return id, nil
}

// Retry reenfileira o job com a próxima tentativa; falha se o orçamento acabou
func (q *Queue) Retry(ctx context.Context, job events.ScanJob) (string, error) {
	job.Attempt++
	job.EnqueuedAt = time.Time{}
	return q.Enqueue(ctx, job)
}

// CanRetry informa se ainda há entrega disponível depois de attempt
func (q *Queue) CanRetry(attempt int) bool { return attempt < q.attempts }

// Read lê até count mensagens novas, bloqueando no máximo block
func (q *Queue) Read(ctx context.Context, consumer string, count int64, block time.Duration) ([]Delivery, error) {
	res, err := q.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    q.group,
		Consumer: consumer,
		Streams:  []string{q.stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	var out []Delivery
	for _, s := range res {
		out = append(out, q.decodeAll(ctx, consumer, s.Messages)...)
	}
	return out, nil
}

// Reclaim assume mensagens pendentes há mais de minIdle (worker que morreu no meio)
func (q *Queue) Reclaim(ctx context.Context, consumer string, minIdle time.Duration, count int64) ([]Delivery, error) {
	msgs, _, err := q.rdb.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  minIdle,
		Start:    "0-0",
		Count:    count,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	out := q.decodeAll(ctx, consumer, msgs)
	for i := range out {
		out[i].Reclaimed = true
	}
	return out, nil
}

// Touch zera o idle da entrega enquanto o job roda, para o Reclaim de outro
// worker não tomar um job vivo. Só reclama entregas que ainda são do consumer.
func (q *Queue) Touch(ctx context.Context, consumer, id string) error {
	pending, err := q.rdb.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream:   q.stream,
		Group:    q.group,
		Start:    id,
		End:      id,
		Count:    1,
		Consumer: consumer,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("xpending %s: %w", id, err)
	}
	if len(pending) == 0 {
		return fmt.Errorf("%w: %s (%s)", ErrNotOwner, id, consumer)
	}
	if err := q.rdb.XClaimJustID(ctx, &redis.XClaimArgs{
		Stream:   q.stream,
		Group:    q.group,
		Consumer: consumer,
		MinIdle:  0,
		Messages: []string{id},
	}).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("xclaim %s: %w", id, err)
	}
	return nil
}

// Ack confirma e remove a mensagem do stream
func (q *Queue) Ack(ctx context.Context, id string) error {
	if err := q.rdb.XAck(ctx, q.stream, q.group, id).Err(); err != nil {
		return fmt.Errorf("xack %s: %w", id, err)
	}
	if err := q.rdb.XDel(ctx, q.stream, id).Err(); err != nil {
		return fmt.Errorf("xdel %s: %w", id, err)
	}
	return nil
}

// Len é o tamanho atual do stream
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.XLen(ctx, q.stream).Result()
}

// decodeAll descarta (com ack) mensagens ilegíveis para não travar o grupo
func (q *Queue) decodeAll(ctx context.Context, consumer string, msgs []redis.XMessage) []Delivery {
	out := make([]Delivery, 0, len(msgs))
	for _, m := range msgs {
		job, err := decode(m)
		if err != nil {
			_ = q.Ack(ctx, m.ID)
			continue
		}
		out = append(out, Delivery{ID: m.ID, Job: job, Consumer: consumer})
	}
	return out
}

func decode(m redis.XMessage) (events.ScanJob, error) {
	var job events.ScanJob
	raw, ok := m.Values[fieldPayload].(string)
	if !ok {
		return job, fmt.Errorf("message %s without payload", m.ID)
	}
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return job, fmt.Errorf("decode message %s: %w", m.ID, err)
	}
	if a, ok := m.Values[fieldAttempt].(string); ok {
		if n, err := strconv.Atoi(a); err == nil {
			job.Attempt = n
		}
	}
	return job, nil
}
