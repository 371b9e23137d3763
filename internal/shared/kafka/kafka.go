package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Ashu11-A/BetScraper-API-sub000/pkg/contracts/events"
)

type Writer = kafka.Writer

func brokerList(brokers string) []string {
	var out []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

func NewWriter(brokers string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokerList(brokers)...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{}, // mesma task sempre na mesma partição
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

func NewReader(brokers string, topic string, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokerList(brokers),
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})
}

// MessageWriter é o lado produtor de *kafka.Writer
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// helper pra enviar mensagem simples
func WriteJSON(ctx context.Context, w MessageWriter, key string, payload []byte) error {
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Time:  time.Now(),
	}

	return w.WriteMessages(ctx, msg)
}

func ReadNext(ctx context.Context, r *kafka.Reader) (key []byte, value []byte, err error) {
	m, err := r.ReadMessage(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read kafka message: %w", err)
	}
	return m.Key, m.Value, nil
}

// TaskEventPublisher publica transições de Task com a task como chave.
// Depois de Retries falhas o evento vai pro DLQ, quando configurado.
type TaskEventPublisher struct {
	W       MessageWriter
	DLQ     MessageWriter
	Retries int
	Backoff time.Duration
}

// NewTaskEventPublisher usa 3 tentativas com espera crescente, como nos workers;
// dlqTopic vazio desliga o DLQ
func NewTaskEventPublisher(brokers, topic, dlqTopic string) *TaskEventPublisher {
	p := &TaskEventPublisher{
		W:       NewWriter(brokers, topic),
		Retries: 3,
		Backoff: 300 * time.Millisecond,
	}
	if dlqTopic != "" {
		p.DLQ = NewWriter(brokers, dlqTopic)
	}
	return p
}

// Close fecha os writers que sabem fechar
func (p *TaskEventPublisher) Close() error {
	var errs []error
	for _, w := range []MessageWriter{p.W, p.DLQ} {
		if c, ok := w.(io.Closer); ok && c != nil {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

func (p *TaskEventPublisher) PublishTaskEvent(ctx context.Context, ev events.TaskEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode task event: %w", err)
	}
	key := strconv.FormatInt(ev.TaskID, 10)

	err = WriteJSON(ctx, p.W, key, b)
	for i := 0; err != nil && i < p.Retries; i++ {
		t := time.NewTimer(p.Backoff * time.Duration(i+1))
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("publish task event: %w", ctx.Err())
		case <-t.C:
		}
		err = WriteJSON(ctx, p.W, key, b)
	}
	if err != nil && p.DLQ != nil {
		if derr := WriteJSON(ctx, p.DLQ, key, b); derr != nil {
			return fmt.Errorf("publish task event: %w (dlq: %v)", err, derr)
		}
	}
	if err != nil {
		return fmt.Errorf("publish task event: %w", err)
	}
	return nil
}

// DecodeTaskEvent lê um evento consumido do tópico
func DecodeTaskEvent(value []byte) (events.TaskEvent, error) {
	var ev events.TaskEvent
	if err := json.Unmarshal(value, &ev); err != nil {
		return ev, fmt.Errorf("decode task event: %w", err)
	}
	return ev, nil
}
