package events

import "time"

// Evento publicado no tópico "task_events" a cada transição de status
type TaskEvent struct {
	TaskID     int64     `json:"task_id"`
	TaskUUID   string    `json:"task_uuid"`
	BetID      int64     `json:"bet_id"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to"`
	Attempt    int       `json:"attempt"`
	Error      string    `json:"error,omitempty"`
	DurationMs *int64    `json:"duration_ms,omitempty"` // só em Completed
	Ts         time.Time `json:"ts"`
}
