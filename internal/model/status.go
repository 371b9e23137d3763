package model

import (
	"fmt"
	"time"
)

// TaskStatus é o estado de uma Task; exatamente um por vez
type TaskStatus string

const (
	TaskScheduled TaskStatus = "Scheduled"
	TaskRunning   TaskStatus = "Running"
	TaskPaused    TaskStatus = "Paused"
	TaskFailed    TaskStatus = "Failed"
	TaskCompleted TaskStatus = "Completed"
)

// transitions define as transições permitidas.
// Running -> Scheduled é o caminho de retry enquanto há tentativas sobrando.
var transitions = map[TaskStatus][]TaskStatus{
	TaskScheduled: {TaskRunning, TaskPaused},
	TaskRunning:   {TaskCompleted, TaskFailed, TaskPaused, TaskScheduled},
	TaskPaused:    {},
	TaskFailed:    {},
	TaskCompleted: {},
}

// Valid informa se o status é conhecido
func (s TaskStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal informa se a Task não pode mais ser alterada pelo core
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskPaused
}

// ValidateTransition retorna ErrInvalidTransition quando from -> to não é permitido
func ValidateTransition(from, to TaskStatus) error {
	allowed, ok := transitions[from]
	if !ok {
		return fmt.Errorf("%w: unknown source status %q", ErrInvalidTransition, from)
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// TaskPatch são os campos gravados junto com uma transição; nil mantém o valor atual
type TaskPatch struct {
	ScheduledAt  *time.Time
	FinishedAt   *time.Time
	Duration     *int64
	ErrorMessage *string
}
