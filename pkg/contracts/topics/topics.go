package topics

const (
	// Ciclo de vida das Tasks
	TaskEvents = "task_events"

	// DLQ de eventos que falharam na publicação
	TaskEventsDLQ = "task_events_dlq"
)
