package events

import (
	"time"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

// ScanJob é o payload da fila de varredura: a Task completa com Bet, User e Cron
type ScanJob struct {
	Task       model.Task `json:"task"`
	Attempt    int        `json:"attempt"` // 1 na primeira entrega
	EnqueuedAt time.Time  `json:"enqueued_at"`
}
