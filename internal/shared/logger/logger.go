package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

// New cria o logger do serviço: JSON em produção, console colorido em "local"
func New(serviceName string, env string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if env == "local" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// stack trace só a partir de Error para não poluir os Warn por elemento
	cfg.DisableStacktrace = env != "local"

	// serviço e env sempre entram como campos padrão
	return cfg.Build(
		zap.Fields(
			zap.String("service", serviceName),
			zap.String("env", env),
		),
	)
}

// WithTask deriva o logger de uma execução
func WithTask(log *zap.Logger, t *model.Task, attempt int) *zap.Logger {
	return log.With(
		zap.Int64("task_id", t.ID),
		zap.String("task_uuid", t.UUID),
		zap.Int64("bet_id", t.Bet.ID),
		zap.Int("attempt", attempt),
	)
}
