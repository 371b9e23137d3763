package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/repo"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scheduler"
	sharedcache "github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/cache"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/config"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/db"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/kafka"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/logger"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/metrics"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/queue"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, 4)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	q := queue.New(redisClient, cfg.QueuePrefix, cfg.QueueAttempts)
	if err := q.Init(ctx); err != nil {
		log.Fatal("queue init", zap.Error(err))
	}

	publisher := kafka.NewTaskEventPublisher(cfg.KafkaBrokers, cfg.TopicTaskEvents, cfg.TopicTaskEventsDLQ)
	defer publisher.Close()

	m := metrics.NewScan(prometheus.DefaultRegisterer)
	store := repo.NewPostgres(pg)
	sched := scheduler.New(log, store, q, publisher, m)

	srv := metrics.StartMetricsServer(cfg.MetricsPort, map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})
	log.Info("metrics/health listening", zap.String("addr", srv.Addr))

	// Uma entrada de cron por Bet, com backoff fixo entre registros.
	// O cron começa a disparar só depois que todas foram registradas.
	reg := scheduler.NewRegistrar(log, store, sched, cfg.ScheduleBackoff)
	n, err := reg.Register(ctx)
	if err != nil && ctx.Err() == nil {
		log.Fatal("register schedules", zap.Error(err))
	}
	reg.Start()
	log.Info("scan-scheduler started", zap.Int("schedules", n))

	<-ctx.Done()

	stopCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	reg.Stop(stopCtx)
	_ = srv.Shutdown(stopCtx)
	log.Info("scan-scheduler stopped")
}
