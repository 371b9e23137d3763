package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/ocr"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/repo"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/browser"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/pipeline"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scan-worker/worker"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/scheduler"
	sharedcache "github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/cache"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/config"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/db"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/kafka"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/logger"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/metrics"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/queue"
	"github.com/Ashu11-A/BetScraper-API-sub000/internal/shared/storage"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(ctx, cfg.PostgresDSN, cfg.WorkerPoolSize*4)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	redisClient, err := sharedcache.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer redisClient.Close()

	files, err := storage.New(ctx, storage.Options{
		Driver:         cfg.StorageDriver,
		Dir:            cfg.StorageDir,
		MinioEndpoint:  cfg.MinioEndpoint,
		MinioAccessKey: cfg.MinioAccessKey,
		MinioSecretKey: cfg.MinioSecretKey,
		MinioBucket:    cfg.MinioBucket,
		MinioUseSSL:    cfg.MinioUseSSL,
	}, log)
	if err != nil {
		log.Fatal("storage init", zap.Error(err))
	}

	q := queue.New(redisClient, cfg.QueuePrefix, cfg.QueueAttempts)
	if err := q.Init(ctx); err != nil {
		log.Fatal("queue init", zap.Error(err))
	}
	limiter := queue.NewLimiter(redisClient, cfg.QueuePrefix, cfg.QueueRateMax, cfg.QueueRateWindow)

	// Transições de Task publicadas no tópico de eventos
	publisher := kafka.NewTaskEventPublisher(cfg.KafkaBrokers, cfg.TopicTaskEvents, cfg.TopicTaskEventsDLQ)
	defer publisher.Close()

	m := metrics.NewScan(prometheus.DefaultRegisterer)
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "scan_worker_deliveries_consumed_total", Help: "entregas lidas da fila"})
	prometheus.MustRegister(consumed)

	store := repo.NewPostgres(pg)
	sched := scheduler.New(log, store, q, publisher, m)

	launcher := browser.NewRodLauncher(browser.Options{
		Bin:               cfg.BrowserBin,
		Headless:          cfg.BrowserHeadless,
		Viewport:          model.Size{Width: float64(cfg.ViewportWidth), Height: float64(cfg.ViewportHeight)},
		NavigationTimeout: cfg.NavigationTimeout,
	}, log)

	pipe := pipeline.New(log, launcher, store, files, ocr.New(cfg.OCRURL, cfg.OCRTimeout), pipeline.Options{
		ScreenshotMaxBytes: cfg.ScreenshotMaxBytes,
		OCRThreshold:       cfg.OCRThreshold,
	}, m)

	handler := &worker.Handler{
		Log:            log,
		Lifecycle:      sched,
		Runner:         pipe,
		Queue:          q,
		Heartbeat:      q,
		HeartbeatEvery: cfg.QueueReclaimIdle / 3,
	}
	pool := worker.NewPool(cfg.WorkerPoolSize, handler.Handle, log)
	if err := pool.Start(); err != nil {
		log.Fatal("pool start", zap.Error(err))
	}

	consumer := &worker.Consumer{
		Log:          log,
		Source:       q,
		Gate:         limiter,
		Pool:         pool,
		Name:         cfg.ServiceName + "-" + uuid.NewString()[:8],
		ReclaimIdle:  cfg.QueueReclaimIdle,
		ReclaimEvery: 30 * time.Second,
		OnConsumed:   func() { consumed.Inc() },
		OnError:      m.OnError,
	}

	// Servidor HTTP para métricas e health check
	srv := metrics.StartMetricsServer(cfg.MetricsPort, map[string]metrics.HealthFunc{
		"postgres": pg.PingContext,
		"redis":    func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
	})
	log.Info("metrics/health listening", zap.String("addr", srv.Addr))

	log.Info("scan-worker started",
		zap.String("consumer", consumer.Name),
		zap.Int("pool_size", cfg.WorkerPoolSize),
		zap.Int("attempts", q.Attempts()),
		zap.Duration("reclaim_idle", cfg.QueueReclaimIdle))
	if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
		log.Fatal("consumer stopped with error", zap.Error(err))
	}

	// Drena jobs em andamento antes de fechar conexões
	stopCtx, stop := context.WithTimeout(context.Background(), 2*cfg.NavigationTimeout)
	defer stop()
	if err := pool.Stop(stopCtx); err != nil {
		log.Warn("pool drain interrupted", zap.Error(err))
	}
	_ = srv.Shutdown(stopCtx)
	log.Info("scan-worker stopped")
}
