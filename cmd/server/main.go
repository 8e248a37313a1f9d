package main

import (
	"context"
	"log"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/scheduler/api/handler"
	"github.com/fastygo/scheduler/internal/config"
	"github.com/fastygo/scheduler/internal/infrastructure/buffer"
	"github.com/fastygo/scheduler/internal/infrastructure/metrics"
	"github.com/fastygo/scheduler/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/scheduler/internal/infrastructure/postgres"
	redisInfra "github.com/fastygo/scheduler/internal/infrastructure/redis"
	"github.com/fastygo/scheduler/internal/middleware"
	"github.com/fastygo/scheduler/internal/router"
	"github.com/fastygo/scheduler/internal/scheduler"
	"github.com/fastygo/scheduler/internal/services"
	"github.com/fastygo/scheduler/internal/services/lifecycle"
	"github.com/fastygo/scheduler/pkg/httpcontext"
	"github.com/fastygo/scheduler/pkg/logger"
	"github.com/fastygo/scheduler/repository/postgres"
	redisRepo "github.com/fastygo/scheduler/repository/redis"
	"github.com/fastygo/scheduler/usecase/schedule"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level:    cfg.Logger.Level,
		Encoding: cfg.Logger.Encoding,
	})
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer zapLogger.Sync()

	mode, err := scheduler.ParseMode(cfg.Scheduler.Mode)
	if err != nil {
		zapLogger.Fatal("invalid SCHEDULER_MODE", zap.Error(err))
	}

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager := lifecycle.New(cfg.Context.ShutdownTimeout, zapLogger)

	if err := pgInfra.RunMigrations(cfg, zapLogger); err != nil {
		zapLogger.Fatal("migrations failed", zap.Error(err))
	}

	pool, err := pgInfra.NewPool(appCtx, cfg.Database, cfg.AppName, zapLogger)
	if err != nil {
		zapLogger.Fatal("postgres connection failed", zap.Error(err))
	}
	manager.OnStop("postgres", func(ctx context.Context) error {
		pool.Close()
		return nil
	})

	redisClient, err := redisInfra.NewClient(appCtx, cfg.Redis)
	if err != nil {
		zapLogger.Fatal("redis connection failed", zap.Error(err))
	}
	manager.OnStop("redis", func(ctx context.Context) error {
		return redisClient.Close()
	})

	bufferStore, err := buffer.Open(cfg.Buffer.Path, "assignments")
	if err != nil {
		zapLogger.Fatal("failed to open buffer store", zap.Error(err))
	}
	manager.OnStop("buffer", func(ctx context.Context) error {
		return bufferStore.Close()
	})

	mon := monitor.New(pool, monitor.RedisPinger(redisClient), bufferStore, 10*time.Second, zapLogger)
	mon.Start()
	manager.OnStop("monitor", func(ctx context.Context) error {
		mon.Stop()
		return nil
	})

	sessionRepo := postgres.NewSessionRepository(pool)
	runRepo := postgres.NewRunRepository(pool)
	snapshots := postgres.NewSnapshotReader(pool)
	locker := redisRepo.NewRunLocker(redisClient)

	bufferProcessor, err := services.NewBufferProcessor(
		bufferStore,
		mon,
		sessionRepo,
		runRepo,
		locker,
		zapLogger,
		services.ProcessorConfig{
			Interval:   cfg.Buffer.SyncInterval,
			BatchSize:  50,
			MaxRetries: cfg.Buffer.MaxRetry,
			Retention:  time.Duration(cfg.Buffer.RetentionHours) * time.Hour,
			Pool:       cfg.Scheduler.Pool,
			LockTTL:    cfg.Scheduler.LockTTL,
		},
	)
	if err != nil {
		zapLogger.Fatal("failed to configure buffer processor", zap.Error(err))
	}
	bufferProcessor.Start()
	manager.OnStop("buffer_processor", func(ctx context.Context) error {
		bufferProcessor.Stop(ctx)
		return nil
	})

	appMetrics := metrics.New(bufferProcessor.Size)

	scheduleUseCase := schedule.New(schedule.Deps{
		Snapshots: snapshots,
		Sessions:  sessionRepo,
		Runs:      runRepo,
		Locker:    locker,
		Buffer:    services.NewBufferBridge(bufferProcessor),
		Recorder:  appMetrics,
		Solver: scheduler.New(
			scheduler.WithWorkers(cfg.Scheduler.Workers),
			scheduler.WithLogger(zapLogger.Named("solver")),
		),
	}, schedule.Config{
		Pool:    cfg.Scheduler.Pool,
		LockTTL: cfg.Scheduler.LockTTL,
	}, zapLogger)

	if cfg.Scheduler.Cron != "" {
		job, err := services.NewRunJob(scheduleUseCase, services.RunJobConfig{
			Spec:  cfg.Scheduler.Cron,
			Mode:  mode,
			Apply: cfg.Scheduler.AutoApply,
		}, zapLogger)
		if err != nil {
			zapLogger.Fatal("failed to configure scheduled runs", zap.Error(err))
		}
		job.Start()
		manager.OnStop("run_job", func(ctx context.Context) error {
			job.Stop(ctx)
			return nil
		})
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Schedule: apiHandler.NewScheduleHandler(scheduleUseCase, ctxAdapter, zapLogger),
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, zapLogger),
	}

	opts := router.Options{EnablePprof: cfg.HTTP.EnablePprof}
	if cfg.HTTP.EnableMetrics {
		opts.Metrics = appMetrics.Registry()
	}
	authMiddleware := middleware.JWTAuth(cfg.JWT.Secret, cfg.JWT.Issuer, zapLogger)
	r := router.New(handlers, authMiddleware, opts)

	server := &fasthttp.Server{
		Handler:            r.Handler,
		ReadTimeout:        cfg.HTTP.ReadTimeout,
		WriteTimeout:       cfg.HTTP.WriteTimeout,
		IdleTimeout:        cfg.HTTP.IdleTimeout,
		Concurrency:        cfg.HTTP.MaxConn,
		MaxRequestBodySize: 8 << 20,
		Name:               cfg.AppName,
	}

	go func() {
		zapLogger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("pool", cfg.Scheduler.Pool),
			zap.String("mode", mode.String()))
		if err := server.ListenAndServe(cfg.Address()); err != nil {
			zapLogger.Error("server crashed", zap.Error(err))
			cancel()
		}
	}()

	manager.OnStop("http_server", func(ctx context.Context) error {
		return server.ShutdownWithContext(ctx)
	})

	manager.Wait(appCtx)

	if err := manager.Stop(context.Background()); err != nil {
		zapLogger.Error("graceful shutdown error", zap.Error(err))
	}
}
