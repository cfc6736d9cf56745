package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	ossignal "os/signal"
	"strings"
	"syscall"
	"time"

	"floorview/internal/core/services"
	httphandlers "floorview/internal/handlers/http"
	"floorview/internal/infrastructure/distributed"
	"floorview/internal/infrastructure/middleware"
	"floorview/internal/infrastructure/monitoring"
	repositories "floorview/internal/infrastructure/repositories"
	"floorview/internal/infrastructure/signal"
	"floorview/pkg/config"
	"floorview/pkg/logger"
	"floorview/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const seedDocument = `# Sorting Criteria

Parts are sorted by colour and size after visual inspection.

| Color | Size (mm) | Bin |
|-------|-----------|-----|
| red   | < 50      | BIN_A |
| blue  | any       | BIN_B |
| green | any       | BIN_C |

# Quality Rules

Any detected surface defect sends the part to the reject bin.

| Condition | Bin |
|-----------|-----|
| defect    | REJECT_BIN |
| confidence below threshold | REVIEW_BIN |
`

func setEmitInterval(cfg *config.Config, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid --emit %q: %w", value, err)
	}
	if d < 0 {
		return fmt.Errorf("--emit must be >= 0")
	}
	cfg.Simulator.EmitInterval = d
	return nil
}

func serve(parent context.Context, cfg *config.Config) error {
	startTime := time.Now()

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName + "-linesim",
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}

	repoFactory := repositories.NewRepositoryFactory(parent, cfg, log.Named("repositories"))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := monitoring.NewPrometheusCollector(reg)

	ws := cfg.Simulator.RateLimiting.WebSocket
	hubOpts := signal.HubOptions{
		PingInterval:   cfg.Simulator.PingInterval,
		PongTimeout:    cfg.Simulator.PongTimeout,
		WriteTimeout:   cfg.Simulator.WriteTimeout,
		ReadLimitBytes: ws.MaxMessageSizeBytes,
		Metrics:        collector,
		Logger:         log.Named("hub"),
	}
	if cfg.Simulator.RateLimiting.Enabled {
		hubOpts.MessagesPerSecond = ws.MessagesPerSecond
		hubOpts.Burst = ws.Burst
	}
	hub := signal.NewHub(hubOpts)

	line := services.NewLineService(
		repoFactory.CreatePolicyRepository(),
		repoFactory.CreateDocumentRepository(),
		repoFactory.CreateEventRepository(),
		hub,
		collector,
		services.LineOptions{
			ConfidenceThreshold: cfg.Simulator.ConfidenceThreshold,
			ConfidenceLow:       cfg.Simulator.ConfidenceLow,
			CameraBackend:       cfg.Simulator.CameraBackend,
		},
		log.Named("line"),
	)

	ctx, stop := ossignal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Simulator.SeedPolicy {
		if err := seedPolicy(ctx, line, log); err != nil {
			return fmt.Errorf("failed to seed policy: %w", err)
		}
	}

	health := monitoring.NewHealthChecker()

	g, gctx := errgroup.WithContext(ctx)

	if client := repoFactory.RedisClient(); client != nil {
		bus := distributed.NewEventBus(client, uuid.NewString(), cfg.Simulator.Redis.Channel, log.Named("relay"))
		hub.SetRelay(bus)
		health.AddRedisCheck(client, 2*time.Second)
		g.Go(func() error {
			return ignoreCanceled(bus.Subscribe(gctx, hub.BroadcastFrame))
		})
	}

	if cfg.Simulator.EmitInterval > 0 {
		generator := services.NewLineGenerator(line, cfg.Simulator.EmitInterval, log.Named("generator"))
		g.Go(func() error { return ignoreCanceled(generator.Run(gctx)) })
	}

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		middleware.RecoveryMiddleware(log),
		middleware.TracingMiddleware(logger.NewContextLogger(zapLogger)),
		middleware.ErrorHandlerMiddleware(log),
		middleware.NewHTTPRateLimitMiddleware(cfg),
	)

	httphandlers.NewLineHandler(line).SetupRoutes(router)
	router.GET("/ws", gin.WrapF(hub.HandleWebSocket))

	router.GET("/ready", func(c *gin.Context) {
		status := health.CheckAll(c.Request.Context())
		code := http.StatusOK
		if status.Status != monitoring.StatusOK {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status": status.Status,
			"checks": status.Checks,
			"uptime": time.Since(startTime).String(),
		})
	})

	if cfg.Monitoring.PrometheusEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
		log.Info("Prometheus metrics enabled")
	}

	srv := &http.Server{
		Addr:         cfg.Simulator.Address,
		Handler:      router,
		ReadTimeout:  cfg.Simulator.ReadTimeout,
		WriteTimeout: cfg.Simulator.WriteTimeout,
	}

	g.Go(func() error {
		log.Infow("starting line simulator",
			"address", cfg.Simulator.Address,
			"ws", wsURL(cfg.Simulator.Address),
			"emit_interval", cfg.Simulator.EmitInterval,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down line simulator...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Simulator.ShutdownTimeout)
		defer cancel()

		hub.Close()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorw("error during server shutdown", "error", err)
			if closeErr := srv.Close(); closeErr != nil {
				log.Errorw("error force closing server", "error", closeErr)
			}
		}
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warnw("error flushing traces", "error", err)
		}
		return nil
	})

	err = g.Wait()

	if closeErr := repoFactory.Close(); closeErr != nil {
		log.Errorw("error closing repository factory", "error", closeErr)
	}
	if err != nil {
		log.Errorw("line simulator stopped", "error", err)
		return err
	}
	log.Info("line simulator stopped")
	return nil
}

func seedPolicy(ctx context.Context, line *services.LineService, log *zap.SugaredLogger) error {
	doc, err := line.UploadDocument(ctx, "sorting-rules.md", []byte(seedDocument))
	if err != nil {
		return err
	}
	policy, err := line.CompilePolicy(ctx, doc.DocumentID)
	if err != nil {
		return err
	}
	if _, err := line.ApprovePolicy(ctx, policy.PolicyID, "linesim"); err != nil {
		return err
	}
	log.Infow("seeded approved policy", "policy_id", policy.PolicyID)
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func wsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "ws://" + addr + "/ws"
}
