package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	ossignal "os/signal"
	"syscall"
	"time"

	"floorview/internal/app"
	"floorview/internal/infrastructure/collaborator"
	"floorview/internal/infrastructure/monitoring"
	"floorview/internal/infrastructure/render"
	"floorview/internal/infrastructure/stream"
	"floorview/pkg/backoff"
	"floorview/pkg/config"
	"floorview/pkg/logger"
	"floorview/pkg/tracing"

	"github.com/gdamore/tcell/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func runDashboard(parent context.Context, cfg *config.Config) error {
	// the terminal is the render surface, so logs never go to stdout
	out := cfg.Logging.OutputPath
	if out == "" || out == "stdout" || out == "stderr" {
		out = "floorview.log"
	}
	zapLogger, err := logger.NewWithOptions(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputPath: out,
	})
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	tp, err := tracing.Init(tracing.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		JaegerURL:   cfg.Tracing.JaegerURL,
		Environment: cfg.Tracing.Environment,
		SampleRate:  cfg.Tracing.SampleRate,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Warnw("error flushing traces", "error", err)
		}
	}()

	layout, err := app.LayoutFromConfig(cfg)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	collector := monitoring.NewPrometheusCollector(reg)

	ctx, stop := ossignal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.PrometheusEnabled {
		metricsSrv := serveMetrics(cfg.Monitoring.Address, reg, log)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	client := stream.NewClient(stream.Options{
		URL: cfg.Stream.URL,
		Backoff: backoff.Config{
			InitialDelay: cfg.Stream.BaseDelay,
			MaxDelay:     cfg.Stream.MaxDelay,
			Multiplier:   cfg.Stream.Multiplier,
		},
		HandshakeTimeout: cfg.Stream.HandshakeTimeout,
		PingInterval:     cfg.Stream.PingInterval,
		Dialer:           stream.NewWebsocketDialer(cfg.Stream.HandshakeTimeout, cfg.Stream.ReadLimitBytes),
		Observer:         collector,
		Logger:           log.Named("stream"),
	})

	api := collaborator.NewClient(cfg.API.BaseURL, cfg.API.Timeout, log.Named("api"))
	poller := monitoring.NewStatusPoller(api, cfg.API.StatusPollInterval, collector, log.Named("status"))

	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("failed to init terminal: %w", err)
	}
	defer screen.Fini()
	screen.HideCursor()

	dash, err := app.New(app.Options{
		Layout:       layout,
		FPS:          cfg.Render.FPS,
		ParticleStep: cfg.Render.ParticleStep,
		LogRows:      cfg.Render.LogRows,
		Stream:       client,
		Status:       poller,
		Surface:      render.NewTerminalSurface(screen, cfg.Render.PixelDensity),
		Metrics:      collector,
		Logger:       log.Named("dashboard"),
	})
	if err != nil {
		return err
	}

	go app.PollScreen(ctx, screen, dash.Intents())

	log.Infow("starting dashboard",
		"stream", cfg.Stream.URL,
		"api", cfg.API.BaseURL,
		"fps", cfg.Render.FPS,
	)
	err = dash.Run(ctx)
	log.Infow("dashboard stopped", "error", err)
	return err
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.SugaredLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Infow("serving metrics", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("metrics server failed", "error", err)
		}
	}()
	return srv
}
