package app

import (
	"context"
	"fmt"
	"time"

	"floorview/internal/core/domain"
	"floorview/internal/core/ports"
	"floorview/internal/core/services"

	"go.uber.org/zap"
)

// StreamSource is the event stream the dashboard folds.
type StreamSource interface {
	OnEvent(fn func(domain.Event)) (unsubscribe func())
	Connect() error
	Disconnect()
	State() domain.ConnState
}

// StatusSource publishes collaborator availability until ctx is done.
type StatusSource interface {
	Run(ctx context.Context, publish func(domain.ServiceStatus))
}

type FrameMetrics interface {
	RecordFrame(d time.Duration, particles int)
}

type Intent int

const (
	IntentQuit Intent = iota
	IntentRedraw
)

type Options struct {
	Layout       *domain.Layout
	FPS          int
	ParticleStep float64
	LogRows      int
	// EventBuffer sizes the queue between the stream listener and the loop.
	EventBuffer int

	Stream  StreamSource
	Status  StatusSource
	Surface ports.Surface
	Metrics FrameMetrics
	Logger  *zap.SugaredLogger
}

// Dashboard runs the render loop. The loop goroutine is the only one touching
// the store and the animation engine.
type Dashboard struct {
	opts    Options
	store   *services.DashboardService
	engine  *services.AnimationEngine
	events  chan domain.Event
	status  chan domain.ServiceStatus
	intents chan Intent
	logger  *zap.SugaredLogger

	service domain.ServiceStatus
}

func New(opts Options) (*Dashboard, error) {
	if opts.Layout == nil {
		opts.Layout = domain.DefaultLayout()
	}
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.ParticleStep == 0 {
		opts.ParticleStep = services.DefaultParticleStep
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 256
	}
	if opts.Stream == nil {
		return nil, fmt.Errorf("stream source is required")
	}
	if opts.Surface == nil {
		return nil, fmt.Errorf("surface is required")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop().Sugar()
	}

	engine, err := services.NewAnimationEngine(opts.Layout, opts.ParticleStep, opts.LogRows)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		opts:    opts,
		store:   services.NewDashboardService(opts.Layout, opts.Logger),
		engine:  engine,
		events:  make(chan domain.Event, opts.EventBuffer),
		status:  make(chan domain.ServiceStatus, 1),
		intents: make(chan Intent, 8),
		logger:  opts.Logger,
	}, nil
}

// Intents accepts user intents from the input goroutine.
func (d *Dashboard) Intents() chan<- Intent {
	return d.intents
}

// Snapshot returns the folded dashboard. Safe from any goroutine.
func (d *Dashboard) Snapshot() domain.Dashboard {
	return d.store.Snapshot()
}

// Run connects the stream and renders until ctx is done or a quit intent
// arrives. The stream is disconnected before Run returns.
func (d *Dashboard) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	unsubscribe := d.opts.Stream.OnEvent(func(ev domain.Event) {
		select {
		case d.events <- ev:
		case <-runCtx.Done():
		}
	})
	defer func() {
		// the listener selects on runCtx, so cancel before Disconnect waits
		// for in-flight dispatch
		cancel()
		d.opts.Stream.Disconnect()
		unsubscribe()
	}()

	if err := d.opts.Stream.Connect(); err != nil {
		return fmt.Errorf("failed to connect stream: %w", err)
	}

	if d.opts.Status != nil {
		go d.opts.Status.Run(runCtx, func(st domain.ServiceStatus) {
			select {
			case d.status <- st:
			case <-runCtx.Done():
			}
		})
	}

	ticker := time.NewTicker(time.Second / time.Duration(d.opts.FPS))
	defer ticker.Stop()

	d.logger.Infow("dashboard running", "fps", d.opts.FPS, "bins", len(d.opts.Layout.Bins()))
	d.paint()

	for {
		select {
		case <-runCtx.Done():
			return nil

		case ev := <-d.events:
			if tr, ok := d.store.Handle(ev); ok {
				d.engine.Spawn(tr)
			}

		case st := <-d.status:
			d.service = st

		case intent := <-d.intents:
			switch intent {
			case IntentQuit:
				d.logger.Info("quit requested")
				return nil
			case IntentRedraw:
				d.paint()
			}

		case <-ticker.C:
			d.engine.Tick()
			d.paint()
		}
	}
}

func (d *Dashboard) paint() {
	start := time.Now()
	d.engine.Paint(d.opts.Surface, services.Frame{
		Dashboard: d.store.Snapshot(),
		Stream:    d.opts.Stream.State(),
		Service:   d.service,
	})
	if d.opts.Metrics != nil {
		d.opts.Metrics.RecordFrame(time.Since(start), len(d.engine.Particles()))
	}
}
