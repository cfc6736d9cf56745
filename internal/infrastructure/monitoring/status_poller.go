package monitoring

import (
	"context"
	"time"

	"floorview/internal/core/domain"

	"go.uber.org/zap"
)

type StatusFetcher interface {
	Status(ctx context.Context) (domain.ServiceStatus, error)
}

// StatusPoller polls the line backend on a fixed interval. A failed poll is
// published as an unavailable status and is not retried before the next tick.
type StatusPoller struct {
	fetcher  StatusFetcher
	interval time.Duration
	timeout  time.Duration
	metrics  *PrometheusCollector
	logger   *zap.SugaredLogger
}

func NewStatusPoller(fetcher StatusFetcher, interval time.Duration, metrics *PrometheusCollector, logger *zap.SugaredLogger) *StatusPoller {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	timeout := interval
	if timeout <= 0 || timeout > 10*time.Second {
		timeout = 10 * time.Second
	}
	return &StatusPoller{
		fetcher:  fetcher,
		interval: interval,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run polls once immediately and then every interval until ctx is done.
func (p *StatusPoller) Run(ctx context.Context, publish func(domain.ServiceStatus)) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	publish(p.Poll(ctx))
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			publish(p.Poll(ctx))
		}
	}
}

// Poll runs a single status request.
func (p *StatusPoller) Poll(ctx context.Context) domain.ServiceStatus {
	pollCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	st, err := p.fetcher.Status(pollCtx)
	if p.metrics != nil {
		p.metrics.RecordStatusPoll(err == nil)
	}
	if err != nil {
		p.logger.Debugw("status poll failed", "error", err)
		return domain.ServiceStatus{Available: false, CheckedAt: time.Now()}
	}
	return st
}
