package monitoring

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	StatusOK        = "ok"
	StatusUnhealthy = "unhealthy"
)

// Probe reports a dependency as healthy by returning nil.
type Probe func(ctx context.Context) error

type namedProbe struct {
	name    string
	probe   Probe
	timeout time.Duration
}

// ReadinessReport is the body linesim serves on /ready.
type ReadinessReport struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
}

// HealthChecker runs the registered probes concurrently, each under its own
// timeout.
type HealthChecker struct {
	mu     sync.RWMutex
	probes []namedProbe
}

func NewHealthChecker() *HealthChecker {
	return &HealthChecker{}
}

// AddCheck registers probe under name. A timeout of zero leaves the caller's
// deadline in charge.
func (h *HealthChecker) AddCheck(name string, timeout time.Duration, probe Probe) {
	h.mu.Lock()
	h.probes = append(h.probes, namedProbe{name: name, probe: probe, timeout: timeout})
	h.mu.Unlock()
}

// AddRedisCheck pings the relay client.
func (h *HealthChecker) AddRedisCheck(client redis.UniversalClient, timeout time.Duration) {
	h.AddCheck("redis", timeout, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	})
}

// CheckAll runs every probe once. No probes means ready.
func (h *HealthChecker) CheckAll(ctx context.Context) ReadinessReport {
	h.mu.RLock()
	probes := append([]namedProbe(nil), h.probes...)
	h.mu.RUnlock()

	results := make([]error, len(probes))
	var wg sync.WaitGroup
	for i, p := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = p.run(ctx)
		}()
	}
	wg.Wait()

	report := ReadinessReport{
		Status:    StatusOK,
		Timestamp: time.Now(),
		Checks:    make(map[string]string, len(probes)),
	}
	for i, p := range probes {
		if err := results[i]; err != nil {
			report.Status = StatusUnhealthy
			report.Checks[p.name] = err.Error()
			continue
		}
		report.Checks[p.name] = StatusOK
	}
	return report
}

func (h *HealthChecker) IsReady(ctx context.Context) bool {
	return h.CheckAll(ctx).Status == StatusOK
}

func (p namedProbe) run(ctx context.Context) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	return p.probe(ctx)
}
