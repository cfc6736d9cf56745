package monitoring

import (
	"time"

	"floorview/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exposes dashboard and simulator metrics. It satisfies
// the stream client's Observer.
type PrometheusCollector struct {
	// Stream client
	eventsReceived  *prometheus.CounterVec
	decodeErrors    prometheus.Counter
	reconnects      prometheus.Counter
	reconnectDelay  prometheus.Histogram
	connectionState prometheus.Gauge

	// Render loop
	activeParticles prometheus.Gauge
	frameDuration   prometheus.Histogram

	// Status poller
	statusPolls *prometheus.CounterVec

	// Simulator
	hubClients       prometheus.Gauge
	broadcastsTotal  *prometheus.CounterVec
	inspectionsTotal *prometheus.CounterVec
}

// NewPrometheusCollector registers all metrics on reg. Tests pass a fresh
// prometheus.NewRegistry().
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	factory := promauto.With(reg)
	return &PrometheusCollector{
		eventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "floorview_stream_events_received_total",
			Help: "Decoded stream events by kind",
		}, []string{"kind"}),

		decodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "floorview_stream_decode_errors_total",
			Help: "Stream frames dropped because they could not be decoded",
		}),

		reconnects: factory.NewCounter(prometheus.CounterOpts{
			Name: "floorview_stream_reconnects_total",
			Help: "Reconnect attempts scheduled",
		}),

		reconnectDelay: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "floorview_stream_reconnect_delay_seconds",
			Help:    "Backoff delay of scheduled reconnects",
			Buckets: []float64{0.5, 1, 2, 4, 8, 10, 30},
		}),

		connectionState: factory.NewGauge(prometheus.GaugeOpts{
			Name: "floorview_stream_connection_state",
			Help: "Stream connection state (0 idle, 1 connecting, 2 open, 3 closed, 4 reconnecting, 5 disconnected)",
		}),

		activeParticles: factory.NewGauge(prometheus.GaugeOpts{
			Name: "floorview_active_particles",
			Help: "Particles currently in flight",
		}),

		frameDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "floorview_frame_duration_seconds",
			Help:    "Time spent stepping and painting one frame",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.1},
		}),

		statusPolls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "floorview_status_polls_total",
			Help: "Status polls by result",
		}, []string{"result"}),

		hubClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "linesim_ws_clients",
			Help: "Websocket clients connected to the simulator",
		}),

		broadcastsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linesim_broadcasts_total",
			Help: "Envelopes broadcast by kind",
		}, []string{"kind"}),

		inspectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "linesim_inspections_total",
			Help: "Simulated inspections by decision action",
		}, []string{"action"}),
	}
}

func (p *PrometheusCollector) EventReceived(kind domain.EventKind) {
	p.eventsReceived.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusCollector) DecodeFailed() {
	p.decodeErrors.Inc()
}

func (p *PrometheusCollector) ReconnectScheduled(delay time.Duration) {
	p.reconnects.Inc()
	p.reconnectDelay.Observe(delay.Seconds())
}

func (p *PrometheusCollector) StateChanged(state domain.ConnState) {
	p.connectionState.Set(float64(state))
}

func (p *PrometheusCollector) RecordFrame(duration time.Duration, particles int) {
	p.frameDuration.Observe(duration.Seconds())
	p.activeParticles.Set(float64(particles))
}

func (p *PrometheusCollector) RecordStatusPoll(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	p.statusPolls.WithLabelValues(result).Inc()
}

func (p *PrometheusCollector) SetHubClients(n int) {
	p.hubClients.Set(float64(n))
}

func (p *PrometheusCollector) RecordBroadcast(kind domain.EventKind) {
	p.broadcastsTotal.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusCollector) RecordInspection(action domain.Action) {
	p.inspectionsTotal.WithLabelValues(string(action)).Inc()
}
