// Package metrics implements the Recorder interface the transport driver
// reports events to. The metrics surface is deliberately narrow — the spec
// names metrics as an external, interface-only concern, and the core
// packages (engine, ruleset, relay, proxy) never import Prometheus
// directly.
package metrics

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// Recorder is the metrics collaborator pkg/proxy reports to. proxy.Server
// and relay.New treat a nil Recorder as NoOp.
type Recorder interface {
	ConnectionAccepted(protocol string)
	ConnectionRejected(protocol, reason string)
	ConnectionClosed(protocol string)
	BytesRelayed(direction string, n int)
	RelayDuration(d time.Duration)
}

// noop satisfies Recorder by discarding every event, used when the proxy
// is run with metrics disabled.
type noop struct{}

// NoOp is the Recorder used when no Prometheus instance is configured.
var NoOp Recorder = noop{}

func (noop) ConnectionAccepted(string)         {}
func (noop) ConnectionRejected(string, string) {}
func (noop) ConnectionClosed(string)           {}
func (noop) BytesRelayed(string, int)          {}
func (noop) RelayDuration(time.Duration)       {}

// Prometheus is the production Recorder, backed by promauto counter/gauge
// vectors in the same shape as the teacher's VPN connection metrics
// (ConnectionsTotal, DataTransferred, ActiveConnections), relabeled for the
// proxy domain.
type Prometheus struct {
	connectionsTotal  *prometheus.CounterVec
	rejectionsTotal   *prometheus.CounterVec
	dataTransferred   *prometheus.CounterVec
	relayDuration     *prometheus.HistogramVec
	activeConnections prometheus.Gauge
}

// NewPrometheus registers the proxy's metric families against the default
// registry and returns a Recorder backed by them.
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		connectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soxyproxy_connections_total",
				Help: "Total number of accepted client connections.",
			},
			[]string{"protocol"},
		),
		rejectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soxyproxy_connections_rejected_total",
				Help: "Total number of rejected client connections.",
			},
			[]string{"protocol", "reason"},
		),
		dataTransferred: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soxyproxy_data_transferred_bytes_total",
				Help: "Total bytes relayed between clients and their destinations.",
			},
			[]string{"direction"},
		),
		relayDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "soxyproxy_relay_duration_seconds",
				Help:    "Duration of a completed relay session.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{},
		),
		activeConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "soxyproxy_active_connections",
				Help: "Number of accepted client connections currently being handled.",
			},
		),
	}
	return p
}

func (p *Prometheus) ConnectionAccepted(protocol string) {
	p.connectionsTotal.WithLabelValues(protocol).Inc()
	p.activeConnections.Inc()
}

func (p *Prometheus) ConnectionRejected(protocol, reason string) {
	p.rejectionsTotal.WithLabelValues(protocol, reason).Inc()
}

// ConnectionClosed matches the Inc in ConnectionAccepted; the transport
// driver defers it right after every ConnectionAccepted call so the gauge
// settles back to zero regardless of which stage a client's handling ends
// at (handshake failure, ruleset rejection, dial failure, or a completed
// relay).
func (p *Prometheus) ConnectionClosed(string) {
	p.activeConnections.Dec()
}

func (p *Prometheus) BytesRelayed(direction string, n int) {
	p.dataTransferred.WithLabelValues(direction).Add(float64(n))
}

func (p *Prometheus) RelayDuration(d time.Duration) {
	p.relayDuration.WithLabelValues().Observe(d.Seconds())
}

// Handler returns a Fiber handler exposing the Prometheus exposition
// format, wiring promhttp through fasthttpadaptor exactly as the teacher's
// PrometheusHandler does.
func Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
		handler(c.Context())
		return nil
	}
}
