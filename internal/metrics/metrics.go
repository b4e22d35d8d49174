// Package metrics exposes Prometheus counters for pipe transports and the
// relay server. Each Metrics value owns its own registry so tests and
// embedded uses never collide on global registration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Push outcomes.
const (
	PushSent       = "sent"
	PushSuppressed = "suppressed"
	PushSuperseded = "superseded"
	PushExpired    = "expired"
	PushFailed     = "failed"
)

// Pull outcomes.
const (
	PullReceived = "received"
	PullEmpty    = "empty"
	PullFailed   = "failed"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	listenersOpened *prometheus.CounterVec
	pushes          *prometheus.CounterVec
	pulls           *prometheus.CounterVec
	payloadBytes    *prometheus.HistogramVec
	relayRequests   *prometheus.CounterVec
}

// New builds a Metrics with a private registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		listenersOpened: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thepipe_listeners_opened_total",
				Help: "Local pipe listeners opened, per endpoint",
			},
			[]string{"pipe"},
		),
		pushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thepipe_pushes_total",
				Help: "Push attempts by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),
		pulls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thepipe_pulls_total",
				Help: "Pull attempts by transport and outcome",
			},
			[]string{"transport", "outcome"},
		),
		payloadBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "thepipe_payload_bytes",
				Help:    "Encoded tree sizes",
				Buckets: prometheus.ExponentialBuckets(256, 4, 10),
			},
			[]string{"transport", "direction"},
		),
		relayRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thepipe_relay_requests_total",
				Help: "Relay HTTP requests by method and status code",
			},
			[]string{"method", "code"},
		),
	}
	m.Registry.MustRegister(
		m.listenersOpened,
		m.pushes,
		m.pulls,
		m.payloadBytes,
		m.relayRequests,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ListenerOpened(pipe string) {
	if m == nil {
		return
	}
	m.listenersOpened.WithLabelValues(pipe).Inc()
}

func (m *Metrics) Push(transport, outcome string) {
	if m == nil {
		return
	}
	m.pushes.WithLabelValues(transport, outcome).Inc()
}

func (m *Metrics) Pull(transport, outcome string) {
	if m == nil {
		return
	}
	m.pulls.WithLabelValues(transport, outcome).Inc()
}

// Payload records the size of an encoded tree; direction is "out" or "in".
func (m *Metrics) Payload(transport, direction string, size int) {
	if m == nil {
		return
	}
	m.payloadBytes.WithLabelValues(transport, direction).Observe(float64(size))
}

func (m *Metrics) RelayRequest(method, code string) {
	if m == nil {
		return
	}
	m.relayRequests.WithLabelValues(method, code).Inc()
}

// ListenersOpenedCounter exposes the per-pipe counter for tests and the CLI.
func (m *Metrics) ListenersOpenedCounter(pipe string) prometheus.Counter {
	return m.listenersOpened.WithLabelValues(pipe)
}

// PushCounter exposes one push counter for tests.
func (m *Metrics) PushCounter(transport, outcome string) prometheus.Counter {
	return m.pushes.WithLabelValues(transport, outcome)
}

// PullCounter exposes one pull counter for tests.
func (m *Metrics) PullCounter(transport, outcome string) prometheus.Counter {
	return m.pulls.WithLabelValues(transport, outcome)
}
