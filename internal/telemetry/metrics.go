package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the Prometheus instruments exposed on /metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	ChatRequests  *prometheus.CounterVec
	ModelErrors   *prometheus.CounterVec
	SelfTriggers  *prometheus.CounterVec
	TurnsAppended prometheus.Counter
	ModelLatency  prometheus.Histogram
}

// NewMetrics registers instruments on a fresh registry, so tests can build many.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat requests by response status code.",
		}, []string{"status"}),
		ModelErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_errors_total",
			Help:      "Failed model invocations by backend.",
		}, []string{"backend"}),
		SelfTriggers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "self_trigger_total",
			Help:      "Self-triggered calls by outcome (ok, degraded, skipped, failed).",
		}, []string{"outcome"}),
		TurnsAppended: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_appended_total",
			Help:      "Turns appended to session histories.",
		}),
		ModelLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_latency_ms",
			Help:      "Model completion latency in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 5000, 10000, 30000, 60000},
		}),
	}
}

func (m *Metrics) ObserveModel(backend string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.ModelLatency.Observe(float64(d.Milliseconds()))
	if err != nil {
		m.ModelErrors.WithLabelValues(backend).Inc()
	}
}

func (m *Metrics) AddTurns(n int) {
	if m == nil {
		return
	}
	m.TurnsAppended.Add(float64(n))
}

func (m *Metrics) SelfTrigger(outcome string) {
	if m == nil {
		return
	}
	m.SelfTriggers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ChatRequest(status string) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(status).Inc()
}

// Handler serves the registry in Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
