package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/i474232898/weather-assistant/internal/llm"
	"github.com/i474232898/weather-assistant/internal/weather"
)

const namespace = "weather_assistant"

const (
	// OutcomeSuccess labels completed LLM calls.
	OutcomeSuccess = "success"
	// OutcomeError labels failed LLM calls.
	OutcomeError = "error"
)

// Metrics owns the assistant's collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	resolvesTotal   *prometheus.CounterVec
	resolveDuration *prometheus.HistogramVec
	llmCallsTotal   *prometheus.CounterVec
	llmDuration     *prometheus.HistogramVec
	turnsTotal      *prometheus.CounterVec
}

// New builds a registry with the assistant collectors plus the Go and
// process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		resolvesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "weather_resolves_total",
				Help:      "Weather lookups, partitioned by provider window and outcome.",
			},
			[]string{"window", "outcome"},
		),
		resolveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "weather_resolve_seconds",
				Help:      "Weather lookup latency in seconds.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"window"},
		),
		llmCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_calls_total",
				Help:      "LLM completions, partitioned by stage and outcome.",
			},
			[]string{"stage", "outcome"},
		),
		llmDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_call_seconds",
				Help:      "LLM completion latency in seconds.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 30},
			},
			[]string{"stage"},
		),
		turnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "chat_turns_total",
				Help:      "Conversation turns served, partitioned by surface and outcome.",
			},
			[]string{"surface", "outcome"},
		),
	}

	m.registry.MustRegister(
		m.resolvesTotal,
		m.resolveDuration,
		m.llmCallsTotal,
		m.llmDuration,
		m.turnsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveResolve implements weather.Observer.
func (m *Metrics) ObserveResolve(window weather.Window, outcome string, elapsed time.Duration) {
	m.resolvesTotal.WithLabelValues(string(window), outcome).Inc()
	if elapsed < 0 {
		elapsed = 0
	}
	m.resolveDuration.WithLabelValues(string(window)).Observe(elapsed.Seconds())
}

// ObserveTurn counts one answered turn.
func (m *Metrics) ObserveTurn(surface, outcome string) {
	m.turnsTotal.WithLabelValues(surface, outcome).Inc()
}

// InstrumentCompleter wraps c so every completion is counted and timed.
func (m *Metrics) InstrumentCompleter(c llm.Completer) llm.Completer {
	return &instrumentedCompleter{next: c, metrics: m}
}

type instrumentedCompleter struct {
	next    llm.Completer
	metrics *Metrics
}

func (i *instrumentedCompleter) Complete(ctx context.Context, req llm.Request) (string, error) {
	stage := req.Stage
	if stage == "" {
		stage = "unknown"
	}

	start := time.Now()
	reply, err := i.next.Complete(ctx, req)
	i.metrics.llmDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())

	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	i.metrics.llmCallsTotal.WithLabelValues(stage, outcome).Inc()
	return reply, err
}
