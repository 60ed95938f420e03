// Package metrics holds the engine's Prometheus instruments.
// A nil *Metrics is valid and records nothing, so components can be built without it in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	persists      *prometheus.CounterVec
	snapshotBytes prometheus.Gauge
	toolCalls     *prometheus.CounterVec
	chatTurns     *prometheus.CounterVec
	scoutRuns     *prometheus.CounterVec
	scoutLeads    prometheus.Counter
	scoutDuration prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		persists: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgenius",
			Name:      "store_persists_total",
			Help:      "Snapshot writes to the durable slot, by result.",
		}, []string{"result"}),
		snapshotBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "leadgenius",
			Name:      "store_snapshot_bytes",
			Help:      "Size of the last successfully persisted snapshot.",
		}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgenius",
			Name:      "assistant_tool_calls_total",
			Help:      "Assistant tool calls, by tool and outcome.",
		}, []string{"tool", "outcome"}),
		chatTurns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgenius",
			Name:      "assistant_turns_total",
			Help:      "Conversational turns, by how they finished.",
		}, []string{"outcome"}),
		scoutRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadgenius",
			Name:      "scout_runs_total",
			Help:      "Scouting pipeline runs, by result.",
		}, []string{"result"}),
		scoutLeads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "leadgenius",
			Name:      "scout_leads_total",
			Help:      "Leads produced by the scouting pipeline.",
		}),
		scoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "leadgenius",
			Name:      "scout_duration_seconds",
			Help:      "Wall time of a scouting run.",
			Buckets:   []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.persists, m.snapshotBytes, m.toolCalls, m.chatTurns,
		m.scoutRuns, m.scoutLeads, m.scoutDuration,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObservePersist(size int, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.persists.WithLabelValues("error").Inc()
		return
	}
	m.persists.WithLabelValues("ok").Inc()
	m.snapshotBytes.Set(float64(size))
}

// ObserveToolCall records one dispatched tool call. outcome is ok, error or rejected.
func (m *Metrics) ObserveToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveScout(d time.Duration, leads int, err error) {
	if m == nil {
		return
	}
	m.scoutDuration.Observe(d.Seconds())
	if err != nil {
		m.scoutRuns.WithLabelValues("error").Inc()
		return
	}
	m.scoutRuns.WithLabelValues("ok").Inc()
	m.scoutLeads.Add(float64(leads))
}
