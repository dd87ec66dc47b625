// Package metrics exposes Prometheus collectors for the collaboration
// engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "paperpal"

// Metrics carries its own registry so tests can create independent
// instances without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	ActionsTotal   *prometheus.CounterVec
	StreamClients  prometheus.Gauge
	EventsTotal    *prometheus.CounterVec
	DroppedClients prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatch_actions_total",
			Help:      "Dispatch actions processed, by action name.",
		}, []string{"action"}),
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clients",
			Help:      "Currently connected push-stream clients.",
		}),
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_events_total",
			Help:      "Events fanned out to stream clients, by event type.",
		}, []string{"type"}),
		DroppedClients: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_clients_total",
			Help:      "Stream clients dropped because their send buffer was full.",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
