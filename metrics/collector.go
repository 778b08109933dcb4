// Package metrics exposes Prometheus metrics for the voice relay.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Message outcomes.
const (
	OutcomeHandled   = "handled"
	OutcomeBusy      = "dropped_busy"
	OutcomeMalformed = "malformed"
	OutcomeUnknown   = "unknown_type"
	// OutcomeRejected is a config message that failed validation.
	OutcomeRejected = "rejected"
)

// Collector holds the service metrics.
type Collector struct {
	sessionsActive   prometheus.Gauge
	messagesTotal    *prometheus.CounterVec
	pipelineDuration *prometheus.HistogramVec
	pipelineErrors   *prometheus.CounterVec
	providerSwitches *prometheus.CounterVec
}

// NewCollector registers the metrics with reg under namespace.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of open websocket sessions",
		}),
		messagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_total",
				Help:      "Inbound client messages by type and outcome",
			},
			[]string{"type", "outcome"},
		),
		pipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pipeline_duration_seconds",
				Help:      "Round-trip duration of completed pipelines",
				Buckets:   []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
			},
			[]string{"kind"},
		),
		pipelineErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pipeline_errors_total",
				Help:      "Pipeline failures by stage",
			},
			[]string{"stage"},
		),
		providerSwitches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "provider_switches_total",
				Help:      "Provider selections applied through config messages",
			},
			[]string{"kind", "provider"},
		),
	}
}

func (c *Collector) SessionOpened() { c.sessionsActive.Inc() }
func (c *Collector) SessionClosed() { c.sessionsActive.Dec() }

func (c *Collector) Message(msgType, outcome string) {
	c.messagesTotal.WithLabelValues(msgType, outcome).Inc()
}

func (c *Collector) PipelineCompleted(kind string, d time.Duration) {
	c.pipelineDuration.WithLabelValues(kind).Observe(d.Seconds())
}

func (c *Collector) PipelineFailed(stage string) {
	c.pipelineErrors.WithLabelValues(stage).Inc()
}

func (c *Collector) ProviderSwitched(kind, name string) {
	c.providerSwitches.WithLabelValues(kind, name).Inc()
}
