package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CasesTriggered    prometheus.Counter
	CasesAcknowledged prometheus.Counter
	CasesExhausted    prometheus.Counter
	Deliveries        *prometheus.CounterVec
	WebhookDeliveries *prometheus.CounterVec
	DispatchDuration  *prometheus.HistogramVec
	TickDuration      prometheus.Histogram
}

// New registers all engine metrics on the given registerer. Tests pass a
// fresh prometheus.NewRegistry to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		CasesTriggered: factory.NewCounter(prometheus.CounterOpts{
			Name: "escalation_cases_triggered_total",
			Help: "Total number of escalation cases opened",
		}),
		CasesAcknowledged: factory.NewCounter(prometheus.CounterOpts{
			Name: "escalation_cases_acknowledged_total",
			Help: "Total number of escalation cases acknowledged",
		}),
		CasesExhausted: factory.NewCounter(prometheus.CounterOpts{
			Name: "escalation_cases_exhausted_total",
			Help: "Total number of escalation cases that ran out of steps",
		}),
		Deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "escalation_deliveries_total",
			Help: "Total delivery attempts by channel and outcome",
		}, []string{"channel", "status"}),
		WebhookDeliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Total webhook delivery attempts by outcome",
		}, []string{"status"}),
		DispatchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "escalation_dispatch_duration_seconds",
			Help:    "Time taken to deliver via a channel provider",
			Buckets: prometheus.DefBuckets,
		}, []string{"channel"}),
		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "escalation_tick_duration_seconds",
			Help:    "Time taken to process one scheduler tick",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
