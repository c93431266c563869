package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/ussdflow/pkg/domain"
)

const namespace = "ussdflow"

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	gatherer prometheus.Gatherer

	events         *prometheus.CounterVec
	eventDuration  *prometheus.HistogramVec
	stateVisits    *prometheus.CounterVec
	actionCalls    *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
	sessionsEnded  *prometheus.CounterVec
	evicted        prometheus.Counter
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses a fresh private registry.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound USSD events by outcome.",
		}, []string{"service", "outcome"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Time to answer one inbound event.",
			Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"service"}),
		stateVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_visits_total",
			Help:      "Entries into each state.",
		}, []string{"service", "state"}),
		actionCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_calls_total",
			Help:      "Completed actions by final API status.",
		}, []string{"service", "state", "status"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Duration of actions including retries.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"service", "state"}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Sessions removed by the engine, by reason.",
		}, []string{"service", "reason"}),
		evicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_evicted_total",
			Help:      "Idle or overdue sessions removed by the sweeper.",
		}),
	}
	reg.MustRegister(m.events, m.eventDuration, m.stateVisits, m.actionCalls, m.actionDuration, m.sessionsEnded, m.evicted)
	return m
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnEvent: func(_ context.Context, e *domain.HandledEvent) {
			m.events.WithLabelValues(e.ServiceCode, e.Outcome).Inc()
			m.eventDuration.WithLabelValues(e.ServiceCode).Observe(e.Duration.Seconds())
		},
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			m.stateVisits.WithLabelValues(e.ServiceCode, e.StateID).Inc()
		},
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) {
			m.actionCalls.WithLabelValues(e.ServiceCode, e.StateID, string(e.Status)).Inc()
			m.actionDuration.WithLabelValues(e.ServiceCode, e.StateID).Observe(e.Duration.Seconds())
		},
		OnSessionEnd: func(_ context.Context, e *domain.SessionEndEvent) {
			m.sessionsEnded.WithLabelValues(e.ServiceCode, string(e.Reason)).Inc()
		},
	}
}

// OnEvict counts a session removed by the sweeper.
func (m *Metrics) OnEvict(context.Context, *domain.Session) {
	m.evicted.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
