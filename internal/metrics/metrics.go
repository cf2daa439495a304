// Package metrics exposes Prometheus collectors for bot traffic,
// conversation outcomes and store occupancy.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/unilinkup/core/telegram/middleware"
	tgsender "github.com/m3rciful/unilinkup/core/telegram/sender"
	"github.com/m3rciful/unilinkup/internal/conversation"
	"github.com/m3rciful/unilinkup/internal/store"
)

const namespace = "unilinkup"

// StoreStatser is satisfied by *store.Store.
type StoreStatser interface {
	Stats() store.Stats
}

// SenderStatser is satisfied by *sender.Dispatcher.
type SenderStatser interface {
	Stats() tgsender.Stats
}

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	registry *prometheus.Registry

	actions        *prometheus.CounterVec
	pings          *prometheus.CounterVec
	invitations    prometheus.Counter
	discarded      *prometheus.CounterVec
	updates        *prometheus.CounterVec
	updateDuration *prometheus.HistogramVec

	mu     sync.RWMutex
	sender SenderStatser
}

// New registers the collectors, plus the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_actions_total",
			Help:      "Conversation actions applied, by action and outcome.",
		}, []string{"action", "outcome"}),
		pings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pings_sent_total",
			Help:      "Meetup pings sent, by meetup type.",
		}, []string{"meetup_type"}),
		invitations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invitations_total",
			Help:      "Invitations produced by sent pings.",
		}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_discarded_total",
			Help:      "Meetups dropped before sending, by reason.",
		}, []string{"reason"}),
		updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_updates_total",
			Help:      "Telegram updates handled, by kind and status.",
		}, []string{"kind", "status"}),
		updateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "telegram_update_duration_seconds",
			Help:      "Time spent handling one Telegram update.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"kind"}),
	}
	m.registry.MustRegister(
		m.actions, m.pings, m.invitations, m.discarded, m.updates, m.updateDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_messages_sent_total",
			Help:      "Outbound Telegram calls that succeeded.",
		}, func() float64 { return float64(m.senderStats().Sent) }),
		prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_messages_failed_total",
			Help:      "Outbound Telegram calls that failed after retries.",
		}, func() float64 { return float64(m.senderStats().Failed) }),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveAction implements conversation.Observer.
func (m *Metrics) ObserveAction(a conversation.Action, r conversation.Result) {
	outcome := "ok"
	if r.Err != nil {
		outcome = "error"
		if kind, ok := conversation.KindOf(r.Err); ok {
			outcome = string(kind)
		}
	}
	m.actions.WithLabelValues(string(a.Kind), outcome).Inc()

	if r.Ping != nil {
		m.pings.WithLabelValues(string(r.Ping.Type)).Inc()
		m.invitations.Add(float64(len(r.Invitations)))
	}
	if r.Discarded {
		m.discarded.WithLabelValues(string(a.Kind)).Inc()
	}
	if conversation.IsTerminal(r.Err) {
		m.discarded.WithLabelValues(outcome).Inc()
	}
}

// ObserveUpdate records one handled update; pass it to telegram.DefaultMiddlewares.
func (m *Metrics) ObserveUpdate(s middleware.UpdateSample) {
	status := "ok"
	if s.Err != nil {
		status = "fail"
	}
	m.updates.WithLabelValues(s.Kind, status).Inc()
	m.updateDuration.WithLabelValues(s.Kind).Observe(s.Duration.Seconds())
}

// WatchStore exports session and ping counts read at scrape time.
func (m *Metrics) WatchStore(st StoreStatser) {
	m.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently held in memory.",
		}, func() float64 { return float64(st.Stats().Sessions) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ping_history_size",
			Help:      "Pings currently held in history.",
		}, func() float64 { return float64(st.Stats().Pings) }),
	)
}

// WatchSender points the outbound counters at d. Each bot run brings its own
// dispatcher, so later calls replace the source; nil clears it.
func (m *Metrics) WatchSender(d SenderStatser) {
	m.mu.Lock()
	m.sender = d
	m.mu.Unlock()
}

func (m *Metrics) senderStats() tgsender.Stats {
	m.mu.RLock()
	d := m.sender
	m.mu.RUnlock()
	if d == nil {
		return tgsender.Stats{}
	}
	return d.Stats()
}
