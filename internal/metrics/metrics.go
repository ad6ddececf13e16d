// Package metrics объявляет prometheus-метрики чата: соединения, комнаты и поток событий.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat"

var (
	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Current number of registered websocket connections",
	})

	RoomsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "rooms_active",
		Help:      "Rooms with at least one present user",
	})

	// result = ok | error | panic
	EventsIn = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_in_total",
		Help:      "Client events handled",
	}, []string{"type", "result"})

	// route = broadcast | direct
	EventsOut = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_out_total",
		Help:      "Server events delivered to connections",
	}, []string{"route", "type"})

	DroppedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Server events skipped because the recipient was gone or too slow",
	}, []string{"type"})

	MessagesPersisted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_persisted_total",
		Help:      "Chat messages stored",
	})

	PersistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "message_persist_failures_total",
		Help:      "Chat messages that failed to store and were not broadcast",
	})

	RateLimited = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rate_limited_total",
		Help:      "Client events rejected by the rate limiter",
	}, []string{"rule"})

	HandlerDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "handler_duration_seconds",
		Help:      "Client event handling latency",
		Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(
		ConnectionsActive,
		RoomsActive,
		EventsIn,
		EventsOut,
		DroppedEvents,
		MessagesPersisted,
		PersistFailures,
		RateLimited,
		HandlerDuration,
	)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
