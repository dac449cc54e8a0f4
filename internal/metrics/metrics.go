// Package metrics holds the prometheus collectors of the relay.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	wsConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "toychat_ws_connections",
			Help: "Current number of registered websocket sessions.",
		},
	)
	rooms = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "toychat_rooms",
			Help: "Current number of rooms with at least one member.",
		},
	)
	eventsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toychat_events_delivered_total",
			Help: "Total events handed to session queues, by event kind.",
		},
		[]string{"kind"},
	)
	eventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "toychat_events_dropped_total",
			Help: "Total events dropped because a member could not accept them.",
		},
	)
	persistenceFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "toychat_persistence_failures_total",
			Help: "Total history gateway failures, by operation.",
		},
		[]string{"op"},
	)
	typingSignals = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "toychat_typing_signals_total",
			Help: "Total typing signals relayed.",
		},
	)
)

func init() {
	prometheus.MustRegister(wsConnections, rooms, eventsDelivered, eventsDropped, persistenceFailures, typingSignals)
}

func IncConnections() {
	wsConnections.Inc()
}

func DecConnections() {
	wsConnections.Dec()
}

func SetRooms(count int) {
	rooms.Set(float64(count))
}

func AddDelivered(kind string, count int) {
	if count > 0 {
		eventsDelivered.WithLabelValues(kind).Add(float64(count))
	}
}

func AddDropped(count int) {
	eventsDropped.Add(float64(count))
}

func IncPersistenceFailure(op string) {
	persistenceFailures.WithLabelValues(op).Inc()
}

func IncTyping() {
	typingSignals.Inc()
}
