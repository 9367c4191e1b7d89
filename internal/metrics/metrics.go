package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jam"

type Metrics struct {
	videoActions    *prometheus.CounterVec
	navigations     *prometheus.CounterVec
	rooms           prometheus.Gauge
	participants    prometheus.Gauge
	evictedRooms    prometheus.Counter
	droppedMessages prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		videoActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "video_actions_total",
				Help:      "Playback events received, by kind and reconciliation outcome",
			},
			[]string{"kind", "outcome"},
		),
		navigations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "navigations_total",
				Help:      "Track and queue navigation operations, by operation and result",
			},
			[]string{"op", "result"},
		),
		rooms: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rooms",
			Help:      "Rooms currently held in memory",
		}),
		participants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "participants",
			Help:      "Participants currently joined to a room",
		}),
		evictedRooms: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evicted_rooms_total",
			Help:      "Idle rooms removed by the janitor",
		}),
		droppedMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_messages_total",
			Help:      "Outbound websocket messages dropped because the client was too slow",
		}),
	}

	reg.MustRegister(m.videoActions, m.navigations, m.rooms, m.participants, m.evictedRooms, m.droppedMessages)
	return m
}

func (m *Metrics) VideoAction(kind, outcome string) {
	m.videoActions.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) Navigation(op, result string) {
	m.navigations.WithLabelValues(op, result).Inc()
}

func (m *Metrics) SetRooms(n int) {
	m.rooms.Set(float64(n))
}

func (m *Metrics) SetParticipants(n int) {
	m.participants.Set(float64(n))
}

func (m *Metrics) RoomsEvicted(n int) {
	m.evictedRooms.Add(float64(n))
}

func (m *Metrics) MessageDropped() {
	m.droppedMessages.Inc()
}
