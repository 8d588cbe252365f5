// Package monitoring owns a private prometheus registry so tests can hold
// independent metric sets without colliding on the default registerer.
package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	ConnectionsOpen prometheus.Gauge
	UsersOnline     prometheus.Gauge
	RoomsActive     prometheus.Gauge
	GracePending    prometheus.Gauge

	FramesDropped  prometheus.Counter
	BroadcastSends prometheus.Counter
	SendFailures   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ConnectionsOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "presence_connections_open",
			Help: "Open signal connections.",
		}),
		UsersOnline: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "presence_users_online",
			Help: "Users with at least one open connection.",
		}),
		RoomsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "presence_rooms_active",
			Help: "Voice rooms with at least one participant, grace ghosts included.",
		}),
		GracePending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "presence_grace_pending",
			Help: "Outstanding grace-period timers.",
		}),
		FramesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_frames_dropped_total",
			Help: "Inbound frames dropped as malformed or unknown.",
		}),
		BroadcastSends: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_broadcast_sends_total",
			Help: "Frames fanned out to recipient sockets.",
		}),
		SendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_send_failures_total",
			Help: "Per-recipient send failures during fan-out.",
		}),
	}
	m.registry.MustRegister(
		m.ConnectionsOpen, m.UsersOnline, m.RoomsActive, m.GracePending,
		m.FramesDropped, m.BroadcastSends, m.SendFailures,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
