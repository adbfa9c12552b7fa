// Package metrics exports relay counters to Prometheus.
//
// Metrics implements proxy.Observer; the proxy feeds it session, auth and
// connect events and it never touches sockets itself.
package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/die-net/socksrelay/internal/traffic"
)

const namespace = "socksrelay"

type Metrics struct {
	sessions prometheus.Counter
	active   prometheus.Gauge
	bytes    *prometheus.CounterVec
	duration prometheus.Histogram
	auth     *prometheus.CounterVec
	connects *prometheus.CounterVec
}

// New creates the relay collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Accepted client sessions.",
		}),
		active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Client sessions currently open.",
		}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Relayed bytes at the client-facing socket of closed sessions.",
		}, []string{"direction"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Lifetime of closed sessions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_total",
			Help:      "Username/password checks by result.",
		}, []string{"result"}),
		connects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connects_total",
			Help:      "Outbound CONNECT attempts by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.sessions, m.active, m.bytes, m.duration, m.auth, m.connects)
	return m
}

func (m *Metrics) SessionOpened(_ string, _ net.Addr) {
	m.sessions.Inc()
	m.active.Inc()
}

func (m *Metrics) SessionClosed(_ string, snap traffic.Snapshot) {
	m.active.Dec()
	m.bytes.WithLabelValues("read").Add(float64(snap.Read))
	m.bytes.WithLabelValues("written").Add(float64(snap.Written))
	m.duration.Observe(snap.Duration().Seconds())
}

func (m *Metrics) AuthChecked(ok bool) {
	m.auth.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) Connected(ok bool) {
	m.connects.WithLabelValues(result(ok)).Inc()
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
