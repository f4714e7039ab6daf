package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus collectors for server activity. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	clientsConnected prometheus.Gauge
	connectionsTotal prometheus.Counter
	disconnectsTotal prometheus.Counter
	namesTotal       prometheus.Counter
	commandsTotal    prometheus.Counter
	probesTotal      prometheus.Counter
	bytesSentTotal   prometheus.Counter
	bytesRecvTotal   prometheus.Counter
	tickSeconds      prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		clientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "tickmud_clients_connected",
			Help: "Number of currently connected clients.",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickmud_connections_total",
			Help: "Connections accepted since server start.",
		}),
		disconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickmud_disconnects_total",
			Help: "Clients lost to failed reads or writes.",
		}),
		namesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickmud_players_named_total",
			Help: "Clients that completed the name prompt.",
		}),
		commandsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickmud_commands_total",
			Help: "Command lines received from named clients.",
		}),
		probesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickmud_liveness_probes_total",
			Help: "IAC AYT probes sent to idle clients.",
		}),
		bytesSentTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickmud_bytes_sent_total",
			Help: "Total bytes sent to clients.",
		}),
		bytesRecvTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tickmud_bytes_received_total",
			Help: "Total bytes received from clients.",
		}),
		tickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "tickmud_tick_duration_seconds",
			Help:    "Time spent inside one Tick.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
	}

	reg.MustRegister(
		m.clientsConnected,
		m.connectionsTotal,
		m.disconnectsTotal,
		m.namesTotal,
		m.commandsTotal,
		m.probesTotal,
		m.bytesSentTotal,
		m.bytesRecvTotal,
		m.tickSeconds,
	)
	return m
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (m *Metrics) connected() {
	if m == nil {
		return
	}
	m.connectionsTotal.Inc()
	m.clientsConnected.Inc()
}

func (m *Metrics) disconnected() {
	if m == nil {
		return
	}
	m.disconnectsTotal.Inc()
	m.clientsConnected.Dec()
}

// closed drops a client from the gauge without counting it as a lost peer.
func (m *Metrics) closed() {
	if m != nil {
		m.clientsConnected.Dec()
	}
}

func (m *Metrics) named() {
	if m != nil {
		m.namesTotal.Inc()
	}
}

func (m *Metrics) command() {
	if m != nil {
		m.commandsTotal.Inc()
	}
}

func (m *Metrics) probed() {
	if m != nil {
		m.probesTotal.Inc()
	}
}

func (m *Metrics) sent(n int) {
	if m != nil {
		m.bytesSentTotal.Add(float64(n))
	}
}

func (m *Metrics) received(n int) {
	if m != nil {
		m.bytesRecvTotal.Add(float64(n))
	}
}

func (m *Metrics) ticked(d time.Duration, clients int) {
	if m == nil {
		return
	}
	m.tickSeconds.Observe(d.Seconds())
	m.clientsConnected.Set(float64(clients))
}
