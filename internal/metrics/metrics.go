// Package metrics is a thin facade around prometheus/client_golang,
// exposing the handful of gauges and counters useful for watching a
// padgate process from the outside: tick rate, connected clients, mailbox
// operation volume, and RPC/control traffic (SPEC_FULL.md §K).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every instrument padgate registers. It implements
// mailbox.OpCounter so the mailbox package can report through it without
// depending on prometheus directly.
type Metrics struct {
	reg *prometheus.Registry

	Ticks            prometheus.Counter
	ClientsConnected prometheus.Gauge
	PendingSockets   prometheus.Gauge
	MailboxOps       *prometheus.CounterVec
	RPCCommands      *prometheus.CounterVec
	ControlCommands  *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		reg: reg,
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "padgate",
			Name:      "ticks_total",
			Help:      "Number of server loop ticks processed.",
		}),
		ClientsConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "padgate",
			Name:      "clients_connected",
			Help:      "Number of live logical clients.",
		}),
		PendingSockets: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "padgate",
			Name:      "pending_sockets",
			Help:      "Number of accepted sockets awaiting a subid.",
		}),
		MailboxOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "padgate",
			Name:      "mailbox_ops_total",
			Help:      "Mailbox operations performed, by op and mailbox class.",
		}, []string{"op", "name"}),
		RPCCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "padgate",
			Name:      "rpc_commands_total",
			Help:      "Inbound RPC binary frames dispatched, by command.",
		}, []string{"command"}),
		ControlCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "padgate",
			Name:      "control_commands_total",
			Help:      "Underscore control-protocol messages handled, by command.",
		}, []string{"command"}),
	}

	reg.MustRegister(m.Ticks, m.ClientsConnected, m.PendingSockets, m.MailboxOps, m.RPCCommands, m.ControlCommands)
	return m
}

// IncMailboxOp implements mailbox.OpCounter.
func (m *Metrics) IncMailboxOp(op, name string) {
	m.MailboxOps.WithLabelValues(op, name).Inc()
}

// IncControlCommand implements gateway's controlMetrics interface.
func (m *Metrics) IncControlCommand(cmd string) {
	m.ControlCommands.WithLabelValues(cmd).Inc()
}

// IncRPCCommand implements gateway's controlMetrics interface.
func (m *Metrics) IncRPCCommand(cmd string) {
	m.RPCCommands.WithLabelValues(cmd).Inc()
}

// IncTick implements gateway's controlMetrics interface.
func (m *Metrics) IncTick() {
	m.Ticks.Inc()
}

// SetClientsConnected implements gateway's controlMetrics interface.
func (m *Metrics) SetClientsConnected(n int) {
	m.ClientsConnected.Set(float64(n))
}

// SetPendingSockets implements gateway's controlMetrics interface.
func (m *Metrics) SetPendingSockets(n int) {
	m.PendingSockets.Set(float64(n))
}

// Handler serves the Prometheus text exposition format. Callers are
// expected to bind it to loopback only (SPEC_FULL.md §K): metrics are an
// operability aid, not a network service in their own right.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
