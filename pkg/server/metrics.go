package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus metric descriptors for the game server.
type Metrics struct {
	game      *Game
	startTime time.Time
	registry  *prometheus.Registry

	playersConnected prometheus.Gauge
	playersKnown     prometheus.Gauge
	connectionsTotal prometheus.Counter
	commandsTotal    prometheus.Counter
	uptimeSeconds    prometheus.Gauge
}

// NewMetrics creates a registry holding the game metrics plus the Go
// runtime and process collectors.
func NewMetrics(game *Game, startTime time.Time) *Metrics {
	m := &Metrics{
		game:      game,
		startTime: startTime,
		registry:  prometheus.NewRegistry(),
		playersConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goclans_players_connected",
			Help: "Number of currently connected players.",
		}),
		playersKnown: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goclans_players_total",
			Help: "Number of player records.",
		}),
		connectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goclans_connections_total",
			Help: "Total connections since server start.",
		}),
		commandsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "goclans_commands_processed_total",
			Help: "Total commands processed since server start.",
		}),
		uptimeSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goclans_uptime_seconds",
			Help: "Server uptime in seconds.",
		}),
	}

	m.registry.MustRegister(
		m.playersConnected,
		m.playersKnown,
		m.connectionsTotal,
		m.commandsTotal,
		m.uptimeSeconds,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registerer exposes the registry so other subsystems can add metrics.
func (m *Metrics) Registerer() prometheus.Registerer {
	return m.registry
}

// Gatherer exposes the registry for scraping and tests.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// Update refreshes all gauge metrics from current game state.
func (m *Metrics) Update() {
	m.playersConnected.Set(float64(m.game.Conns.PlayerCount()))
	m.playersKnown.Set(float64(m.game.PlayerCount()))
	m.uptimeSeconds.Set(time.Since(m.startTime).Seconds())
	if m.game.Clans != nil {
		m.game.Clans.Metrics.Update(m.game.Clans.Roster)
	}
}

// Handler returns an http.Handler that updates metrics before serving them.
func (m *Metrics) Handler() http.Handler {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.Update()
		h.ServeHTTP(w, r)
	})
}

func (m *Metrics) connection() {
	if m != nil {
		m.connectionsTotal.Inc()
	}
}

func (m *Metrics) command() {
	if m != nil {
		m.commandsTotal.Inc()
	}
}
