package clan

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for clan governance.
type Metrics struct {
	commands *prometheus.CounterVec
	saves    *prometheus.CounterVec
	clans    prometheus.Gauge
	members  prometheus.Gauge
}

// NewMetrics creates clan metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goclans_clan_commands_total",
			Help: "Clan subcommands by outcome.",
		}, []string{"subcommand", "result"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "goclans_clan_saves_total",
			Help: "Roster saves by outcome.",
		}, []string{"result"}),
		clans: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goclans_clans",
			Help: "Number of clans in the roster.",
		}),
		members: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "goclans_clan_members",
			Help: "Number of clan memberships across all clans.",
		}),
	}
	reg.MustRegister(m.commands, m.saves, m.clans, m.members)
	return m
}

// command counts one dispatched subcommand. A nil *Metrics is a no-op.
func (m *Metrics) command(name, result string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(name, result).Inc()
}

func (m *Metrics) saved(err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.saves.WithLabelValues("error").Inc()
		return
	}
	m.saves.WithLabelValues("ok").Inc()
}

// Update refreshes the roster gauges.
func (m *Metrics) Update(r *Roster) {
	if m == nil {
		return
	}
	m.clans.Set(float64(r.Len()))
	m.members.Set(float64(r.MemberCount()))
}
