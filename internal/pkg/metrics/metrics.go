package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DeviceOnline tracks the reconciled liveness of the physical device.
	// 1 = online, 0 = offline or unknown.
	DeviceOnline = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "luxsync_device_online",
			Help: "Whether the lighting device is considered online (1) or not (0).",
		},
		[]string{"device"},
	)

	// LivenessDemotionsTotal counts client-issued online→offline demotions.
	LivenessDemotionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxsync_liveness_demotions_total",
			Help: "Total number of stale-heartbeat demotions written to the store.",
		},
		[]string{"device"},
	)

	// CommandsTotal counts dispatched user commands.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxsync_commands_total",
			Help: "Total number of dispatched commands.",
		},
		[]string{"op", "status"}, // op: toggle_one/toggle_all/..., status: success/failed
	)

	// SyncCyclesTotal counts lamp registry join recomputations.
	SyncCyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "luxsync_sync_cycles_total",
			Help: "Total number of lamp view-model recomputations.",
		},
	)

	// ScheduleWritesTotal counts schedule saves and removals.
	ScheduleWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luxsync_schedule_writes_total",
			Help: "Total number of schedule store mutations.",
		},
		[]string{"op"}, // op: save/remove
	)
)

// init registers the collectors with the default registry so they appear on
// the agent's /metrics endpoint.
func init() {
	prometheus.MustRegister(DeviceOnline)
	prometheus.MustRegister(LivenessDemotionsTotal)
	prometheus.MustRegister(CommandsTotal)
	prometheus.MustRegister(SyncCyclesTotal)
	prometheus.MustRegister(ScheduleWritesTotal)
}
