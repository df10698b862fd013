package sim

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tickCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stay_sim_ticks_total",
		Help: "Simulation ticks processed.",
	})
	activeVehiclesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stay_sim_active_vehicles",
		Help: "Vehicles currently in the simulation.",
	})
	parkedVehiclesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stay_sim_parked_vehicles",
		Help: "Vehicles currently parked.",
	})
	congestionGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stay_sim_congestion",
		Help: "Derived congestion value, 0-100.",
	})
	slotCountGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stay_sim_managed_slots",
		Help: "Parking slots under curb management.",
	})
	slotUtilizationGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "stay_sim_slot_utilization",
		Help: "Occupied fraction of managed slot capacity, 0-100.",
	})
)

func publishMetrics(m Snapshot) {
	tickCounter.Inc()
	activeVehiclesGauge.Set(float64(m.Metrics.ActiveVehicles))
	parkedVehiclesGauge.Set(float64(m.Metrics.ParkedVehicles))
	congestionGauge.Set(m.Metrics.Congestion)
	slotCountGauge.Set(float64(m.Metrics.SlotCount))
	slotUtilizationGauge.Set(m.Metrics.SlotUtilization)
}
