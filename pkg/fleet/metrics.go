package fleet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	plantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "solaraudit_plants_total",
		Help: "Plants processed by fleet runs, by outcome",
	}, []string{"outcome"})

	performanceRatio = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "solaraudit_plant_performance_ratio",
		Help: "Performance ratio (%) of each plant in the latest run",
	}, []string{"plant"})
)
