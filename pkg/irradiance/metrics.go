package irradiance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "solaraudit_irradiance_requests_total",
	Help: "Irradiance provider calls by result",
}, []string{"result"})
