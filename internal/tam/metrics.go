package tam

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus gauges exported for the last health computed per client,
// grounded on the `promauto.NewGaugeVec` style used for per-entity
// gauges elsewhere in the pack (gsoultan-Hermod's worker metrics).
var (
	availableNowGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "disposition_tam_available_now",
		Help: "Contacts currently available to target for a client (0 for all-fresh cooldowns and non-IN_SEQUENCE).",
	}, []string{"client_id"})

	burnRateGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "disposition_tam_burn_rate_weekly",
		Help: "IN_SEQUENCE transitions in the trailing 7 days, for a client.",
	}, []string{"client_id"})

	exhaustionETAGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "disposition_tam_exhaustion_eta_weeks",
		Help: "Weeks until available_now is exhausted at the current burn rate. Absent when burn rate is zero.",
	}, []string{"client_id"})

	healthStatusGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "disposition_tam_health_status",
		Help: "1 if the client's current TAM health status matches this label's status value, else 0.",
	}, []string{"client_id", "status"})
)

func recordMetrics(clientID string, h Health) {
	label := clientID
	availableNowGauge.WithLabelValues(label).Set(float64(h.AvailableNow))
	burnRateGauge.WithLabelValues(label).Set(h.BurnRateWeekly)
	if h.ExhaustionETAWeeks != nil {
		exhaustionETAGauge.WithLabelValues(label).Set(*h.ExhaustionETAWeeks)
	} else {
		exhaustionETAGauge.DeleteLabelValues(label)
	}
	for _, status := range []string{HealthHealthy, HealthWarning, HealthCritical} {
		v := 0.0
		if status == h.HealthStatus {
			v = 1.0
		}
		healthStatusGauge.WithLabelValues(label, status).Set(v)
	}
}
