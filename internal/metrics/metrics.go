package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels calls that completed normally.
	OutcomeSuccess = "success"
	// OutcomeError labels calls that failed on a dependency or internal error.
	OutcomeError = "error"
)

var (
	validationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forecast_guard",
			Name:      "validations_total",
			Help:      "Total number of validation batches handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	validationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "forecast_guard",
			Name:      "validation_seconds",
			Help:      "Validation batch latency in seconds.",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	diagnosesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "forecast_guard",
			Name:      "diagnoses_total",
			Help:      "Total number of diagnoses handled, partitioned by verdict.",
		},
		[]string{"verdict"},
	)

	diagnosisDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "forecast_guard",
			Name:      "diagnosis_seconds",
			Help:      "Diagnosis latency in seconds, dominated by upstream query round trips.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 3, 4, 5, 8, 10},
		},
	)

	optionsCacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "forecast_guard",
			Name:      "options_cache_entries",
			Help:      "Live entries in the in-process filter-options cache.",
		},
	)
)

// Register attaches forecast-guard collectors to the supplied Prometheus
// registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		validationsTotal,
		validationDurationSeconds,
		diagnosesTotal,
		diagnosisDurationSeconds,
		optionsCacheEntries,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveValidation records a validation batch duration and outcome label.
func ObserveValidation(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	validationsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	validationDurationSeconds.Observe(duration.Seconds())
}

// ObserveDiagnosis records a diagnosis duration with its verdict label
// ("data", "combination", or "inconclusive").
func ObserveDiagnosis(duration time.Duration, verdict string) {
	diagnosesTotal.WithLabelValues(verdict).Inc()
	if duration < 0 {
		duration = 0
	}
	diagnosisDurationSeconds.Observe(duration.Seconds())
}

// SetOptionsCacheEntries reports the current cache size.
func SetOptionsCacheEntries(count int) {
	optionsCacheEntries.Set(float64(count))
}
