package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "safety_"

	defectOrphan    = "orphan"
	defectAmbiguous = "ambiguous"
)

var (
	registerOnce sync.Once //nolint:gochecknoglobals // Metrics are process-wide by nature.

	//nolint:gochecknoglobals // Metrics are process-wide by nature.
	symptomTransitions *prometheus.CounterVec
	//nolint:gochecknoglobals // Metrics are process-wide by nature.
	faultTransitions *prometheus.CounterVec
	//nolint:gochecknoglobals // Metrics are process-wide by nature.
	configDefects *prometheus.CounterVec
	//nolint:gochecknoglobals // Metrics are process-wide by nature.
	activeFaults prometheus.Gauge
)

// Init registers the monitoring metrics. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		symptomTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "symptom_transitions_total",
				Help: "Total symptom latched-state transitions by resulting state",
			},
			[]string{"state"},
		)
		faultTransitions = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "fault_transitions_total",
				Help: "Total fault state transitions by resulting state",
			},
			[]string{"state"},
		)
		configDefects = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "config_defects_total",
				Help: "Total symptom-to-fault resolution failures by kind",
			},
			[]string{"kind"},
		)
		activeFaults = prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: metricPrefix + "active_faults",
				Help: "Number of faults currently in SET state",
			},
		)

		prometheus.MustRegister(
			symptomTransitions,
			faultTransitions,
			configDefects,
			activeFaults,
		)
	})
}

// SymptomTransition counts a symptom transition into the given state.
func SymptomTransition(state string) {
	if symptomTransitions != nil {
		symptomTransitions.WithLabelValues(state).Inc()
	}
}

// FaultTransition counts a fault transition into the given state.
func FaultTransition(state string) {
	if faultTransitions != nil {
		faultTransitions.WithLabelValues(state).Inc()
	}
}

// OrphanDefect counts a resolution failure for a mechanism no fault references.
func OrphanDefect() {
	if configDefects != nil {
		configDefects.WithLabelValues(defectOrphan).Inc()
	}
}

// AmbiguousDefect counts a resolution failure for a mechanism several faults reference.
func AmbiguousDefect() {
	if configDefects != nil {
		configDefects.WithLabelValues(defectAmbiguous).Inc()
	}
}

// SetActiveFaults publishes the current number of faults in SET state.
func SetActiveFaults(n int) {
	if activeFaults != nil {
		activeFaults.Set(float64(n))
	}
}
