package services

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	importRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "territory",
		Subsystem: "import",
		Name:      "rows_total",
		Help:      "Total number of processed document rows broken down by table and outcome.",
	}, []string{"table", "outcome"})

	importRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "territory",
		Subsystem: "import",
		Name:      "runs_total",
		Help:      "Total number of import runs broken down by terminal state.",
	}, []string{"state"})

	importDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "territory",
		Subsystem: "import",
		Name:      "duration_seconds",
		Help:      "Wall time of applied import runs.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
	})

	resolveMethods = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "territory",
		Subsystem: "resolver",
		Name:      "resolutions_total",
		Help:      "Total number of row resolutions broken down by method (code/name/name_fold/none).",
	}, []string{"method"})

	wipedTerritories = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "territory",
		Subsystem: "maintenance",
		Name:      "wiped_territories_total",
		Help:      "Total number of territories whose status fields were cleared.",
	})
)

// Collectors exposes the collectors for pushing from short-lived processes.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{importRows, importRuns, importDuration, resolveMethods, wipedTerritories}
}

func recordRow(table int, outcome string) {
	importRows.WithLabelValues(tableLabel(table), outcome).Inc()
}

func recordRun(state string, elapsed time.Duration) {
	importRuns.WithLabelValues(state).Inc()
	if elapsed > 0 {
		importDuration.Observe(elapsed.Seconds())
	}
}

func recordResolve(method ResolveMethod) {
	if method == "" {
		method = "none"
	}
	resolveMethods.WithLabelValues(string(method)).Inc()
}

func recordWipe(n int) {
	if n > 0 {
		wipedTerritories.Add(float64(n))
	}
}

func tableLabel(table int) string {
	if table < 1 || table > maxMappedTables {
		return "other"
	}
	return strconv.Itoa(table)
}
