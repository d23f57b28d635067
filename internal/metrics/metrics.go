package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "microgrid_planner"

var (
	// SolveDuration measures backend solve latency.
	SolveDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Wall time of a single backend solve",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 18),
		},
		[]string{"solver", "status"},
	)

	// SolvesTotal counts backend solves by outcome.
	SolvesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Number of backend solves by solver and status",
		},
		[]string{"solver", "status"},
	)

	// ModelSize tracks the size of the last built formulation.
	ModelSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_size",
			Help:      "Variables, constraints and integer columns of the last built model",
		},
		[]string{"kind"}, // "variables", "constraints", "integers"
	)

	// ParetoPoints tracks the length of the last computed Pareto front.
	ParetoPoints = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pareto_points",
			Help:      "Number of points in the last computed Pareto front",
		},
	)

	// RunsStored tracks runs currently held by the API run store.
	RunsStored = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_stored",
			Help:      "Solved runs currently kept in memory",
		},
	)
)

// Collectors lists every collector of this package.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{SolveDuration, SolvesTotal, ModelSize, ParetoPoints, RunsStored}
}

// Register adds the collectors to reg. Collectors already registered are
// left as they are.
func Register(reg prometheus.Registerer) error {
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveSolve records one backend solve.
func ObserveSolve(solver, status string, d time.Duration) {
	SolveDuration.WithLabelValues(solver, status).Observe(d.Seconds())
	SolvesTotal.WithLabelValues(solver, status).Inc()
}

// ObserveModel records formulation size.
func ObserveModel(variables, constraints, integers int) {
	ModelSize.WithLabelValues("variables").Set(float64(variables))
	ModelSize.WithLabelValues("constraints").Set(float64(constraints))
	ModelSize.WithLabelValues("integers").Set(float64(integers))
}
