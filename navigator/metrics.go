package navigator

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Expansion outcomes recorded by Metrics.
const (
	OutcomeReached   = "reached"
	OutcomeUnreached = "unreached"
)

// Metrics exposes map update and planning counters to Prometheus.
type Metrics struct {
	gatherer prometheus.Gatherer

	UpdateCycles      prometheus.Counter
	StaleCycles       prometheus.Counter
	ExpansionResults  *prometheus.CounterVec
	ExpansionDuration prometheus.Histogram
	CellsVisited      prometheus.Gauge
}

// NewMetrics registers the navigator metrics against reg. A nil reg uses the
// default registerer. Registering twice on the same registerer reuses the
// existing collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	updates, err := register(reg, "costmap_update_cycles_total", prometheus.NewCounter(prometheus.CounterOpts{
		Name: "costmap_update_cycles_total",
		Help: "Number of completed master map updates.",
	}))
	if err != nil {
		return nil, err
	}
	stale, err := register(reg, "costmap_stale_update_cycles_total", prometheus.NewCounter(prometheus.CounterOpts{
		Name: "costmap_stale_update_cycles_total",
		Help: "Number of map updates during which at least one observation source was stale.",
	}))
	if err != nil {
		return nil, err
	}
	results, err := register(reg, "costmap_expansions_total", prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "costmap_expansions_total",
		Help: "Number of potential expansions by outcome.",
	}, []string{"outcome"}))
	if err != nil {
		return nil, err
	}
	duration, err := register(reg, "costmap_expansion_duration_seconds", prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "costmap_expansion_duration_seconds",
		Help:    "Duration of potential expansions.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}))
	if err != nil {
		return nil, err
	}
	visited, err := register(reg, "costmap_expansion_cells_visited", prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "costmap_expansion_cells_visited",
		Help: "Cells visited by the most recent potential expansion.",
	}))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		gatherer:          gatherer,
		UpdateCycles:      updates,
		StaleCycles:       stale,
		ExpansionResults:  results,
		ExpansionDuration: duration,
		CellsVisited:      visited,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return nil
	}
	return m.gatherer
}

// ObserveUpdate records one map update.
func (m *Metrics) ObserveUpdate(current bool) {
	if m == nil {
		return
	}
	m.UpdateCycles.Inc()
	if !current {
		m.StaleCycles.Inc()
	}
}

// ObserveExpansion records one expansion's outcome, duration and cells visited.
func (m *Metrics) ObserveExpansion(reached bool, d time.Duration, visited int) {
	if m == nil {
		return
	}
	outcome := OutcomeUnreached
	if reached {
		outcome = OutcomeReached
	}
	m.ExpansionResults.WithLabelValues(outcome).Inc()
	m.ExpansionDuration.Observe(d.Seconds())
	m.CellsVisited.Set(float64(visited))
}

// register adds c to reg, returning the already registered collector of the
// same type when there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, name string, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, errors.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero C
		return zero, err
	}
	return c, nil
}
