package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage labels used by the run-level duration histogram.
const (
	StageSolve      = "solve"
	StageGrid       = "grid"
	StageScreenInit = "screen_init"
	StageAssemble   = "assemble"
)

// SimulationCollector bundles Prometheus metrics for whole simulation
// runs and provides an HTTP handler to expose them.
type SimulationCollector struct {
	gatherer prometheus.Gatherer

	RunsTotal      *prometheus.CounterVec
	StageDurations *prometheus.HistogramVec

	ObservationStations   prometheus.Gauge
	ObservationDirections prometheus.Gauge
	ObservationTimesteps  prometheus.Gauge
	StoredObservations    prometheus.Gauge
}

// NewSimulationCollector registers run-level Prometheus metrics against
// the provided registerer, defaulting to the global Prometheus registry
// when nil.
func NewSimulationCollector(reg prometheus.Registerer) (*SimulationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_runs_total",
		Help: "Total number of finished simulation runs, labeled by outcome.",
	}, []string{"outcome"})
	runs, err := registerCounterVec(reg, runs, "simulation_runs_total")
	if err != nil {
		return nil, err
	}

	stages := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simulation_stage_duration_seconds",
		Help:    "Duration of simulation run stages in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"stage"})
	stages, err = registerHistogramVec(reg, stages, "simulation_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	stations, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "observation_stations",
		Help: "Number of stations in the observation being simulated.",
	}), "observation_stations")
	if err != nil {
		return nil, err
	}
	directions, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "observation_directions",
		Help: "Number of source directions in the observation being simulated.",
	}), "observation_directions")
	if err != nil {
		return nil, err
	}
	timesteps, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "observation_timesteps",
		Help: "Number of timesteps in the observation being simulated.",
	}), "observation_timesteps")
	if err != nil {
		return nil, err
	}
	stored, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "observation_store_entries",
		Help: "Current number of observations held by the store.",
	}), "observation_store_entries")
	if err != nil {
		return nil, err
	}

	return &SimulationCollector{
		gatherer:              gatherer,
		RunsTotal:             runs,
		StageDurations:        stages,
		ObservationStations:   stations,
		ObservationDirections: directions,
		ObservationTimesteps:  timesteps,
		StoredObservations:    stored,
	}, nil
}

// IncRun counts one finished run with the given outcome label.
func (c *SimulationCollector) IncRun(outcome string) {
	if c == nil || c.RunsTotal == nil {
		return
	}
	c.RunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStage records the duration of a named run stage.
func (c *SimulationCollector) ObserveStage(stage string, d time.Duration) {
	if c == nil || c.StageDurations == nil {
		return
	}
	c.StageDurations.WithLabelValues(stage).Observe(d.Seconds())
}

// SetObservationShape updates the observation-size gauges.
func (c *SimulationCollector) SetObservationShape(stations, directions, timesteps int) {
	if c == nil {
		return
	}
	if c.ObservationStations != nil {
		c.ObservationStations.Set(float64(stations))
	}
	if c.ObservationDirections != nil {
		c.ObservationDirections.Set(float64(directions))
	}
	if c.ObservationTimesteps != nil {
		c.ObservationTimesteps.Set(float64(timesteps))
	}
}

// SetStoredObservations satisfies the store's metrics recorder interface
// so the observation store can drive the gauge from its mutators.
func (c *SimulationCollector) SetStoredObservations(count int) {
	if c == nil || c.StoredObservations == nil {
		return
	}
	c.StoredObservations.Set(float64(count))
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimulationCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
