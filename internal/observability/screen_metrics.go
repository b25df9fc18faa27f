package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ScreenCollector exposes Prometheus metrics for the phase-screen chain.
type ScreenCollector struct {
	gatherer prometheus.Gatherer

	FrameAssemblyDuration prometheus.Histogram
	FramesTotal           prometheus.Counter
	TilesConsumedTotal    prometheus.Counter
	WindowPixels          prometheus.Gauge
}

// NewScreenCollector registers screen-chain metrics against the provided registerer.
func NewScreenCollector(reg prometheus.Registerer) (*ScreenCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	frameHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "screen_frame_assembly_duration_seconds",
		Help:    "Duration of single-timestep screen frame assembly, including interpolation onto pierce points.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
	frameHistogram, err := registerHistogram(reg, frameHistogram, "screen_frame_assembly_duration_seconds")
	if err != nil {
		return nil, err
	}

	frames := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "screen_frames_total",
		Help: "Cumulative number of screen frames pulled from the generator.",
	})
	frames, err = registerCounter(reg, frames, "screen_frames_total")
	if err != nil {
		return nil, err
	}

	tiles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "screen_tiles_consumed_total",
		Help: "Cumulative number of turbulence tiles drawn by the woofer and tweeter streams.",
	})
	tiles, err = registerCounter(reg, tiles, "screen_tiles_consumed_total")
	if err != nil {
		return nil, err
	}

	pixels := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "screen_window_pixels",
		Help: "Number of pixels in the sampled screen window.",
	})
	pixels, err = registerGauge(reg, pixels, "screen_window_pixels")
	if err != nil {
		return nil, err
	}

	return &ScreenCollector{
		gatherer:              gatherer,
		FrameAssemblyDuration: frameHistogram,
		FramesTotal:           frames,
		TilesConsumedTotal:    tiles,
		WindowPixels:          pixels,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *ScreenCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveFrameAssembly records a frame assembly duration measurement.
func (c *ScreenCollector) ObserveFrameAssembly(d time.Duration) {
	if c == nil || c.FrameAssemblyDuration == nil {
		return
	}
	c.FrameAssemblyDuration.Observe(d.Seconds())
}

// IncFrames increments the frame counter.
func (c *ScreenCollector) IncFrames() {
	if c == nil || c.FramesTotal == nil {
		return
	}
	c.FramesTotal.Inc()
}

// AddTiles adds newly consumed tiles to the tile counter. Non-positive
// deltas are ignored.
func (c *ScreenCollector) AddTiles(delta int64) {
	if c == nil || c.TilesConsumedTotal == nil || delta <= 0 {
		return
	}
	c.TilesConsumedTotal.Add(float64(delta))
}

// SetWindowPixels sets the sampled-window size gauge.
func (c *ScreenCollector) SetWindowPixels(nlon, nlat int) {
	if c == nil || c.WindowPixels == nil {
		return
	}
	c.WindowPixels.Set(float64(nlon) * float64(nlat))
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
