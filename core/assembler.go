package core

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/ionosphere-simulator/internal/logging"
	"github.com/signalsfoundry/ionosphere-simulator/internal/observability"
	"github.com/signalsfoundry/ionosphere-simulator/model"
	"github.com/signalsfoundry/ionosphere-simulator/timectrl"
)

const tracerName = "github.com/signalsfoundry/ionosphere-simulator/core"

// phaseRadPerTECU converts screen phase at the 150 MHz reference
// frequency into TEC units (8.448e9 / 150e6 rad per TECU).
const phaseRadPerTECU = 56.32

// outerScaleM is the turbulence outer scale. The spectrum flattens for
// structures larger than this.
const outerScaleM = 1000e3

// minScreenFFT keeps the tweeter transform large enough to stitch and
// sample even when the pierce raster is only a few pixels wide.
const minScreenFFT = 64

// ProgressFunc receives per-timestep completion updates during a run.
type ProgressFunc func(step, total int, status string)

// ExportSink receives raw simulation products for offline diagnostics.
// WriteFrame is called once per timestep with the screen raster in TECU;
// WriteGeometry once per run. The simulator does not call Close.
type ExportSink interface {
	WriteFrame(step int, screen *mat.Dense) error
	WriteGeometry(times []float64, grid *ComovingGrid, geom *PierceGeometry) error
	Close() error
}

// SimulatorOption customises a Simulator.
type SimulatorOption func(*Simulator)

// WithLogger sets the run logger. The default discards everything.
func WithLogger(log logging.Logger) SimulatorOption {
	return func(s *Simulator) { s.log = log }
}

// WithMetrics attaches run-level Prometheus metrics.
func WithMetrics(c *observability.SimulationCollector) SimulatorOption {
	return func(s *Simulator) { s.metrics = c }
}

// WithScreenMetrics attaches screen-chain Prometheus metrics.
func WithScreenMetrics(c *observability.ScreenCollector) SimulatorOption {
	return func(s *Simulator) { s.screenMetrics = c }
}

// WithProgress sets the progress callback. The default logs each step at
// debug level.
func WithProgress(fn ProgressFunc) SimulatorOption {
	return func(s *Simulator) { s.progress = fn }
}

// WithExportSink streams per-timestep screen rasters and the run geometry
// to the sink. The caller keeps ownership and closes it.
func WithExportSink(sink ExportSink) SimulatorOption {
	return func(s *Simulator) { s.sink = sink }
}

// Simulator assembles slant TEC delay cubes for one observation: it
// solves the pierce geometry, sizes a comoving raster, streams a
// dual-band turbulence screen through it and interpolates each frame
// onto the pierce points.
type Simulator struct {
	obs model.Observation

	log           logging.Logger
	metrics       *observability.SimulationCollector
	screenMetrics *observability.ScreenCollector
	progress      ProgressFunc
	sink          ExportSink
}

// NewSimulator validates the observation, fills ionosphere defaults and
// prepares a simulator for it.
func NewSimulator(obs model.Observation, opts ...SimulatorOption) (*Simulator, error) {
	if err := ValidateObservation(obs); err != nil {
		return nil, err
	}
	obs.Ionosphere = obs.Ionosphere.WithDefaults()

	s := &Simulator{obs: obs, log: logging.Noop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logging.Noop()
	}
	return s, nil
}

// Observation returns the simulator's observation with defaults applied.
func (s *Simulator) Observation() model.Observation { return s.obs }

// ValidateObservation checks that an observation is complete enough to
// simulate. Zero-valued ionosphere fields are judged after default
// substitution, so a partially filled parameter block is fine.
func ValidateObservation(obs model.Observation) error {
	if len(obs.Stations) == 0 {
		return fmt.Errorf("%w: no stations", ErrInvalidObservation)
	}
	if len(obs.Directions) == 0 {
		return fmt.Errorf("%w: no directions", ErrInvalidObservation)
	}
	if obs.Steps < 1 {
		return fmt.Errorf("%w: need at least one timestep, got %d", ErrInvalidObservation, obs.Steps)
	}
	if obs.StepSeconds <= 0 {
		return fmt.Errorf("%w: step must be positive, got %v s", ErrInvalidObservation, obs.StepSeconds)
	}
	if obs.Mode != model.TecModeRelative && obs.Mode != model.TecModeAbsolute {
		return fmt.Errorf("%w: unknown tec mode %d", ErrInvalidObservation, obs.Mode)
	}

	ion := obs.Ionosphere.WithDefaults()
	if ion.HeightM <= 0 {
		return fmt.Errorf("%w: screen height must be positive, got %v m", ErrInvalidObservation, ion.HeightM)
	}
	if ion.R0Km <= 0 {
		return fmt.Errorf("%w: diffractive scale must be positive, got %v km", ErrInvalidObservation, ion.R0Km)
	}
	if ion.SpeedMps < 0 {
		return fmt.Errorf("%w: screen speed must not be negative, got %v m/s", ErrInvalidObservation, ion.SpeedMps)
	}
	if ion.Alpha <= 2 || ion.Alpha >= 4 {
		return fmt.Errorf("%w: spectral exponent must be in (2, 4), got %v", ErrInvalidObservation, ion.Alpha)
	}
	if ion.AngResArcsec <= 0 {
		return fmt.Errorf("%w: angular resolution must be positive, got %v arcsec", ErrInvalidObservation, ion.AngResArcsec)
	}
	if ion.MaxVTECU < 0 {
		return fmt.Errorf("%w: vertical TEC peak must not be negative, got %v TECU", ErrInvalidObservation, ion.MaxVTECU)
	}
	if ion.ExpectedSTECU < 0 {
		return fmt.Errorf("%w: slant TEC ceiling must not be negative, got %v TECU", ErrInvalidObservation, ion.ExpectedSTECU)
	}
	return nil
}

// Run produces the delay cube for the simulator's observation. The
// screen chain is stateful, so frames are assembled sequentially; the
// pierce solve inside runs one worker per direction. Cancelling the
// context aborts between timesteps.
func (s *Simulator) Run(ctx context.Context) (*model.DelayCube, error) {
	ctx, log := logging.WithRunLogger(ctx, s.log)
	ion := s.obs.Ionosphere

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Simulator/Run", trace.WithAttributes(
		attribute.String("observation_id", s.obs.ID),
		attribute.String("mode", s.obs.Mode.String()),
		attribute.Int("stations", len(s.obs.Stations)),
		attribute.Int("directions", len(s.obs.Directions)),
		attribute.Int("timesteps", s.obs.Steps),
	))
	defer span.End()
	if runID := logging.RunIDFromContext(ctx); runID != "" {
		span.SetAttributes(attribute.String("run_id", runID))
	}

	failed := func(err error) (*model.DelayCube, error) {
		span.RecordError(err)
		s.metrics.IncRun(runOutcome(err))
		return nil, err
	}

	axis, err := timectrl.NewTimeAxis(s.obs.StartMJDSeconds, s.obs.StepSeconds, s.obs.Steps)
	if err != nil {
		return failed(fmt.Errorf("time axis: %w", err))
	}
	times := axis.Times()
	s.metrics.SetObservationShape(len(s.obs.Stations), len(s.obs.Directions), axis.Len())

	log.Info(ctx, "starting tec simulation",
		logging.String("observation_id", s.obs.ID),
		logging.String("mode", s.obs.Mode.String()),
		logging.Int("stations", len(s.obs.Stations)),
		logging.Int("directions", len(s.obs.Directions)),
		logging.Int("timesteps", axis.Len()),
	)

	solveStart := time.Now()
	geom, err := SolvePiercePoints(ctx, log, s.obs.Stations, s.obs.Directions, times, ion.HeightM)
	if err != nil {
		return failed(fmt.Errorf("pierce geometry: %w", err))
	}
	s.metrics.ObserveStage(observability.StageSolve, time.Since(solveStart))

	gridStart := time.Now()
	grid, err := BuildComovingGrid(ctx, log, geom, ion.AngResArcsec, ion.HeightM)
	if err != nil {
		return failed(fmt.Errorf("comoving grid: %w", err))
	}
	s.metrics.ObserveStage(observability.StageGrid, time.Since(gridStart))

	initStart := time.Now()
	gen, err := s.newScreenGenerator(ctx, log, grid, axis)
	if err != nil {
		return failed(fmt.Errorf("screen generator: %w", err))
	}
	s.metrics.ObserveStage(observability.StageScreenInit, time.Since(initStart))
	s.screenMetrics.SetWindowPixels(grid.NumLon(), grid.NumLat())

	stationIDs := make([]string, len(s.obs.Stations))
	for i, st := range s.obs.Stations {
		stationIDs[i] = st.ID
	}
	directionIDs := make([]string, len(s.obs.Directions))
	for i, d := range s.obs.Directions {
		directionIDs[i] = d.ID
	}
	cube := model.NewDelayCube(s.obs.ID, times, stationIDs, directionIDs)

	progress := s.progress
	if progress == nil {
		progress = func(step, total int, status string) {
			log.Debug(ctx, "progress",
				logging.Int("step", step),
				logging.Int("total", total),
				logging.String("status", status),
			)
		}
	}

	nS, nD := len(stationIDs), len(directionIDs)
	lons := make([]float64, nS*nD)
	lats := make([]float64, nS*nD)
	var lastTiles int64
	warnedCeiling := false
	warnedNegative := false

	assembleStart := time.Now()
	for ti := range times {
		if err := ctx.Err(); err != nil {
			return failed(err)
		}
		frameStart := time.Now()

		frame := gen.Next()[0]
		frame.Scale(1/phaseRadPerTECU, frame)

		lonAxis, latAxis := grid.Lon[ti], grid.Lat[ti]
		interp, err := NewGridInterpolator(
			lonAxis[0], lonAxis[1]-lonAxis[0],
			latAxis[0], latAxis[1]-latAxis[0],
			frame,
		)
		if err != nil {
			return failed(fmt.Errorf("frame %d interpolator: %w", ti, err))
		}

		for si := range nS {
			for di := range nD {
				lons[si*nD+di] = geom.Lon[ti][si][di]
				lats[si*nD+di] = geom.Lat[ti][si][di]
			}
		}
		vals := interp.EvalPairs(lons, lats)

		var modulation float64
		if s.obs.Mode == model.TecModeAbsolute {
			modulation = daytimeTECModulation(timectrl.UTCDayHours(times[ti]))
		}

		for si := range nS {
			for di := range nD {
				cos := geom.CosPierce[ti][si][di]
				v := vals[si*nD+di] / cos
				if s.obs.Mode == model.TecModeAbsolute {
					v += modulation * ion.MaxVTECU / cos
					if v < 0 && !warnedNegative {
						warnedNegative = true
						log.Warn(ctx, "negative slant TEC in absolute mode",
							logging.Float64("tec", v),
							logging.Int("step", ti),
						)
					}
				}
				if ion.ExpectedSTECU > 0 && math.Abs(v) > ion.ExpectedSTECU && !warnedCeiling {
					warnedCeiling = true
					log.Warn(ctx, "slant TEC beyond configured ceiling",
						logging.Float64("tec", v),
						logging.Float64("ceiling", ion.ExpectedSTECU),
						logging.Int("step", ti),
					)
				}
				cube.Set(ti, si, di, v)
			}
		}

		if s.sink != nil {
			if s.obs.Mode == model.TecModeAbsolute {
				flat := modulation * ion.MaxVTECU
				frame.Apply(func(_, _ int, v float64) float64 { return v + flat }, frame)
			}
			if err := s.sink.WriteFrame(ti, frame); err != nil {
				return failed(fmt.Errorf("export frame %d: %w", ti, err))
			}
		}

		s.screenMetrics.ObserveFrameAssembly(time.Since(frameStart))
		s.screenMetrics.IncFrames()
		tiles := gen.TilesConsumed()
		s.screenMetrics.AddTiles(tiles - lastTiles)
		lastTiles = tiles

		progress(ti+1, axis.Len(), "generating tec screen")
	}
	s.metrics.ObserveStage(observability.StageAssemble, time.Since(assembleStart))

	if s.sink != nil {
		if err := s.sink.WriteGeometry(times, grid, geom); err != nil {
			return failed(fmt.Errorf("export geometry: %w", err))
		}
	}

	s.metrics.IncRun("ok")
	log.Info(ctx, "tec simulation finished",
		logging.String("observation_id", s.obs.ID),
		logging.Int("frames", axis.Len()),
		logging.Any("screen_seed", gen.Seed()),
	)
	return cube, nil
}

// newScreenGenerator converts the observation's physical parameters into
// screen pixel units and assembles the dual-band generator.
func (s *Simulator) newScreenGenerator(ctx context.Context, log logging.Logger, grid *ComovingGrid, axis *timectrl.TimeAxis) (*ScreenGenerator, error) {
	ion := s.obs.Ionosphere
	resGround := ion.AngResArcsec / 3600 * math.Pi / 180

	// Pixel units: one pixel spans resGround of ground angle.
	r0Px := math.Atan(ion.R0Km*1e3/ion.HeightM) / resGround
	l0Px := math.Atan(outerScaleM/ion.HeightM) / resGround
	dxPx := ion.SpeedMps / (ion.HeightM * math.Tan(resGround)) * axis.Span() / float64(axis.Len())

	nfft := max(grid.NumLon(), grid.NumLat())
	nfft = (nfft + 1) / 2 * 2
	if nfft < minScreenFFT {
		log.Debug(ctx, "raising tweeter FFT size for a small raster",
			logging.Int("raster_nfft", nfft),
			logging.Int("nfft", minScreenFFT),
		)
		nfft = minScreenFFT
	}

	gen, err := NewScreenGenerator(ScreenConfig{
		Spectrum: Spectrum{
			Kind:  SpectrumGeneralizedVonKarman,
			R0:    r0Px,
			L0:    l0Px,
			Alpha: ion.Alpha,
		},
		WindowShape: [2]int{grid.NumLon(), grid.NumLat()},
		Dx:          dxPx,
		NFFTTweeter: nfft,
		Seed:        ion.Seed,
	})
	if err != nil {
		return nil, err
	}

	log.Info(ctx, "screen generator ready",
		logging.Any("seed", gen.Seed()),
		logging.Int("nfft_tweeter", nfft),
		logging.Int("window_lon", grid.NumLon()),
		logging.Int("window_lat", grid.NumLat()),
		logging.Float64("r0_px", r0Px),
		logging.Float64("outer_scale_px", l0Px),
		logging.Float64("dx_px", dxPx),
	)
	return gen, nil
}

// daytimeTECModulation maps a UTC day hour onto the diurnal vertical TEC
// cycle: peak at 15h, trough at 3h.
func daytimeTECModulation(hours float64) float64 {
	return 0.45*math.Sin((hours-9)*math.Pi/12) + 0.55
}

func runOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
