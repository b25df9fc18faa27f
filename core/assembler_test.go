package core

import (
	"context"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/ionosphere-simulator/model"
	"github.com/signalsfoundry/ionosphere-simulator/timectrl"
)

// zenithObservation is the smallest realistic run: one polar station
// watching the north celestial pole, so every pierce point sits at the
// zenith and the raster degenerates to the padded minimum.
func zenithObservation(seed int64, mode model.TecMode) model.Observation {
	return model.Observation{
		ID: "obs-zenith",
		Stations: []model.Station{
			{ID: "pole", Position: model.Position{X: 0, Y: 0, Z: EarthRadius}},
		},
		Directions: []model.Direction{
			{ID: "ncp", RA: 10, Dec: 90},
		},
		StartMJDSeconds: 5.0e9,
		StepSeconds:     2,
		Steps:           3,
		Ionosphere:      model.IonosphereParams{Seed: seed},
		Mode:            mode,
	}
}

type captureSink struct {
	frames   []*mat.Dense
	geoCalls int
	times    []float64
}

func (c *captureSink) WriteFrame(step int, screen *mat.Dense) error {
	c.frames = append(c.frames, mat.DenseCopyOf(screen))
	return nil
}

func (c *captureSink) WriteGeometry(times []float64, grid *ComovingGrid, geom *PierceGeometry) error {
	c.geoCalls++
	c.times = append([]float64(nil), times...)
	return nil
}

func (c *captureSink) Close() error { return nil }

func TestValidateObservation_Cases(t *testing.T) {
	good := zenithObservation(1, model.TecModeRelative)
	if err := ValidateObservation(good); err != nil {
		t.Fatalf("valid observation rejected: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*model.Observation)
		wantErr bool
	}{
		{"no stations", func(o *model.Observation) { o.Stations = nil }, true},
		{"no directions", func(o *model.Observation) { o.Directions = nil }, true},
		{"zero steps", func(o *model.Observation) { o.Steps = 0 }, true},
		{"negative step size", func(o *model.Observation) { o.StepSeconds = -1 }, true},
		{"exponent too steep", func(o *model.Observation) { o.Ionosphere.Alpha = 4.5 }, true},
		{"negative vtec peak", func(o *model.Observation) { o.Ionosphere.MaxVTECU = -1 }, true},
		{"unknown mode", func(o *model.Observation) { o.Mode = model.TecMode(7) }, true},
		{"partial ionosphere is defaulted", func(o *model.Observation) { o.Ionosphere = model.IonosphereParams{R0Km: 5} }, false},
	}
	for _, tc := range cases {
		obs := zenithObservation(1, model.TecModeRelative)
		tc.mutate(&obs)
		err := ValidateObservation(obs)
		if tc.wantErr && !errors.Is(err, ErrInvalidObservation) {
			t.Errorf("%s: got %v, want ErrInvalidObservation", tc.name, err)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
		}
	}
}

func TestNewSimulator_AppliesIonosphereDefaults(t *testing.T) {
	sim, err := NewSimulator(zenithObservation(1, model.TecModeRelative))
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	ion := sim.Observation().Ionosphere
	if ion.HeightM != 250e3 || ion.R0Km != 10 || ion.SpeedMps != 10 {
		t.Errorf("defaults not applied: %+v", ion)
	}
	if math.Abs(ion.Alpha-11.0/3.0) > 1e-15 || ion.AngResArcsec != 60 {
		t.Errorf("defaults not applied: %+v", ion)
	}
}

func TestDaytimeTECModulation_Cycle(t *testing.T) {
	if v := daytimeTECModulation(15); math.Abs(v-1.0) > 1e-12 {
		t.Errorf("peak at 15h = %v, want 1", v)
	}
	if v := daytimeTECModulation(3); math.Abs(v-0.1) > 1e-12 {
		t.Errorf("trough at 3h = %v, want 0.1", v)
	}
	if v := daytimeTECModulation(9); math.Abs(v-0.55) > 1e-12 {
		t.Errorf("morning shoulder at 9h = %v, want 0.55", v)
	}
}

func TestSimulatorRun_ZenithCube(t *testing.T) {
	sink := &captureSink{}
	var steps []int
	sim, err := NewSimulator(zenithObservation(42, model.TecModeRelative),
		WithExportSink(sink),
		WithProgress(func(step, total int, status string) {
			steps = append(steps, step)
			if total != 3 {
				t.Errorf("progress total = %d, want 3", total)
			}
		}),
	)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}

	cube, err := sim.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(cube.TimesMJDSeconds) != 3 || len(cube.StationIDs) != 1 || len(cube.DirectionIDs) != 1 {
		t.Fatalf("cube shape: %d x %d x %d, want 3 x 1 x 1",
			len(cube.TimesMJDSeconds), len(cube.StationIDs), len(cube.DirectionIDs))
	}
	for ti := range 3 {
		v := cube.At(ti, 0, 0)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Fatalf("t=%d: non-finite delay %v", ti, v)
		}
	}

	if len(sink.frames) != 3 {
		t.Errorf("sink received %d frames, want 3", len(sink.frames))
	}
	if sink.geoCalls != 1 {
		t.Errorf("sink geometry written %d times, want 1", sink.geoCalls)
	}
	if len(steps) != 3 || steps[0] != 1 || steps[2] != 3 {
		t.Errorf("progress steps = %v, want [1 2 3]", steps)
	}
}

func TestSimulatorRun_DeterministicUnderSeed(t *testing.T) {
	run := func() *model.DelayCube {
		sim, err := NewSimulator(zenithObservation(77, model.TecModeRelative))
		if err != nil {
			t.Fatalf("NewSimulator: %v", err)
		}
		cube, err := sim.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return cube
	}

	a, b := run(), run()
	for ti := range a.Values {
		if a.At(ti, 0, 0) != b.At(ti, 0, 0) {
			t.Fatalf("t=%d: %v != %v under identical seed", ti, a.At(ti, 0, 0), b.At(ti, 0, 0))
		}
	}
}

func TestSimulatorRun_AbsoluteModeAddsDiurnalBaseline(t *testing.T) {
	runMode := func(mode model.TecMode) *model.DelayCube {
		sim, err := NewSimulator(zenithObservation(99, mode))
		if err != nil {
			t.Fatalf("NewSimulator: %v", err)
		}
		cube, err := sim.Run(context.Background())
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return cube
	}

	rel := runMode(model.TecModeRelative)
	abs := runMode(model.TecModeAbsolute)

	for ti := range rel.Values {
		hours := timectrl.UTCDayHours(rel.TimesMJDSeconds[ti])
		want := daytimeTECModulation(hours) * 10 // default vertical TEC peak, zenith slant
		got := abs.At(ti, 0, 0) - rel.At(ti, 0, 0)
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("t=%d: absolute baseline = %v, want %v", ti, got, want)
		}
	}
}

func TestSimulatorRun_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sim, err := NewSimulator(zenithObservation(5, model.TecModeRelative),
		WithProgress(func(step, total int, status string) {
			if step == 1 {
				cancel()
			}
		}),
	)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}

	_, err = sim.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
