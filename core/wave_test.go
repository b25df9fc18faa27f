package core

import (
	"errors"
	"math"
	"testing"
)

// waveTestGeometry places one station with directions piercing at the
// given latitudes, repeated for every timestamp.
func waveTestGeometry(lats []float64, steps int) *PierceGeometry {
	geom := &PierceGeometry{
		Lat: make([][][]float64, steps),
		Lon: make([][][]float64, steps),
	}
	for ti := range steps {
		lat := make([]float64, len(lats))
		copy(lat, lats)
		geom.Lat[ti] = [][]float64{lat}
		geom.Lon[ti] = [][]float64{make([]float64, len(lats))}
	}
	return geom
}

func mjdTimes(start float64, step float64, n int) []float64 {
	times := make([]float64, n)
	for i := range times {
		times[i] = start + float64(i)*step
	}
	return times
}

func TestTIDWave_PeriodicInTime(t *testing.T) {
	// One temporal period is wavelength/speed = 200 km / (500 km/h) = 1440 s.
	lats := []float64{52.91 * math.Pi / 180}
	geom := waveTestGeometry(lats, 2)
	times := []float64{5.0e9, 5.0e9 + 1440}

	vals, err := TIDWave{}.Evaluate(geom, times, 200e3)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if diff := math.Abs(vals[0][0][0] - vals[1][0][0]); diff > 1e-6 {
		t.Errorf("wave not periodic over 1440 s: |%v - %v| = %v",
			vals[0][0][0], vals[1][0][0], diff)
	}
}

func TestTIDWave_PeriodicInDisplacement(t *testing.T) {
	// Two pierce latitudes exactly one wavelength apart along the shell.
	h := 200e3
	ref := 52.91 * math.Pi / 180
	lat2 := ref - math.Asin(200e3/(EarthRadius+h))
	geom := waveTestGeometry([]float64{ref, lat2}, 1)

	vals, err := TIDWave{}.Evaluate(geom, mjdTimes(5.0e9, 1, 1), h)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if diff := math.Abs(vals[0][0][0] - vals[0][0][1]); diff > 1e-6 {
		t.Errorf("wave not periodic over one wavelength: |%v - %v| = %v",
			vals[0][0][0], vals[0][0][1], diff)
	}
}

func TestTIDWave_AmplitudeBounds(t *testing.T) {
	w := TIDWave{AmplitudeTECU: 2.5}
	// Sample more than one full period.
	times := mjdTimes(5.0e9, 2, 1000)
	geom := waveTestGeometry([]float64{0.9}, len(times))

	vals, err := w.Evaluate(geom, times, 250e3)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	peak := 0.0
	for ti := range vals {
		v := vals[ti][0][0]
		if math.Abs(v) > 2.5+1e-12 {
			t.Fatalf("value %v exceeds amplitude", v)
		}
		peak = math.Max(peak, math.Abs(v))
	}
	if peak < 0.99*2.5 {
		t.Errorf("peak %v never approaches amplitude 2.5 over a full period", peak)
	}
}

func TestTIDWave_DefaultsApplied(t *testing.T) {
	geom := waveTestGeometry([]float64{0.88, 0.92}, 3)
	times := mjdTimes(5.0e9, 60, 3)

	zero, err := TIDWave{}.Evaluate(geom, times, 250e3)
	if err != nil {
		t.Fatalf("Evaluate zero value: %v", err)
	}
	explicit, err := TIDWave{
		AmplitudeTECU: 1,
		WavelengthM:   200e3,
		SpeedMps:      500e3 / 3600,
		RefLatDeg:     52.91,
	}.Evaluate(geom, times, 250e3)
	if err != nil {
		t.Fatalf("Evaluate explicit defaults: %v", err)
	}
	for ti := range zero {
		for di := range zero[ti][0] {
			if zero[ti][0][di] != explicit[ti][0][di] {
				t.Fatalf("t=%d d=%d: zero-value wave %v != explicit defaults %v",
					ti, di, zero[ti][0][di], explicit[ti][0][di])
			}
		}
	}
}

func TestTIDWave_RejectsBadInput(t *testing.T) {
	geom := waveTestGeometry([]float64{0.9}, 2)
	times := mjdTimes(5.0e9, 60, 2)

	cases := []struct {
		name   string
		wave   TIDWave
		geom   *PierceGeometry
		times  []float64
		height float64
	}{
		{"nil geometry", TIDWave{}, nil, times, 250e3},
		{"time mismatch", TIDWave{}, geom, times[:1], 250e3},
		{"zero height", TIDWave{}, geom, times, 0},
		{"negative wavelength", TIDWave{WavelengthM: -1}, geom, times, 250e3},
		{"negative speed", TIDWave{SpeedMps: -3}, geom, times, 250e3},
	}
	for _, tc := range cases {
		_, err := tc.wave.Evaluate(tc.geom, tc.times, tc.height)
		if !errors.Is(err, ErrInvalidObservation) {
			t.Errorf("%s: got %v, want ErrInvalidObservation", tc.name, err)
		}
	}
}
