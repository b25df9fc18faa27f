package core

import (
	"fmt"
	"math"
)

// Defaults for the traveling disturbance model. The speed is the
// conventional 500 km/h of a medium-scale disturbance.
const (
	defaultTIDAmplitudeTECU = 1.0
	defaultTIDWavelengthM   = 200e3
	defaultTIDSpeedMps      = 500e3 / 3600
	defaultTIDRefLatDeg     = 52.91
)

// TIDWave models a traveling ionospheric disturbance: a sinusoidal
// vertical TEC wave running along the north-south axis through a
// reference latitude. It is an alternative to the turbulent screen when
// a cheap, fully deterministic delay cube is enough.
type TIDWave struct {
	// AmplitudeTECU is the wave amplitude. Zero selects the default of
	// one TECU.
	AmplitudeTECU float64

	// WavelengthM is the spatial wavelength in metres. Zero selects
	// 200 km.
	WavelengthM float64

	// SpeedMps is the propagation speed in metres per second. Zero
	// selects 500 km/h.
	SpeedMps float64

	// RefLatDeg is the latitude the displacement coordinate is measured
	// from, in degrees north. Zero selects 52.91.
	RefLatDeg float64
}

func (w TIDWave) withDefaults() TIDWave {
	if w.AmplitudeTECU == 0 {
		w.AmplitudeTECU = defaultTIDAmplitudeTECU
	}
	if w.WavelengthM == 0 {
		w.WavelengthM = defaultTIDWavelengthM
	}
	if w.SpeedMps == 0 {
		w.SpeedMps = defaultTIDSpeedMps
	}
	if w.RefLatDeg == 0 {
		w.RefLatDeg = defaultTIDRefLatDeg
	}
	return w
}

// Evaluate returns the disturbance delay in TECU for every
// (time, station, direction) triple of the given pierce geometry.
// Timestamps are MJD seconds and must align with the geometry's first
// axis. The wave displacement is the arc offset of each pierce point
// from the reference latitude at shell height.
func (w TIDWave) Evaluate(geom *PierceGeometry, times []float64, heightM float64) ([][][]float64, error) {
	w = w.withDefaults()
	if geom == nil || len(geom.Lat) == 0 {
		return nil, fmt.Errorf("%w: empty pierce geometry", ErrInvalidObservation)
	}
	if len(times) != len(geom.Lat) {
		return nil, fmt.Errorf("%w: %d timestamps for %d geometry steps", ErrInvalidObservation, len(times), len(geom.Lat))
	}
	if heightM <= 0 {
		return nil, fmt.Errorf("%w: shell height must be positive, got %v", ErrInvalidObservation, heightM)
	}
	if w.WavelengthM <= 0 {
		return nil, fmt.Errorf("%w: wavelength must be positive, got %v", ErrInvalidObservation, w.WavelengthM)
	}
	if w.SpeedMps < 0 {
		return nil, fmt.Errorf("%w: speed must not be negative, got %v", ErrInvalidObservation, w.SpeedMps)
	}

	refLat := w.RefLatDeg * math.Pi / 180
	out := make([][][]float64, len(times))
	for ti, t := range times {
		out[ti] = make([][]float64, len(geom.Lat[ti]))
		for si := range geom.Lat[ti] {
			out[ti][si] = make([]float64, len(geom.Lat[ti][si]))
			for di, lat := range geom.Lat[ti][si] {
				x := (EarthRadius + heightM) * math.Sin(refLat-lat)
				out[ti][si][di] = w.AmplitudeTECU * math.Sin((x+w.SpeedMps*t)*2*math.Pi/w.WavelengthM)
			}
		}
	}
	return out, nil
}
