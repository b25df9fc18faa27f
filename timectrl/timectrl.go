package timectrl

import (
	"fmt"
	"math"
	"time"
)

// Simulation timestamps are seconds of Modified Julian Date (UTC). The MJD
// epoch is 1858-11-17T00:00:00 UTC.
var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 86400.0

// MJDSecondsToTime converts an MJD-seconds timestamp to a time.Time in UTC.
func MJDSecondsToTime(sec float64) time.Time {
	days := math.Floor(sec / secondsPerDay)
	rem := sec - days*secondsPerDay
	return mjdEpoch.AddDate(0, 0, int(days)).Add(time.Duration(rem * float64(time.Second)))
}

// TimeToMJDSeconds converts a time.Time to MJD seconds. Valid until the year
// 2150, when the nanosecond offset from the MJD epoch overflows.
func TimeToMJDSeconds(t time.Time) float64 {
	return t.Sub(mjdEpoch).Seconds()
}

// JulianDay converts MJD seconds to a Julian day number.
func JulianDay(sec float64) float64 {
	return sec/secondsPerDay + 2400000.5
}

// UTCDayHours returns the fractional UTC hour of day for an MJD-seconds
// timestamp, with minute resolution.
func UTCDayHours(sec float64) float64 {
	t := MJDSecondsToTime(sec)
	return float64(t.Hour()) + float64(t.Minute())/60.0
}

// TimeAxis is the uniform time grid a simulation run walks through: Steps
// samples starting at StartMJDSeconds, spaced StepSeconds apart.
type TimeAxis struct {
	StartMJDSeconds float64
	StepSeconds     float64
	Steps           int
}

// NewTimeAxis validates and constructs a time axis.
func NewTimeAxis(startMJDSeconds, stepSeconds float64, steps int) (*TimeAxis, error) {
	if steps <= 0 {
		return nil, fmt.Errorf("time axis needs at least one step, got %d", steps)
	}
	if stepSeconds <= 0 {
		return nil, fmt.Errorf("time axis step must be positive, got %g", stepSeconds)
	}
	return &TimeAxis{
		StartMJDSeconds: startMJDSeconds,
		StepSeconds:     stepSeconds,
		Steps:           steps,
	}, nil
}

// Len returns the number of samples.
func (a *TimeAxis) Len() int { return a.Steps }

// At returns the i-th timestamp in MJD seconds.
func (a *TimeAxis) At(i int) float64 {
	return a.StartMJDSeconds + float64(i)*a.StepSeconds
}

// First returns the first timestamp.
func (a *TimeAxis) First() float64 { return a.At(0) }

// Last returns the final timestamp.
func (a *TimeAxis) Last() float64 { return a.At(a.Steps - 1) }

// Span returns Last minus First in seconds.
func (a *TimeAxis) Span() float64 { return a.Last() - a.First() }

// Times materialises the full axis as a slice of MJD seconds.
func (a *TimeAxis) Times() []float64 {
	out := make([]float64, a.Steps)
	for i := range out {
		out[i] = a.At(i)
	}
	return out
}
