package timectrl

import (
	"math"
	"testing"
	"time"
)

func TestMJDSecondsToTime_KnownEpochs(t *testing.T) {
	// MJD zero is the calendar epoch itself.
	got := MJDSecondsToTime(0)
	want := time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("MJDSecondsToTime(0) = %v, want %v", got, want)
	}

	// MJD 51544.5 is 2000-01-01T12:00:00 UTC.
	got = MJDSecondsToTime(51544.5 * 86400)
	want = time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("MJDSecondsToTime(J2000) = %v, want %v", got, want)
	}
}

func TestTimeToMJDSeconds_RoundTrip(t *testing.T) {
	ref := time.Date(2021, time.October, 2, 8, 45, 30, 0, time.UTC)
	sec := TimeToMJDSeconds(ref)
	back := MJDSecondsToTime(sec)
	if d := back.Sub(ref); d > time.Millisecond || d < -time.Millisecond {
		t.Fatalf("round trip drifted by %v (sec=%v back=%v)", d, sec, back)
	}
}

func TestJulianDay_J2000(t *testing.T) {
	jd := JulianDay(51544.5 * 86400)
	if math.Abs(jd-2451545.0) > 1e-9 {
		t.Fatalf("JulianDay(J2000) = %v, want 2451545.0", jd)
	}
}

func TestUTCDayHours_MinuteResolution(t *testing.T) {
	// 12:30:45 should report 12.5: seconds are below the model's resolution.
	ref := time.Date(2013, time.March, 8, 12, 30, 45, 0, time.UTC)
	hours := UTCDayHours(TimeToMJDSeconds(ref))
	if math.Abs(hours-12.5) > 1e-9 {
		t.Fatalf("UTCDayHours = %v, want 12.5", hours)
	}
}

func TestNewTimeAxis_RejectsBadInput(t *testing.T) {
	if _, err := NewTimeAxis(0, 10, 0); err == nil {
		t.Fatalf("expected error for zero steps")
	}
	if _, err := NewTimeAxis(0, -1, 5); err == nil {
		t.Fatalf("expected error for negative step")
	}
}

func TestTimeAxis_Samples(t *testing.T) {
	axis, err := NewTimeAxis(1000, 8, 4)
	if err != nil {
		t.Fatalf("NewTimeAxis: %v", err)
	}
	if axis.Len() != 4 {
		t.Fatalf("Len = %d, want 4", axis.Len())
	}
	if got := axis.At(3); got != 1024 {
		t.Fatalf("At(3) = %v, want 1024", got)
	}
	if got := axis.Span(); got != 24 {
		t.Fatalf("Span = %v, want 24", got)
	}
	times := axis.Times()
	if len(times) != 4 || times[0] != 1000 || times[1] != 1008 {
		t.Fatalf("Times = %v", times)
	}
}
