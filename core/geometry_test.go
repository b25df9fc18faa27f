package core

import (
	"math"
	"testing"
)

func TestHasLineOfSight_NoObstruction(t *testing.T) {
	// A station and a pierce point almost overhead. The segment stays
	// well outside the Earth sphere.
	station := Vec3{X: EarthRadius, Y: 0, Z: 0}
	pierce := Vec3{X: EarthRadius + 250e3, Y: 50e3, Z: 0}

	if !hasLineOfSight(station, pierce) {
		t.Errorf("expected LoS between station and overhead pierce point")
	}
}

func TestHasLineOfSight_Obstructed(t *testing.T) {
	// Two points on opposite sides: the chord passes through the Earth.
	posA := Vec3{X: EarthRadius + 600e3, Y: 0, Z: 0}
	posB := Vec3{X: -(EarthRadius + 600e3), Y: 0, Z: 0}

	if hasLineOfSight(posA, posB) {
		t.Errorf("expected LoS to be blocked by Earth")
	}
}

func TestVec3_Algebra(t *testing.T) {
	a := Vec3{X: 1, Y: 2, Z: 3}
	b := Vec3{X: -4, Y: 0, Z: 5}

	if got := a.Add(b); got != (Vec3{X: -3, Y: 2, Z: 8}) {
		t.Errorf("Add: got %+v", got)
	}
	if got := a.Sub(b); got != (Vec3{X: 5, Y: 2, Z: -2}) {
		t.Errorf("Sub: got %+v", got)
	}
	if got := a.Scale(2); got != (Vec3{X: 2, Y: 4, Z: 6}) {
		t.Errorf("Scale: got %+v", got)
	}
	if got := a.Dot(b); got != 11 {
		t.Errorf("Dot: got %v, want 11", got)
	}
	if got := (Vec3{X: 3, Y: 4, Z: 0}).Norm(); got != 5 {
		t.Errorf("Norm: got %v, want 5", got)
	}
}

func TestVec3_Unit(t *testing.T) {
	v := Vec3{X: 0, Y: -7, Z: 0}
	u := v.Unit()
	if math.Abs(u.Norm()-1) > 1e-15 {
		t.Errorf("unit vector norm = %v, want 1", u.Norm())
	}
	if u.Y >= 0 {
		t.Errorf("unit vector should preserve direction, got %+v", u)
	}

	// The zero vector has no direction and passes through unchanged.
	if got := (Vec3{}).Unit(); got != (Vec3{}) {
		t.Errorf("zero vector unit = %+v, want zero", got)
	}
}

func TestVec3_LonLat_KnownPoints(t *testing.T) {
	cases := []struct {
		name     string
		v        Vec3
		lon, lat float64
	}{
		{"greenwich equator", Vec3{X: EarthRadius, Y: 0, Z: 0}, 0, 0},
		{"east 90 equator", Vec3{X: 0, Y: EarthRadius, Z: 0}, math.Pi / 2, 0},
		{"north pole", Vec3{X: 0, Y: 0, Z: EarthRadius}, 0, math.Pi / 2},
		{"mid latitude", Vec3{X: 1, Y: 1, Z: math.Sqrt2}, math.Pi / 4, math.Pi / 4},
	}
	for _, tc := range cases {
		lon, lat := tc.v.LonLat()
		if math.Abs(lon-tc.lon) > 1e-12 || math.Abs(lat-tc.lat) > 1e-12 {
			t.Errorf("%s: got lon=%v lat=%v, want lon=%v lat=%v",
				tc.name, lon, lat, tc.lon, tc.lat)
		}
	}
}

func TestElevationDegrees_ZenithAndHorizon(t *testing.T) {
	station := Vec3{X: EarthRadius, Y: 0, Z: 0}

	// Directly overhead.
	overhead := Vec3{X: EarthRadius + 250e3, Y: 0, Z: 0}
	if got := ElevationDegrees(station, overhead); math.Abs(got-90) > 1e-9 {
		t.Errorf("overhead elevation = %v, want 90", got)
	}

	// Along the local horizontal plane.
	horizon := Vec3{X: EarthRadius, Y: 400e3, Z: 0}
	if got := ElevationDegrees(station, horizon); math.Abs(got) > 1e-9 {
		t.Errorf("horizon elevation = %v, want 0", got)
	}

	// Below the horizon.
	below := Vec3{X: EarthRadius - 100e3, Y: 400e3, Z: 0}
	if got := ElevationDegrees(station, below); got >= 0 {
		t.Errorf("below-horizon elevation = %v, want negative", got)
	}
}
