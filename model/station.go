package model

// Position is an ECEF position in metres (ITRF frame).
type Position struct {
	X float64
	Y float64
	Z float64
}

// Station represents a ground-based receiver, e.g. an interferometer element.
type Station struct {
	ID   string
	Name string

	Position Position
}

// Direction is a celestial pointing in equatorial coordinates. RA and Dec are
// in degrees (J2000).
type Direction struct {
	ID   string
	Name string

	RA  float64
	Dec float64
}
