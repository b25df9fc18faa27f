package model

// TecMode selects what the simulated TEC values represent.
type TecMode int

const (
	// TecModeRelative produces differential TEC around a zero mean.
	TecModeRelative TecMode = iota
	// TecModeAbsolute adds a diurnally modulated vertical TEC baseline on top
	// of the differential component.
	TecModeAbsolute
)

func (m TecMode) String() string {
	switch m {
	case TecModeRelative:
		return "relative"
	case TecModeAbsolute:
		return "absolute"
	default:
		return "unknown"
	}
}

// IonosphereParams describes the turbulent single-layer ionosphere above the
// array.
type IonosphereParams struct {
	HeightM       float64 // screen height above the surface, metres
	R0Km          float64 // diffractive scale at 150 MHz, kilometres
	SpeedMps      float64 // frozen-turbulence bulk velocity, metres per second
	Alpha         float64 // power-law exponent of the phase spectrum
	AngResArcsec  float64 // angular size of one screen pixel, arcseconds
	MaxVTECU      float64 // daytime vertical TEC peak in TECU (absolute mode)
	ExpectedSTECU float64 // sanity ceiling for warnings; 0 disables the check
	Seed          int64   // 0 draws a fresh seed at run time
}

// WithDefaults fills unset (zero) ionosphere fields with the standard
// single-layer values: a 250 km screen drifting at 10 m/s, Kolmogorov
// exponent 11/3, 10 km diffractive scale, one arcminute of resolution and
// a 10 TECU daytime peak.
func (p IonosphereParams) WithDefaults() IonosphereParams {
	if p.HeightM == 0 {
		p.HeightM = 250e3
	}
	if p.R0Km == 0 {
		p.R0Km = 10
	}
	if p.SpeedMps == 0 {
		p.SpeedMps = 10
	}
	if p.Alpha == 0 {
		p.Alpha = 11.0 / 3.0
	}
	if p.AngResArcsec == 0 {
		p.AngResArcsec = 60
	}
	if p.MaxVTECU == 0 {
		p.MaxVTECU = 10
	}
	return p
}

// Observation bundles everything one simulation run needs: the stations, the
// directions they observe, a uniform time axis in seconds of Modified Julian
// Date, and the ionospheric state.
type Observation struct {
	ID string

	Stations   []Station
	Directions []Direction

	StartMJDSeconds float64
	StepSeconds     float64
	Steps           int

	Ionosphere IonosphereParams
	Mode       TecMode
}
