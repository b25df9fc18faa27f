package core

import (
	"context"
	"fmt"
	"math"

	satellite "github.com/joshuaferrara/go-satellite"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/ionosphere-simulator/internal/logging"
	"github.com/signalsfoundry/ionosphere-simulator/model"
	"github.com/signalsfoundry/ionosphere-simulator/timectrl"
)

// PierceGeometry holds, for every timestep, the points where each
// station-to-source sight line crosses the thin ionospheric shell,
// together with the quantities derived from them.
//
// All slices are indexed [time][station][direction] except Directions,
// which is station independent and indexed [time][direction].
type PierceGeometry struct {
	// Points are the ECEF pierce points in metres.
	Points [][][]Vec3

	// Directions are the unit sight-line vectors, oriented from the
	// receiver towards the source.
	Directions [][]Vec3

	// Lon and Lat are the geocentric pierce coordinates in radians.
	Lon [][][]float64
	Lat [][][]float64

	// CosPierce is the cosine of the angle between the shell vertical at
	// the pierce point and the sight line. Dividing a vertical electron
	// density by it yields the slant value.
	CosPierce [][][]float64
}

// SolvePiercePoints intersects every station-to-source sight line with a
// spherical shell of the given height above the Earth and returns the
// resulting geometry for all timesteps.
//
// Source positions are fixed on the celestial sphere (RA/Dec), so their
// terrestrial direction vectors rotate with the Earth; the rotation is
// evaluated at each timestamp via Greenwich mean sidereal time. Directions
// are solved concurrently, one worker per source.
func SolvePiercePoints(ctx context.Context, log logging.Logger, stations []model.Station, directions []model.Direction, times []float64, heightM float64) (*PierceGeometry, error) {
	if log == nil {
		log = logging.Noop()
	}
	if len(stations) == 0 {
		return nil, fmt.Errorf("%w: no stations", ErrInvalidObservation)
	}
	if len(directions) == 0 {
		return nil, fmt.Errorf("%w: no directions", ErrInvalidObservation)
	}
	if len(times) == 0 {
		return nil, fmt.Errorf("%w: no timestamps", ErrInvalidObservation)
	}
	if heightM <= 0 {
		return nil, fmt.Errorf("%w: shell height must be positive, got %v", ErrInvalidObservation, heightM)
	}

	nT, nS, nD := len(times), len(stations), len(directions)
	geom := &PierceGeometry{
		Points:     make([][][]Vec3, nT),
		Directions: make([][]Vec3, nT),
		Lon:        make([][][]float64, nT),
		Lat:        make([][][]float64, nT),
		CosPierce:  make([][][]float64, nT),
	}
	for ti := range times {
		geom.Points[ti] = make([][]Vec3, nS)
		geom.Directions[ti] = make([]Vec3, nD)
		geom.Lon[ti] = make([][]float64, nS)
		geom.Lat[ti] = make([][]float64, nS)
		geom.CosPierce[ti] = make([][]float64, nS)
		for si := range stations {
			geom.Points[ti][si] = make([]Vec3, nD)
			geom.Lon[ti][si] = make([]float64, nD)
			geom.Lat[ti][si] = make([]float64, nD)
			geom.CosPierce[ti][si] = make([]float64, nD)
		}
	}

	// Sidereal angles are shared by all workers.
	gmst := make([]float64, nT)
	for ti, mjdSec := range times {
		gmst[ti] = satellite.ThetaG_JD(timectrl.JulianDay(mjdSec))
	}

	shellRadius := EarthRadius + heightM

	eg, ctx := errgroup.WithContext(ctx)
	for di, dir := range directions {
		eg.Go(func() error {
			// Unit vector towards the source in the celestial frame.
			ra := dir.RA * math.Pi / 180
			dec := dir.Dec * math.Pi / 180
			eci := satellite.Vector3{
				X: math.Cos(dec) * math.Cos(ra),
				Y: math.Cos(dec) * math.Sin(ra),
				Z: math.Sin(dec),
			}

			warned := make([]bool, nS)
			for ti := range times {
				if err := ctx.Err(); err != nil {
					return err
				}
				ecef := satellite.ECIToECEF(eci, gmst[ti])
				d := Vec3{X: ecef.X, Y: ecef.Y, Z: ecef.Z}
				geom.Directions[ti][di] = d

				for si, st := range stations {
					s := Vec3{X: st.Position.X, Y: st.Position.Y, Z: st.Position.Z}
					ds := d.Dot(s)
					disc := ds*ds + shellRadius*shellRadius - s.Dot(s)
					if disc < 0 {
						return fmt.Errorf("%w: station %q lies outside the shell at height %v m", ErrNoIntersection, st.ID, heightM)
					}
					alpha := -ds + math.Sqrt(disc)
					if alpha <= 0 {
						return fmt.Errorf("%w: station %q sits above the shell at height %v m", ErrNoIntersection, st.ID, heightM)
					}
					pp := s.Add(d.Scale(alpha))

					geom.Points[ti][si][di] = pp
					lon, lat := pp.LonLat()
					geom.Lon[ti][si][di] = lon
					geom.Lat[ti][si][di] = lat
					geom.CosPierce[ti][si][di] = pp.Unit().Dot(d)

					if !warned[si] && !hasLineOfSight(s, pp) {
						warned[si] = true
						log.Warn(ctx, "source below station horizon, slant factors unreliable",
							logging.String("station", st.ID),
							logging.String("direction", dir.ID),
							logging.Float64("elevation_deg", ElevationDegrees(s, pp)),
						)
					}
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return geom, nil
}
