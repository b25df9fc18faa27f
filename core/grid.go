package core

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/signalsfoundry/ionosphere-simulator/internal/logging"
)

// ComovingGrid is a longitude/latitude raster that follows the pierce
// points across the shell: every timestep has its own axis ranges, but
// all timesteps share one pixel count per axis so a single frozen screen
// can be sampled through them.
type ComovingGrid struct {
	// Lon[t] and Lat[t] are the grid node coordinates in radians,
	// endpoints included.
	Lon [][]float64
	Lat [][]float64

	// CellLon[t] and CellLat[t] are the per-timestep cell sizes in
	// radians (axis extent divided by the pixel count).
	CellLon []float64
	CellLat []float64

	// ResLon and ResLat are the target angular resolutions in radians at
	// shell height that sized the grid.
	ResLon float64
	ResLat float64
}

// NumLon returns the number of grid nodes along the longitude axis.
func (g *ComovingGrid) NumLon() int {
	if len(g.Lon) == 0 {
		return 0
	}
	return len(g.Lon[0])
}

// NumLat returns the number of grid nodes along the latitude axis.
func (g *ComovingGrid) NumLat() int {
	if len(g.Lat) == 0 {
		return 0
	}
	return len(g.Lat[0])
}

// BuildComovingGrid sizes a comoving raster around the pierce points of
// every timestep. The grid resolution is the given angular resolution as
// seen from the ground, projected to shell height; the longitude
// resolution is widened by the secant of the mean pierce latitude so
// cells stay roughly square on the sphere.
//
// Timesteps whose pierce bounding box needs fewer pixels than the run
// maximum are padded at the upper edge, keeping the pixel count constant
// across the run.
func BuildComovingGrid(ctx context.Context, log logging.Logger, geom *PierceGeometry, angResArcsec, heightM float64) (*ComovingGrid, error) {
	if log == nil {
		log = logging.Noop()
	}
	if geom == nil || len(geom.Lon) == 0 {
		return nil, fmt.Errorf("%w: empty pierce geometry", ErrInvalidObservation)
	}
	if angResArcsec <= 0 {
		return nil, fmt.Errorf("%w: angular resolution must be positive, got %v", ErrInvalidObservation, angResArcsec)
	}
	if heightM <= 0 {
		return nil, fmt.Errorf("%w: shell height must be positive, got %v", ErrInvalidObservation, heightM)
	}

	nT := len(geom.Lon)
	minLon := make([]float64, nT)
	maxLon := make([]float64, nT)
	minLat := make([]float64, nT)
	maxLat := make([]float64, nT)
	var latEdgeSum float64
	for ti := range nT {
		first := true
		for si := range geom.Lon[ti] {
			for di := range geom.Lon[ti][si] {
				lon, lat := geom.Lon[ti][si][di], geom.Lat[ti][si][di]
				if first {
					minLon[ti], maxLon[ti] = lon, lon
					minLat[ti], maxLat[ti] = lat, lat
					first = false
					continue
				}
				minLon[ti] = math.Min(minLon[ti], lon)
				maxLon[ti] = math.Max(maxLon[ti], lon)
				minLat[ti] = math.Min(minLat[ti], lat)
				maxLat[ti] = math.Max(maxLat[ti], lat)
			}
		}
		if first {
			return nil, fmt.Errorf("%w: timestep %d has no pierce points", ErrInvalidObservation, ti)
		}
		latEdgeSum += minLat[ti] + maxLat[ti]
	}
	latCenter := latEdgeSum / float64(2*nT)

	// Project the ground angular resolution to shell height.
	resRad := math.Atan(math.Tan(angResArcsec / 3600 * math.Pi / 180 * heightM / (EarthRadius + heightM)))
	resLon := resRad / math.Cos(latCenter)
	resLat := resRad

	npixLon := make([]int, nT)
	npixLat := make([]int, nT)
	maxPixLon, maxPixLat := 0, 0
	for ti := range nT {
		npixLon[ti] = int(math.Ceil((maxLon[ti] - minLon[ti]) / resLon))
		npixLat[ti] = int(math.Ceil((maxLat[ti] - minLat[ti]) / resLat))
		maxPixLon = max(maxPixLon, npixLon[ti])
		maxPixLat = max(maxPixLat, npixLat[ti])
	}
	// A raster needs at least two nodes per axis. Runs whose pierce
	// points huddle inside a single cell are padded up.
	if maxPixLon < 2 || maxPixLat < 2 {
		log.Warn(ctx, "pierce points span less than one grid cell, padding the raster",
			logging.Int("npix_lon", maxPixLon),
			logging.Int("npix_lat", maxPixLat),
		)
		maxPixLon = max(maxPixLon, 2)
		maxPixLat = max(maxPixLat, 2)
	}

	grid := &ComovingGrid{
		Lon:     make([][]float64, nT),
		Lat:     make([][]float64, nT),
		CellLon: make([]float64, nT),
		CellLat: make([]float64, nT),
		ResLon:  resLon,
		ResLat:  resLat,
	}
	for ti := range nT {
		// Pad the upper edge so this timestep fills the shared pixel count.
		maxLon[ti] += float64(maxPixLon-npixLon[ti]) * resLon
		maxLat[ti] += float64(maxPixLat-npixLat[ti]) * resLat
		grid.Lon[ti] = floats.Span(make([]float64, maxPixLon), minLon[ti], maxLon[ti])
		grid.Lat[ti] = floats.Span(make([]float64, maxPixLat), minLat[ti], maxLat[ti])
		grid.CellLon[ti] = (maxLon[ti] - minLon[ti]) / float64(maxPixLon)
		grid.CellLat[ti] = (maxLat[ti] - minLat[ti]) / float64(maxPixLat)
	}
	return grid, nil
}
