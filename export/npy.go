// Package export writes raw simulation products to NumPy .npy files for
// offline diagnostics, one directory per run. The layout mirrors what
// downstream plotting scripts expect: a numbered screen raster per timestep
// plus the run geometry (time axis, grid axes, pierce coordinates and the
// grid resolution).
package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"

	"github.com/signalsfoundry/ionosphere-simulator/core"
)

// NpyDir is an export sink backed by a directory of .npy files. It
// implements core.ExportSink.
type NpyDir struct {
	dir string
}

// NewNpyDir creates the directory (and any missing parents) and returns a
// sink writing into it. Files from a previous run in the same directory are
// overwritten as the run progresses.
func NewNpyDir(dir string) (*NpyDir, error) {
	if dir == "" {
		return nil, fmt.Errorf("export: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: create %s: %w", dir, err)
	}
	return &NpyDir{dir: dir}, nil
}

// Dir returns the directory the sink writes into.
func (s *NpyDir) Dir() string { return s.dir }

// WriteFrame stores one timestep's screen raster as screen_NNNN.npy.
func (s *NpyDir) WriteFrame(step int, screen *mat.Dense) error {
	return s.write(fmt.Sprintf("screen_%04d.npy", step), screen)
}

// WriteGeometry stores the run geometry: the time axis, the comoving grid
// axes (one row per timestep), the pierce longitudes and latitudes flattened
// to (time, station*direction) and the grid resolution pair.
func (s *NpyDir) WriteGeometry(times []float64, grid *core.ComovingGrid, geom *core.PierceGeometry) error {
	if err := s.write("times.npy", times); err != nil {
		return err
	}
	if err := s.write("grid_lon.npy", rowsToDense(grid.Lon)); err != nil {
		return err
	}
	if err := s.write("grid_lat.npy", rowsToDense(grid.Lat)); err != nil {
		return err
	}
	if err := s.write("pp_lon.npy", flattenPierce(geom.Lon)); err != nil {
		return err
	}
	if err := s.write("pp_lat.npy", flattenPierce(geom.Lat)); err != nil {
		return err
	}
	return s.write("resolution.npy", []float64{grid.ResLon, grid.ResLat})
}

// Close is a no-op; every write lands on disk before it returns.
func (s *NpyDir) Close() error { return nil }

func (s *NpyDir) write(name string, val any) error {
	path := filepath.Join(s.dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("export: create %s: %w", path, err)
	}
	if err := npyio.Write(f, val); err != nil {
		f.Close()
		return fmt.Errorf("export: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("export: close %s: %w", path, err)
	}
	return nil
}

// rowsToDense stacks equal-length rows into one matrix.
func rowsToDense(rows [][]float64) *mat.Dense {
	if len(rows) == 0 {
		return mat.NewDense(1, 1, nil)
	}
	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m
}

// flattenPierce reshapes [time][station][direction] values into a
// (time, station*direction) matrix, directions fastest.
func flattenPierce(vals [][][]float64) *mat.Dense {
	if len(vals) == 0 || len(vals[0]) == 0 {
		return mat.NewDense(1, 1, nil)
	}
	nS, nD := len(vals[0]), len(vals[0][0])
	m := mat.NewDense(len(vals), nS*nD, nil)
	for ti := range vals {
		for si := range vals[ti] {
			for di, v := range vals[ti][si] {
				m.Set(ti, si*nD+di, v)
			}
		}
	}
	return m
}
