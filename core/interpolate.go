package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// GridInterpolator evaluates a bicubic Catmull-Rom surface through values
// sampled on a uniform rectangular grid. Axis 0 walks the rows of the backing
// matrix, axis 1 the columns; each axis has its own coordinate origin and
// spacing. Queries outside the grid clamp to the boundary.
type GridInterpolator struct {
	start0, step0 float64
	start1, step1 float64
	data          *mat.Dense
	rows, cols    int
}

// NewGridInterpolator builds an interpolator over data, whose element (i, j)
// carries the sample at coordinates (start0+i*step0, start1+j*step1).
func NewGridInterpolator(start0, step0, start1, step1 float64, data *mat.Dense) (*GridInterpolator, error) {
	if data == nil {
		return nil, fmt.Errorf("interpolation grid is required")
	}
	r, c := data.Dims()
	if r < 2 || c < 2 {
		return nil, fmt.Errorf("interpolation grid needs at least 2x2 samples, got %dx%d", r, c)
	}
	if step0 == 0 || step1 == 0 {
		return nil, fmt.Errorf("interpolation grid spacing must be nonzero")
	}
	return &GridInterpolator{
		start0: start0, step0: step0,
		start1: start1, step1: step1,
		data: data, rows: r, cols: c,
	}, nil
}

// At evaluates the surface at (u, v), u along axis 0 and v along axis 1.
func (g *GridInterpolator) At(u, v float64) float64 {
	return g.value((u-g.start0)/g.step0, (v-g.start1)/g.step1)
}

// EvalPairs evaluates the surface at paired coordinates, one output per
// (u[i], v[i]). The slices must have equal length.
func (g *GridInterpolator) EvalPairs(u, v []float64) []float64 {
	if len(u) != len(v) {
		panic("core: coordinate length mismatch")
	}
	out := make([]float64, len(u))
	for i := range u {
		out[i] = g.At(u[i], v[i])
	}
	return out
}

func (g *GridInterpolator) value(t0, t1 float64) float64 {
	i0, f0 := cellOf(t0, g.rows)
	i1, f1 := cellOf(t1, g.cols)

	jm1 := clampIndex(i1-1, g.cols)
	j0 := clampIndex(i1, g.cols)
	j1 := clampIndex(i1+1, g.cols)
	j2 := clampIndex(i1+2, g.cols)

	var rows [4]float64
	for k := 0; k < 4; k++ {
		r := clampIndex(i0-1+k, g.rows)
		rows[k] = catmullRom(g.data.At(r, jm1), g.data.At(r, j0), g.data.At(r, j1), g.data.At(r, j2), f1)
	}
	return catmullRom(rows[0], rows[1], rows[2], rows[3], f0)
}

// cellOf clamps a fractional grid coordinate into range and splits it into a
// base index and a fractional offset in [0, 1].
func cellOf(t float64, n int) (int, float64) {
	if t <= 0 {
		return 0, 0
	}
	if t >= float64(n-1) {
		return n - 2, 1
	}
	i := int(math.Floor(t))
	return i, t - float64(i)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func catmullRom(p0, p1, p2, p3, t float64) float64 {
	a := -p0 + 3*p1 - 3*p2 + p3
	b := 2*p0 - 5*p1 + 4*p2 - p3
	c := p2 - p0
	return 0.5 * (((a*t+b)*t+c)*t + 2*p1)
}
