package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// RibbonStitcher cross-fades consecutive tiles into half-height segments that
// join without seams, removing the periodic wrap of raw FFT tiles. Segment k
// blends the bottom half of input tile k with the top half of tile k+1 using
// complementary cosine and sine weights across the rows.
type RibbonStitcher struct {
	src  *TileStream
	prev *mat.Dense
	half int
	cols int
	cosw []float64
	sinw []float64
}

// NewRibbonStitcher wraps a tile stream whose tiles have even height. One
// tile is consumed immediately to prime the blend.
func NewRibbonStitcher(src *TileStream) (*RibbonStitcher, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: tile stream is required", ErrInvalidScreen)
	}
	rows, cols := src.Dims()
	if rows%2 != 0 {
		return nil, fmt.Errorf("%w: stitching needs an even tile height, got %d", ErrInvalidScreen, rows)
	}
	half := rows / 2
	cosw := make([]float64, half)
	sinw := make([]float64, half)
	for i := 0; i < half; i++ {
		t := float64(i) * math.Pi / 2 / float64(half)
		cosw[i] = math.Cos(t)
		sinw[i] = math.Sin(t)
	}
	return &RibbonStitcher{
		src:  src,
		prev: src.Next(),
		half: half,
		cols: cols,
		cosw: cosw,
		sinw: sinw,
	}, nil
}

// Dims returns the shape of emitted segments.
func (st *RibbonStitcher) Dims() (rows, cols int) { return st.half, st.cols }

// Next returns the next half-height ribbon segment.
func (st *RibbonStitcher) Next() *mat.Dense {
	cur := st.src.Next()
	out := mat.NewDense(st.half, st.cols, nil)
	for i := 0; i < st.half; i++ {
		cw, sw := st.cosw[i], st.sinw[i]
		for j := 0; j < st.cols; j++ {
			out.Set(i, j, st.prev.At(st.half+i, j)*cw+cur.At(i, j)*sw)
		}
	}
	st.prev = cur
	return out
}

// RibbonSampler answers repeated interpolation queries against an endless
// ribbon of stitched segments. Per call it evaluates the fixed (x, y) query
// set at the current slide offset, then advances the offset by dx. Only the
// segments covering the current query window are kept; once the window has
// fully passed a segment it is dropped and a fresh one appended, so memory
// stays bounded for arbitrarily long runs.
type RibbonSampler struct {
	src *RibbonStitcher

	x, y []float64
	dx   float64

	xmin   float64
	xtile  int
	cols   int
	buffer []*mat.Dense
	interp *GridInterpolator
	offset float64
}

// NewRibbonSampler builds a sampler for the given query coordinates, in
// ribbon pixel units. x runs along the ribbon (slide) axis, y across it. The
// slide increment dx must not exceed one segment height, and the y extent of
// the queries must fit within the ribbon width.
func NewRibbonSampler(src *RibbonStitcher, x, y []float64, dx float64) (*RibbonSampler, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: ribbon source is required", ErrInvalidScreen)
	}
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("%w: query coordinates must be non-empty and paired, got %d x and %d y", ErrInvalidScreen, len(x), len(y))
	}
	if dx < 0 {
		return nil, fmt.Errorf("%w: slide increment must be non-negative, got %g", ErrInvalidScreen, dx)
	}

	xtile, cols := src.Dims()
	if float64(xtile) < dx {
		return nil, fmt.Errorf("%w: slide increment %g exceeds segment height %d", ErrInvalidScreen, dx, xtile)
	}

	xmin, xmax := minMax(x)
	ymin, ymax := minMax(y)
	if ymax-ymin > float64(cols-1) {
		return nil, fmt.Errorf("%w: query y extent %g exceeds ribbon width %d", ErrInvalidScreen, ymax-ymin, cols)
	}

	yshift := make([]float64, len(y))
	for i, v := range y {
		yshift[i] = v - ymin
	}

	numTile := int(math.Ceil((xmax - xmin + dx) / float64(xtile)))
	buffer := make([]*mat.Dense, 0, numTile+1)
	for i := 0; i <= numTile; i++ {
		buffer = append(buffer, src.Next())
	}

	rs := &RibbonSampler{
		src:    src,
		x:      append([]float64(nil), x...),
		y:      yshift,
		dx:     dx,
		xmin:   xmin,
		xtile:  xtile,
		cols:   cols,
		buffer: buffer,
		offset: -xmin,
	}
	rs.rebuild()
	return rs, nil
}

// Next evaluates the query set at the current offset and slides the window.
func (rs *RibbonSampler) Next() []float64 {
	out := make([]float64, len(rs.x))
	for i := range rs.x {
		out[i] = rs.interp.At(rs.x[i]+rs.offset, rs.y[i])
	}
	rs.offset += rs.dx
	if rs.offset+rs.xmin > float64(rs.xtile) {
		rs.buffer = append(rs.buffer[:0], rs.buffer[1:]...)
		rs.buffer = append(rs.buffer, rs.src.Next())
		rs.rebuild()
		rs.offset -= float64(rs.xtile)
	}
	return out
}

// rebuild concatenates the buffered segments along the ribbon axis and
// refreshes the interpolator over them. Buffer shape is fixed after
// construction, so this cannot fail.
func (rs *RibbonSampler) rebuild() {
	rows := len(rs.buffer) * rs.xtile
	cat := mat.NewDense(rows, rs.cols, nil)
	for k, tile := range rs.buffer {
		for i := 0; i < rs.xtile; i++ {
			cat.SetRow(k*rs.xtile+i, tile.RawRowView(i))
		}
	}
	rs.interp = &GridInterpolator{
		step0: 1, step1: 1,
		data: cat, rows: rows, cols: rs.cols,
	}
}

func minMax(v []float64) (lo, hi float64) {
	lo, hi = v[0], v[0]
	for _, x := range v[1:] {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return lo, hi
}
