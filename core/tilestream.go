package core

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/mat"
)

// TileStream yields an endless sequence of real-valued 2D noise tiles whose
// spatial power spectrum follows the configured density. Each complex FFT of
// filtered white noise produces two statistically independent tiles, so the
// transform runs on every second call. A TileStream is single-consumer and
// not restartable: the only way to reproduce its output is to rebuild it with
// the same nonzero seed.
type TileStream struct {
	rows, cols int
	filter     []float64
	rng        *rand.Rand
	seed       int64

	rowFFT *fourier.CmplxFFT
	colFFT *fourier.CmplxFFT
	buf    []complex128
	col    []complex128

	pending *mat.Dense
	count   int64
}

// NewTileStream builds a tile generator for the given spectrum. Tiles are
// rows x cols; pixelSize sets the physical scale of the frequency grid the
// filter is evaluated on. A zero seed is replaced by a freshly drawn random
// seed at construction.
func NewTileStream(psd SpectrumFunc, rows, cols int, pixelSize float64, seed int64) (*TileStream, error) {
	if psd == nil {
		return nil, fmt.Errorf("%w: spectrum function is required", ErrInvalidScreen)
	}
	if rows < 2 || cols < 2 {
		return nil, fmt.Errorf("%w: tile shape %dx%d is too small", ErrInvalidScreen, rows, cols)
	}
	if pixelSize <= 0 {
		return nil, fmt.Errorf("%w: pixel size must be positive, got %g", ErrInvalidScreen, pixelSize)
	}
	if seed == 0 {
		seed = randomSeed()
	}

	fRow := fftFreqs(rows, pixelSize)
	fCol := fftFreqs(cols, pixelSize)
	// Fundamental frequencies give the spectral bin area folded into the
	// filter so that tile variance matches the integrated spectrum.
	f01 := 1 / (float64(rows) * pixelSize)
	f10 := 1 / (float64(cols) * pixelSize)

	filter := make([]float64, rows*cols)
	for r, fr := range fRow {
		for c, fc := range fCol {
			f := math.Hypot(fr, fc)
			filter[r*cols+c] = math.Sqrt(psd(f) * f01 * f10)
		}
	}

	return &TileStream{
		rows:   rows,
		cols:   cols,
		filter: filter,
		rng:    rand.New(rand.NewSource(seed)),
		seed:   seed,
		rowFFT: fourier.NewCmplxFFT(cols),
		colFFT: fourier.NewCmplxFFT(rows),
		buf:    make([]complex128, rows*cols),
		col:    make([]complex128, rows),
	}, nil
}

// Seed returns the effective seed, useful for reproducing an unseeded run.
func (ts *TileStream) Seed() int64 { return ts.seed }

// Dims returns the tile shape.
func (ts *TileStream) Dims() (rows, cols int) { return ts.rows, ts.cols }

// Tiles returns how many tiles have been handed out so far.
func (ts *TileStream) Tiles() int64 { return ts.count }

// Next returns the next tile. The returned matrix is owned by the caller.
func (ts *TileStream) Next() *mat.Dense {
	ts.count++
	if ts.pending != nil {
		tile := ts.pending
		ts.pending = nil
		return tile
	}

	for i, f := range ts.filter {
		ts.buf[i] = complex(f*ts.rng.NormFloat64(), f*ts.rng.NormFloat64())
	}
	ts.fft2()

	re := mat.NewDense(ts.rows, ts.cols, nil)
	im := mat.NewDense(ts.rows, ts.cols, nil)
	for r := 0; r < ts.rows; r++ {
		for c := 0; c < ts.cols; c++ {
			v := ts.buf[r*ts.cols+c]
			re.Set(r, c, real(v))
			im.Set(r, c, imag(v))
		}
	}
	ts.pending = im
	return re
}

// fft2 applies an unnormalized forward 2D transform to buf in place, rows
// first, then columns.
func (ts *TileStream) fft2() {
	for r := 0; r < ts.rows; r++ {
		row := ts.buf[r*ts.cols : (r+1)*ts.cols]
		ts.rowFFT.Coefficients(row, row)
	}
	for c := 0; c < ts.cols; c++ {
		for r := 0; r < ts.rows; r++ {
			ts.col[r] = ts.buf[r*ts.cols+c]
		}
		ts.colFFT.Coefficients(ts.col, ts.col)
		for r := 0; r < ts.rows; r++ {
			ts.buf[r*ts.cols+c] = ts.col[r]
		}
	}
}

// fftFreqs returns the discrete sample frequencies for n samples spaced d
// apart, in standard FFT order: zero first, positive frequencies ascending,
// then negative frequencies.
func fftFreqs(n int, d float64) []float64 {
	out := make([]float64, n)
	scale := 1 / (float64(n) * d)
	half := (n - 1) / 2
	for i := 0; i <= half; i++ {
		out[i] = float64(i) * scale
	}
	for i := half + 1; i < n; i++ {
		out[i] = float64(i-n) * scale
	}
	return out
}

// integratedSpectrum sums the squared synthesis filter, which equals the
// expected per-pixel variance of the generated tiles.
func (ts *TileStream) integratedSpectrum() float64 {
	var sum float64
	for _, f := range ts.filter {
		sum += f * f
	}
	return sum
}

func randomSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	v := int64(binary.LittleEndian.Uint64(b[:]) >> 1)
	if v == 0 {
		v = 1
	}
	return v
}
