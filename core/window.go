package core

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// WindowExtractor drives a RibbonSampler with the pixel coordinates of one or
// more rectangular output windows and reshapes each returned batch into one
// frame per window. All windows share shape, scale and rotation; only their
// origins differ. Coordinates are computed once at construction: window pixel
// (i, j) of the window at origin o maps to ribbon coordinates rotated by
// theta and scaled by pixelSize.
type WindowExtractor struct {
	sampler *RibbonSampler
	n0, n1  int
	count   int
}

// NewWindowExtractor builds an extractor over the given ribbon source. A nil
// or empty origin list means a single window at the origin.
func NewWindowExtractor(src *RibbonStitcher, shape [2]int, dx float64, origins [][2]float64, pixelSize, theta float64) (*WindowExtractor, error) {
	if shape[0] < 1 || shape[1] < 1 {
		return nil, fmt.Errorf("%w: window shape %dx%d is empty", ErrInvalidScreen, shape[0], shape[1])
	}
	if pixelSize <= 0 {
		return nil, fmt.Errorf("%w: window pixel size must be positive, got %g", ErrInvalidScreen, pixelSize)
	}
	if len(origins) == 0 {
		origins = [][2]float64{{0, 0}}
	}

	c := math.Cos(theta)
	s := math.Sin(theta)
	n0, n1 := shape[0], shape[1]
	x := make([]float64, 0, len(origins)*n0*n1)
	y := make([]float64, 0, len(origins)*n0*n1)
	for _, o := range origins {
		for i := 0; i < n0; i++ {
			xi := (o[0] + float64(i)) * pixelSize
			for j := 0; j < n1; j++ {
				yj := (o[1] + float64(j)) * pixelSize
				x = append(x, c*xi+s*yj)
				y = append(y, -s*xi+c*yj)
			}
		}
	}

	sampler, err := NewRibbonSampler(src, x, y, dx)
	if err != nil {
		return nil, err
	}
	return &WindowExtractor{
		sampler: sampler,
		n0:      n0,
		n1:      n1,
		count:   len(origins),
	}, nil
}

// Next returns the next frame for every window, advancing the slide.
func (w *WindowExtractor) Next() []*mat.Dense {
	batch := w.sampler.Next()
	size := w.n0 * w.n1
	frames := make([]*mat.Dense, w.count)
	for k := range frames {
		frames[k] = mat.NewDense(w.n0, w.n1, batch[k*size:(k+1)*size])
	}
	return frames
}
