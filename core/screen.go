package core

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ScreenConfig parameterizes a dual-band turbulence screen stream. Lengths
// are in tweeter pixel units; Dx is the frozen-turbulence slide per iteration
// in the same units. Zero values of PixelSize, NFFTWoofer, NFFTTweeter,
// FrequencyOverlap and FractionalSupport select the defaults (1, 256, 256, 4
// and 1). A zero Seed draws a fresh random seed at construction.
type ScreenConfig struct {
	Spectrum    Spectrum
	WindowShape [2]int
	Dx          float64
	Origins     [][2]float64
	PixelSize   float64
	Theta       float64

	NFFTWoofer        int
	NFFTTweeter       int
	FrequencyOverlap  float64
	FractionalSupport float64

	Seed int64
}

func (c *ScreenConfig) applyDefaults() {
	if c.PixelSize == 0 {
		c.PixelSize = 1
	}
	if c.NFFTWoofer == 0 {
		c.NFFTWoofer = 256
	}
	if c.NFFTTweeter == 0 {
		c.NFFTTweeter = 256
	}
	if c.FrequencyOverlap == 0 {
		c.FrequencyOverlap = 4
	}
	if c.FractionalSupport == 0 {
		c.FractionalSupport = 1
	}
	if len(c.Origins) == 0 {
		c.Origins = [][2]float64{{0, 0}}
	}
}

func (c *ScreenConfig) validate() error {
	if err := c.Spectrum.Validate(); err != nil {
		return err
	}
	if c.WindowShape[0] < 1 || c.WindowShape[1] < 1 {
		return fmt.Errorf("%w: window shape %dx%d is empty", ErrInvalidScreen, c.WindowShape[0], c.WindowShape[1])
	}
	if c.Dx < 0 {
		return fmt.Errorf("%w: slide increment must be non-negative, got %g", ErrInvalidScreen, c.Dx)
	}
	if c.PixelSize <= 0 {
		return fmt.Errorf("%w: pixel size must be positive, got %g", ErrInvalidScreen, c.PixelSize)
	}
	if c.NFFTWoofer < 2 || c.NFFTWoofer%2 != 0 {
		return fmt.Errorf("%w: woofer FFT size must be even and at least 2, got %d", ErrInvalidScreen, c.NFFTWoofer)
	}
	if c.NFFTTweeter < 2 || c.NFFTTweeter%2 != 0 {
		return fmt.Errorf("%w: tweeter FFT size must be even and at least 2, got %d", ErrInvalidScreen, c.NFFTTweeter)
	}
	if c.FrequencyOverlap <= 0 {
		return fmt.Errorf("%w: frequency overlap must be positive, got %g", ErrInvalidScreen, c.FrequencyOverlap)
	}
	if c.FractionalSupport <= 0 || c.FractionalSupport > 1 {
		return fmt.Errorf("%w: fractional support must be in (0, 1], got %g", ErrInvalidScreen, c.FractionalSupport)
	}
	return nil
}

// ScreenGenerator is the public turbulence screen stream: an infinite
// sequence of frames combining a coarse low-frequency woofer band with a fine
// high-frequency tweeter band. The woofer covers all windows with one
// extractor at a coarse pixel scale; each window gets its own tweeter
// extractor, all riding an identically seeded tweeter ribbon, so windows far
// apart stay mutually consistent. Single consumer; not restartable.
type ScreenGenerator struct {
	woofer   *WindowExtractor
	tweeters []*WindowExtractor
	streams  []*TileStream
	n0, n1   int
	seed     int64
}

// NewScreenGenerator validates the config and assembles the two band
// pipelines.
func NewScreenGenerator(cfg ScreenConfig) (*ScreenGenerator, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = randomSeed()
	}

	wooferPixel := float64(cfg.NFFTTweeter) / (2 * cfg.FrequencyOverlap)
	f0 := cfg.FractionalSupport / (2 * wooferPixel)
	wooferPSD, tweeterPSD := SplitSpectrum(cfg.Spectrum.PSD(), f0)

	wooferStream, err := NewTileStream(wooferPSD, cfg.NFFTWoofer, cfg.NFFTWoofer, wooferPixel, seed)
	if err != nil {
		return nil, fmt.Errorf("woofer band: %w", err)
	}
	wooferStitch, err := NewRibbonStitcher(wooferStream)
	if err != nil {
		return nil, fmt.Errorf("woofer band: %w", err)
	}
	woofer, err := NewWindowExtractor(wooferStitch, cfg.WindowShape, cfg.Dx/wooferPixel, cfg.Origins, cfg.PixelSize/wooferPixel, cfg.Theta)
	if err != nil {
		return nil, fmt.Errorf("woofer band: %w", err)
	}

	streams := []*TileStream{wooferStream}
	tweeters := make([]*WindowExtractor, 0, len(cfg.Origins))
	for _, origin := range cfg.Origins {
		stream, err := NewTileStream(tweeterPSD, cfg.NFFTTweeter, cfg.NFFTTweeter, cfg.PixelSize, seed+1)
		if err != nil {
			return nil, fmt.Errorf("tweeter band: %w", err)
		}
		stitch, err := NewRibbonStitcher(stream)
		if err != nil {
			return nil, fmt.Errorf("tweeter band: %w", err)
		}
		tweeter, err := NewWindowExtractor(stitch, cfg.WindowShape, cfg.Dx, [][2]float64{origin}, cfg.PixelSize, cfg.Theta)
		if err != nil {
			return nil, fmt.Errorf("tweeter band: %w", err)
		}
		streams = append(streams, stream)
		tweeters = append(tweeters, tweeter)
	}

	return &ScreenGenerator{
		woofer:   woofer,
		tweeters: tweeters,
		streams:  streams,
		n0:       cfg.WindowShape[0],
		n1:       cfg.WindowShape[1],
		seed:     seed,
	}, nil
}

// Seed returns the effective seed; pass it back in to reproduce the run.
func (g *ScreenGenerator) Seed() int64 { return g.seed }

// Windows returns the number of frames emitted per iteration.
func (g *ScreenGenerator) Windows() int { return len(g.tweeters) }

// TilesConsumed returns how many noise tiles both bands have drawn since
// construction.
func (g *ScreenGenerator) TilesConsumed() int64 {
	var n int64
	for _, s := range g.streams {
		n += s.Tiles()
	}
	return n
}

// Next advances both bands one step and returns their sum, one frame per
// window.
func (g *ScreenGenerator) Next() []*mat.Dense {
	woofer := g.woofer.Next()
	out := make([]*mat.Dense, len(g.tweeters))
	for k := range g.tweeters {
		sum := mat.NewDense(g.n0, g.n1, nil)
		sum.Add(woofer[k], g.tweeters[k].Next()[0])
		out[k] = sum
	}
	return out
}
