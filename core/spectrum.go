package core

import (
	"fmt"
	"math"
)

// SpectrumFunc evaluates a power spectral density at a scalar spatial
// frequency in cycles per pixel. Implementations must be finite and
// non-negative for all f >= 0.
type SpectrumFunc func(f float64) float64

// SpectrumKind selects the analytic form of the turbulence spectrum.
type SpectrumKind int

const (
	// SpectrumVonKarman is the closed-form Von Karman law with the classic
	// 0.0229 normalization.
	SpectrumVonKarman SpectrumKind = iota
	// SpectrumGeneralizedVonKarman renormalizes with a Gamma-function
	// expression so r0 keeps a fixed physical meaning for any exponent.
	SpectrumGeneralizedVonKarman
)

// Spectrum describes a turbulence power spectrum in pixel units: R0 and L0
// are lengths in pixels, Alpha is the power-law exponent (11/3 for
// Kolmogorov turbulence).
type Spectrum struct {
	Kind  SpectrumKind
	R0    float64
	L0    float64
	Alpha float64
}

const vonKarmanNorm = 0.0229

// Validate reports whether the parameters describe a well-defined spectrum.
func (s Spectrum) Validate() error {
	if s.R0 <= 0 {
		return fmt.Errorf("%w: r0 must be positive, got %g", ErrInvalidSpectrum, s.R0)
	}
	if s.L0 <= 0 {
		return fmt.Errorf("%w: outer scale L0 must be positive, got %g", ErrInvalidSpectrum, s.L0)
	}
	if s.Alpha <= 2 {
		return fmt.Errorf("%w: exponent alpha must exceed 2, got %g", ErrInvalidSpectrum, s.Alpha)
	}
	if s.Kind == SpectrumGeneralizedVonKarman && s.Alpha >= 4 {
		return fmt.Errorf("%w: generalized normalization requires alpha < 4, got %g", ErrInvalidSpectrum, s.Alpha)
	}
	return nil
}

// PSD returns the evaluation function for this spectrum. Call Validate first;
// PSD assumes the parameters are sane.
func (s Spectrum) PSD() SpectrumFunc {
	norm := vonKarmanNorm
	if s.Kind == SpectrumGeneralizedVonKarman {
		norm = generalizedNorm(s.Alpha)
	}
	scale := norm * math.Pow(s.R0, 2-s.Alpha)
	il0sq := 1 / (s.L0 * s.L0)
	halfAlpha := s.Alpha / 2
	return func(f float64) float64 {
		return scale * math.Pow(f*f+il0sq, -halfAlpha)
	}
}

// generalizedNorm evaluates the exponent-dependent normalization constant.
// At beta = 11/3 it reproduces the Kolmogorov constant to within a few
// percent.
func generalizedNorm(beta float64) float64 {
	g1 := math.Gamma(beta/2 + 1)
	num := math.Pow(2, beta-2) * g1 * g1 * math.Gamma(beta/2+2) * math.Gamma(beta/2) * math.Sin(math.Pi*(beta/2-1))
	den := math.Pow(math.Pi, beta) * math.Gamma(beta+1)
	return num / den
}

const splitterEps = 1e-6

// SplitSpectrum decomposes a spectrum at the crossover frequency f0 into a
// woofer band that vanishes above f0 and a tweeter band carrying everything
// else. The halves sum to the original exactly; the tweeter matches the
// spectrum in value and first derivative at f0, so neither band has a kink
// at the crossover. Below f0 the tweeter is capped by a raised-cosine taper,
// clamped so it never exceeds the true spectrum.
func SplitSpectrum(psd SpectrumFunc, f0 float64) (woofer, tweeter SpectrumFunc) {
	s0 := psd(f0)
	fplus := f0 * (1 + splitterEps)
	fminus := f0 * (1 - splitterEps)
	grad := (psd(fplus) - psd(fminus)) / (fplus - fminus)

	tweeter = func(f float64) float64 {
		if f >= f0 {
			return psd(f)
		}
		taper := s0 - grad*2*f0/math.Pi*math.Cos(math.Pi*f/(2*f0))
		return math.Min(taper, psd(f))
	}
	woofer = func(f float64) float64 {
		return psd(f) - tweeter(f)
	}
	return woofer, tweeter
}
