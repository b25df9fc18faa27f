package core

import (
	"math"
	"testing"
)

func TestSpectrumValidate_RejectsBadParameters(t *testing.T) {
	good := Spectrum{Kind: SpectrumVonKarman, R0: 10, L0: 1000, Alpha: 11.0 / 3.0}
	if err := good.Validate(); err != nil {
		t.Fatalf("valid spectrum rejected: %v", err)
	}

	cases := []Spectrum{
		{Kind: SpectrumVonKarman, R0: 0, L0: 1000, Alpha: 11.0 / 3.0},
		{Kind: SpectrumVonKarman, R0: 10, L0: -1, Alpha: 11.0 / 3.0},
		{Kind: SpectrumVonKarman, R0: 10, L0: 1000, Alpha: 2},
		{Kind: SpectrumGeneralizedVonKarman, R0: 10, L0: 1000, Alpha: 4},
	}
	for i, c := range cases {
		if err := c.Validate(); err == nil {
			t.Errorf("case %d: expected validation error for %+v", i, c)
		}
	}
}

func TestSpectrumPSD_FiniteAtZeroAndNonIncreasing(t *testing.T) {
	for _, kind := range []SpectrumKind{SpectrumVonKarman, SpectrumGeneralizedVonKarman} {
		psd := Spectrum{Kind: kind, R0: 10, L0: 1000, Alpha: 11.0 / 3.0}.PSD()

		at0 := psd(0)
		if math.IsInf(at0, 0) || math.IsNaN(at0) || at0 <= 0 {
			t.Fatalf("kind %d: psd(0) = %v, want finite positive", kind, at0)
		}

		prev := at0
		for f := 1e-4; f <= 0.5; f *= 1.3 {
			v := psd(f)
			if v < 0 || math.IsNaN(v) {
				t.Fatalf("kind %d: psd(%v) = %v", kind, f, v)
			}
			if v > prev {
				t.Fatalf("kind %d: psd not non-increasing at f=%v: %v > %v", kind, f, v, prev)
			}
			prev = v
		}
	}
}

func TestGeneralizedNorm_NearKolmogorovConstant(t *testing.T) {
	// The Gamma-function normalization should land close to the classic
	// 0.0229 at the Kolmogorov exponent.
	got := generalizedNorm(11.0 / 3.0)
	if math.Abs(got-0.02218) > 3e-4 {
		t.Fatalf("generalizedNorm(11/3) = %v, want about 0.0222", got)
	}
}

func TestSplitSpectrum_ExactSum(t *testing.T) {
	psd := Spectrum{Kind: SpectrumVonKarman, R0: 10, L0: 1000, Alpha: 11.0 / 3.0}.PSD()
	const f0 = 1.0 / 32.0
	woofer, tweeter := SplitSpectrum(psd, f0)

	for f := 0.0; f <= 0.5; f += 0.5 / 4096 {
		want := psd(f)
		got := woofer(f) + tweeter(f)
		if math.Abs(got-want) > 1e-12*math.Max(1, want) {
			t.Fatalf("sum mismatch at f=%v: woofer+tweeter=%v, spectrum=%v", f, got, want)
		}
		if woofer(f) < 0 || tweeter(f) < 0 {
			t.Fatalf("negative band at f=%v: woofer=%v tweeter=%v", f, woofer(f), tweeter(f))
		}
	}
}

func TestSplitSpectrum_WooferVanishesAboveCrossover(t *testing.T) {
	psd := Spectrum{Kind: SpectrumVonKarman, R0: 10, L0: 1000, Alpha: 11.0 / 3.0}.PSD()
	const f0 = 1.0 / 32.0
	woofer, _ := SplitSpectrum(psd, f0)

	for f := f0; f <= 0.5; f += f0 / 7 {
		if got := woofer(f); got != 0 {
			t.Fatalf("woofer(%v) = %v, want 0 above crossover", f, got)
		}
	}
}

func TestSplitSpectrum_SmoothAtCrossover(t *testing.T) {
	psd := Spectrum{Kind: SpectrumVonKarman, R0: 10, L0: 1000, Alpha: 11.0 / 3.0}.PSD()
	const f0 = 1.0 / 32.0
	_, tweeter := SplitSpectrum(psd, f0)

	// Value continuity.
	left := tweeter(f0 * (1 - 1e-9))
	right := tweeter(f0)
	if math.Abs(left-right) > 1e-9*right {
		t.Fatalf("tweeter discontinuous at f0: %v vs %v", left, right)
	}

	// First-derivative continuity, estimated by one-sided differences.
	const d = 1e-5
	slopeLeft := (tweeter(f0) - tweeter(f0*(1-d))) / (f0 * d)
	slopeRight := (tweeter(f0*(1+d)) - tweeter(f0)) / (f0 * d)
	if math.Abs(slopeLeft-slopeRight) > 0.02*math.Abs(slopeRight) {
		t.Fatalf("tweeter slope jumps at f0: %v vs %v", slopeLeft, slopeRight)
	}
}
