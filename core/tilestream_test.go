package core

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func TestNewTileStream_RejectsBadConfig(t *testing.T) {
	psd := Spectrum{Kind: SpectrumVonKarman, R0: 2, L0: 4, Alpha: 11.0 / 3.0}.PSD()

	if _, err := NewTileStream(nil, 16, 16, 1, 1); err == nil {
		t.Fatalf("expected error for nil spectrum")
	}
	if _, err := NewTileStream(psd, 1, 16, 1, 1); err == nil {
		t.Fatalf("expected error for tiny tile shape")
	}
	if _, err := NewTileStream(psd, 16, 16, 0, 1); err == nil {
		t.Fatalf("expected error for zero pixel size")
	}
}

func TestTileStream_DeterministicUnderSeed(t *testing.T) {
	psd := Spectrum{Kind: SpectrumVonKarman, R0: 2, L0: 4, Alpha: 11.0 / 3.0}.PSD()

	a, err := NewTileStream(psd, 16, 16, 1, 42)
	if err != nil {
		t.Fatalf("NewTileStream: %v", err)
	}
	b, err := NewTileStream(psd, 16, 16, 1, 42)
	if err != nil {
		t.Fatalf("NewTileStream: %v", err)
	}
	for i := 0; i < 6; i++ {
		ta, tb := a.Next(), b.Next()
		if !mat.Equal(ta, tb) {
			t.Fatalf("tile %d differs between identically seeded streams", i)
		}
	}

	c, err := NewTileStream(psd, 16, 16, 1, 43)
	if err != nil {
		t.Fatalf("NewTileStream: %v", err)
	}
	if mat.Equal(a.Next(), c.Next()) {
		t.Fatalf("different seeds produced identical tiles")
	}
}

func TestTileStream_ZeroSeedDrawsFreshSeed(t *testing.T) {
	psd := Spectrum{Kind: SpectrumVonKarman, R0: 2, L0: 4, Alpha: 11.0 / 3.0}.PSD()

	a, err := NewTileStream(psd, 16, 16, 1, 0)
	if err != nil {
		t.Fatalf("NewTileStream: %v", err)
	}
	b, err := NewTileStream(psd, 16, 16, 1, 0)
	if err != nil {
		t.Fatalf("NewTileStream: %v", err)
	}
	if a.Seed() == 0 || b.Seed() == 0 {
		t.Fatalf("effective seed not drawn: %d, %d", a.Seed(), b.Seed())
	}
	if a.Seed() == b.Seed() {
		t.Fatalf("two unseeded streams drew the same seed %d", a.Seed())
	}
}

func TestTileStream_ConsecutiveTilesDiffer(t *testing.T) {
	psd := Spectrum{Kind: SpectrumVonKarman, R0: 2, L0: 4, Alpha: 11.0 / 3.0}.PSD()

	ts, err := NewTileStream(psd, 16, 16, 1, 7)
	if err != nil {
		t.Fatalf("NewTileStream: %v", err)
	}
	// Real and imaginary parts of one transform, then a fresh transform.
	t0, t1, t2 := ts.Next(), ts.Next(), ts.Next()
	if mat.Equal(t0, t1) || mat.Equal(t1, t2) || mat.Equal(t0, t2) {
		t.Fatalf("expected three distinct tiles")
	}
}

func TestTileStream_VarianceMatchesIntegratedSpectrum(t *testing.T) {
	psd := Spectrum{Kind: SpectrumVonKarman, R0: 2, L0: 4, Alpha: 11.0 / 3.0}.PSD()

	ts, err := NewTileStream(psd, 32, 32, 1, 12345)
	if err != nil {
		t.Fatalf("NewTileStream: %v", err)
	}

	const tiles = 100
	pool := make([]float64, 0, tiles*32*32)
	for i := 0; i < tiles; i++ {
		pool = append(pool, ts.Next().RawMatrix().Data...)
	}

	got := stat.Variance(pool, nil)
	want := ts.integratedSpectrum()
	if rel := math.Abs(got-want) / want; rel > 0.10 {
		t.Fatalf("pooled variance %v vs expected %v (rel error %.3f)", got, want, rel)
	}
}

func TestFftFreqs_MatchesStandardOrdering(t *testing.T) {
	got := fftFreqs(4, 1)
	want := []float64{0, 0.25, -0.5, -0.25}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-15 {
			t.Fatalf("fftFreqs(4,1) = %v, want %v", got, want)
		}
	}

	got = fftFreqs(5, 2)
	want = []float64{0, 0.1, 0.2, -0.2, -0.1}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-15 {
			t.Fatalf("fftFreqs(5,2) = %v, want %v", got, want)
		}
	}
}
