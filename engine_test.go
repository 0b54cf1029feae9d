package ld

import (
	"errors"
	"math"
	"testing"
)

func runEngine(t *testing.T, src AlleleSource, cfg Config) *Results {
	t.Helper()

	e, err := New(src, cfg)
	if err != nil {
		t.Fatal(err)
	}
	res, err := e.Run(nil)
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func TestEngineMatchesPairLD(t *testing.T) {
	src := randomSource(1, 12, 60)

	for _, treatment := range []HetTreatment{Haplotype, Homozygous} {
		cfg := DefaultConfig()
		cfg.Design = AllPairs{}
		cfg.HetTreatment = treatment
		cfg.MinTaxaForEstimate = 10

		res := runEngine(t, src, cfg)
		if res.Len() != 66 {
			t.Errorf("%s: Got %d pairs, expected 66", treatment, res.Len())
		}

		for r := 1; r < src.NumSites(); r++ {
			for c := 0; c < r; c++ {
				want, err := PairLD(src, r, c, treatment, cfg.MinTaxaForEstimate, cfg.MinMinorCount)
				if err != nil {
					t.Fatal(err)
				}
				got, ok := res.Lookup(c, r)
				if !ok {
					t.Fatalf("%s: pair (%d,%d) missing", treatment, r, c)
				}
				if got.N != want.N || !approx(got.RSqr, want.RSqr, 0) || !approx(got.DPrime, want.DPrime, 0) || !approx(got.P, want.P, 0) {
					t.Errorf("%s (%d,%d): Got %+v, expected %+v", treatment, r, c, got, want)
				}
				if !approx(res.RSqr(r, c), res.RSqr(c, r), 0) {
					t.Errorf("%s: r2 lookup is not symmetric for (%d,%d)", treatment, r, c)
				}
			}
		}
	}
}

func TestPairLDSymmetric(t *testing.T) {
	src := randomSource(2, 6, 80)

	for a := 0; a < src.NumSites(); a++ {
		for b := 0; b < src.NumSites(); b++ {
			if a == b {
				continue
			}
			ab, err := PairLD(src, a, b, Haplotype, 10, 2)
			if err != nil {
				t.Fatal(err)
			}
			ba, err := PairLD(src, b, a, Haplotype, 10, 2)
			if err != nil {
				t.Fatal(err)
			}
			if ab.N != ba.N || !approx(ab.RSqr, ba.RSqr, 1e-12) || !approx(ab.DPrime, ba.DPrime, 1e-12) || !approx(ab.P, ba.P, 1e-9) {
				t.Errorf("(%d,%d): Got %+v and %+v", a, b, ab, ba)
			}
		}
	}

	if _, err := PairLD(src, 0, 6, Haplotype, 10, 2); !errors.Is(err, ErrSiteOutOfRange) {
		t.Errorf("Got %v, expected ErrSiteOutOfRange", err)
	}
	if _, err := PairLD(src, 0, 1, Genotype, 10, 2); !errors.Is(err, ErrGenotypeTreatment) {
		t.Errorf("Got %v, expected ErrGenotypeTreatment", err)
	}
}

func TestHomozygousTreatment(t *testing.T) {
	// The heterozygous taxa drop out under Homozygous.
	codes := [][]int{
		{homMajor, homMajor, homMinor, homMinor, het, het},
		{homMajor, homMajor, homMinor, homMinor, het, homMajor},
	}
	src := newTestSource(codes)

	hap, err := PairLD(src, 1, 0, Haplotype, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	hom, err := PairLD(src, 1, 0, Homozygous, 1, 1)
	if err != nil {
		t.Fatal(err)
	}

	// Haplotype: taxon 4 is in all four cells, taxon 5 in two.
	if hap.N != 10 {
		t.Errorf("Got N %d under Haplotype, expected 10", hap.N)
	}
	if hom.N != 4 || !approx(hom.RSqr, 1, 1e-12) || !approx(hom.DPrime, 1, 1e-12) {
		t.Errorf("Got %+v under Homozygous, expected N=4 and complete LD", hom)
	}
}

func TestAccumulativeConservesTests(t *testing.T) {
	src := randomSource(3, 15, 50)

	designs := []Design{AllPairs{}, SlidingWindow{Width: 3}, SiteVsAll{Target: 7}, SiteList{Sites: []int{0, 4, 14}}}
	for _, d := range designs {
		cfg := DefaultConfig()
		cfg.Design = d
		cfg.Accumulative = true
		cfg.Bins = 10
		cfg.MinTaxaForEstimate = 10

		res := runEngine(t, src, cfg)
		bins := res.Bins()
		if len(bins) != 11 {
			t.Fatalf("%s: Got %d bins, expected 11", d, len(bins))
		}

		sum := 0
		for _, n := range bins {
			sum += n
		}
		if uint64(sum) != res.Enumerator().TotalTests() {
			t.Errorf("%s: Got %d counted pairs, expected %d", d, sum, res.Enumerator().TotalTests())
		}

		// The same pass in per-pair mode fills the same bins.
		cfg.Accumulative = false
		pairs := runEngine(t, src, cfg)
		expected := make([]int, 11)
		pairs.Each(func(p PairResult) bool {
			expected[res.binFor(p.RSqr)]++
			return true
		})
		for i := range expected {
			if expected[i] != bins[i] {
				t.Errorf("%s: bin %d: Got %d, expected %d", d, i, bins[i], expected[i])
			}
		}

		if _, ok := res.Lookup(1, 0); ok {
			t.Errorf("%s: accumulative results should not hold pairs", d)
		}
	}
}

func TestBinFor(t *testing.T) {
	r := newResults(nil, &Enumerator{numSites: 2, total: 1, design: AllPairs{}}, true, 4)

	cases := []struct {
		rsqr     float64
		expected int
	}{
		{0, 0},
		{0.2499, 0},
		{0.25, 1},
		{0.99, 3},
		{1, 3},
		{1.0000001, 3},
		{math.NaN(), 4},
	}
	for _, c := range cases {
		if got := r.binFor(c.rsqr); got != c.expected {
			t.Errorf("%v: Got bin %d, expected %d", c.rsqr, got, c.expected)
		}
	}
}

func TestProgress(t *testing.T) {
	src := randomSource(4, 30, 20)
	cfg := DefaultConfig()
	cfg.Design = AllPairs{}

	e, err := New(src, cfg)
	if err != nil {
		t.Fatal(err)
	}

	var seen []int
	if _, err := e.Run(func(p int) { seen = append(seen, p) }); err != nil {
		t.Fatal(err)
	}

	if len(seen) == 0 || seen[len(seen)-1] != 100 {
		t.Fatalf("Got %v, expected progress to end at 100", seen)
	}
	for i := 1; i < len(seen); i++ {
		if seen[i] <= seen[i-1] {
			t.Errorf("progress went from %d to %d", seen[i-1], seen[i])
		}
	}

	for _, c := range []struct{ done, total uint64 }{{1, 3}, {2, 3}, {1, 200}, {199, 200}} {
		expected := int(math.Round(100 * float64(c.done) / float64(c.total)))
		if got := percent(c.done, c.total); got != expected {
			t.Errorf("percent(%d, %d): Got %d, expected %d", c.done, c.total, got, expected)
		}
	}
}

func TestEngineLifecycle(t *testing.T) {
	src := randomSource(5, 5, 30)

	cfg := DefaultConfig()
	cfg.HetTreatment = Genotype
	if _, err := New(src, cfg); !errors.Is(err, ErrGenotypeTreatment) {
		t.Errorf("Got %v, expected ErrGenotypeTreatment", err)
	}

	cfg = DefaultConfig()
	cfg.Design = SiteList{}
	if _, err := New(src, cfg); !errors.Is(err, ErrEmptySiteList) {
		t.Errorf("Got %v, expected ErrEmptySiteList", err)
	}

	cfg = DefaultConfig()
	cfg.Accumulative = true
	cfg.Bins = 0
	if _, err := New(src, cfg); !errors.Is(err, ErrBins) {
		t.Errorf("Got %v, expected ErrBins", err)
	}

	e, err := New(src, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	if e.State() != Initialized {
		t.Errorf("Got state %s, expected Initialized", e.State())
	}
	if _, err := e.Results(); !errors.Is(err, ErrNotCompleted) {
		t.Errorf("Got %v, expected ErrNotCompleted", err)
	}

	// A window wider than the data covers every pair.
	if e.TotalTests() != 10 {
		t.Errorf("Got %d tests, expected 10", e.TotalTests())
	}

	if _, err := e.Run(nil); err != nil {
		t.Fatal(err)
	}
	if e.State() != Completed {
		t.Errorf("Got state %s, expected Completed", e.State())
	}
	if res, err := e.Results(); err != nil || res.Len() != 10 {
		t.Errorf("Got %v, %v", res, err)
	}
	if _, err := e.Run(nil); !errors.Is(err, ErrAlreadyRun) {
		t.Errorf("Got %v, expected ErrAlreadyRun", err)
	}
}

func TestEngineFailure(t *testing.T) {
	src := randomSource(6, 5, 30)
	src.failAt = 3

	cfg := DefaultConfig()
	cfg.HetTreatment = Haplotype
	e, err := New(src, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Run(nil); err == nil {
		t.Fatal("expected the pass to fail")
	}
	if e.State() != Failed {
		t.Errorf("Got state %s, expected Failed", e.State())
	}
	if _, err := e.Results(); !errors.Is(err, ErrNotCompleted) {
		t.Errorf("Got %v, expected ErrNotCompleted", err)
	}
}

type constantTest float64

func (c constantTest) TwoTailedP(n00, n10, n01, n11 int) (float64, error) {
	return float64(c), nil
}

func TestCustomSignificanceTest(t *testing.T) {
	src := contingencySource(10, 2, 3, 15)
	cfg := DefaultConfig()
	cfg.Design = AllPairs{}
	cfg.HetTreatment = Haplotype
	cfg.Test = constantTest(0.25)

	res := runEngine(t, src, cfg)
	if got := res.PValue(0, 1); got != 0.25 {
		t.Errorf("Got p %v, expected 0.25", got)
	}
	if got := res.RSqr(1, 0); !approx(got, 96.0/221.0, 1e-9) {
		t.Errorf("Got r2 %v, expected %v", got, 96.0/221.0)
	}
	if got := res.SampleSize(0, 1); got != 30 {
		t.Errorf("Got N %d, expected 30", got)
	}
}
