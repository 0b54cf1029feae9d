package ld

import (
	"fmt"
	"math"

	"github.com/bits-and-blooms/bitset"
)

// Contingency counts taxa by joint allele membership at two sites. The first
// digit is the row site (0 major, 1 minor), the second the column site.
type Contingency struct {
	N00, N01, N10, N11 int
}

// N is the number of observations in the table.
func (c Contingency) N() int {
	return c.N00 + c.N01 + c.N10 + c.N11
}

// PairResult holds the LD estimates for one site pair. RSqr, DPrime and P are
// NaN when they could not be computed. N is zero when the pair was rejected
// for having too few minor alleles.
type PairResult struct {
	Site1, Site2 int
	N            int
	RSqr         float64
	DPrime       float64
	P            float64
}

func newPairResult(site1, site2 int) PairResult {
	return PairResult{
		Site1:  site1,
		Site2:  site2,
		RSqr:   math.NaN(),
		DPrime: math.NaN(),
		P:      math.NaN(),
	}
}

// RSqr is the Hill & Robertson r² for the table, or NaN when the table has
// fewer than minN observations or either site is fixed among them.
func RSqr(c Contingency, minN int) float64 {
	n := float64(c.N())
	if c.N() < minN || n == 0 {
		return math.NaN()
	}

	pA := float64(c.N11+c.N10) / n
	pB := float64(c.N11+c.N01) / n
	if pA == 0 || pA == 1 || pB == 0 || pB == 1 {
		return math.NaN()
	}

	d := (float64(c.N11)/n)*(float64(c.N00)/n) - (float64(c.N01)/n)*(float64(c.N10)/n)
	return d * d / (pA * (1 - pA) * pB * (1 - pB))
}

// DPrime is D normalized as in Weir, Genetic Data Analysis II (1996), p. 120.
// It is NaN under the same conditions as RSqr.
func DPrime(c Contingency, minN int) float64 {
	n := float64(c.N())
	if c.N() < minN || n == 0 {
		return math.NaN()
	}

	pA := float64(c.N11+c.N10) / n
	pB := float64(c.N11+c.N01) / n
	if pA == 0 || pA == 1 || pB == 0 || pB == 1 {
		return math.NaN()
	}

	d := float64(c.N11)/n - pA*pB
	if d < 0 {
		return d / math.Max(-pA*pB, -(1-pA)*(1-pB))
	}
	return d / math.Min((1-pA)*pB, (1-pB)*pA)
}

// Statistic estimates LD between a row site and a column site from their
// presence vectors. Pairs with fewer than minMinorCount minor alleles at
// either site (among taxa scored at the other) are rejected before the
// remaining intersections are counted. The exact test is skipped when r² is
// below minR2. site1 and site2 only annotate the result.
func Statistic(majorR, minorR, majorC, minorC *bitset.BitSet, minMinorCount, minSampleCount int,
	minR2 float64, test SignificanceTest, site1, site2 int) (PairResult, error) {

	result := newPairResult(site1, site2)

	var c Contingency
	c.N11 = int(minorR.IntersectionCardinality(minorC))
	c.N10 = int(minorR.IntersectionCardinality(majorC))
	if c.N10+c.N11 < minMinorCount {
		return result, nil
	}
	c.N01 = int(majorR.IntersectionCardinality(minorC))
	if c.N01+c.N11 < minMinorCount {
		return result, nil
	}
	c.N00 = int(majorR.IntersectionCardinality(majorC))

	if test == nil {
		test = NewFisherExact(2*int(majorR.Len()) + 10)
	}

	return fromContingency(result, c, minSampleCount, minR2, test)
}

func fromContingency(result PairResult, c Contingency, minSampleCount int, minR2 float64, test SignificanceTest) (PairResult, error) {
	result.N = c.N()
	if result.N < minSampleCount {
		return result, nil
	}

	result.RSqr = RSqr(c, minSampleCount)
	if math.IsNaN(result.RSqr) {
		return result, nil
	}
	result.DPrime = DPrime(c, minSampleCount)

	if result.RSqr < minR2 {
		return result, nil
	}

	p, err := test.TwoTailedP(c.N00, c.N10, c.N01, c.N11)
	if err != nil {
		return result, fmt.Errorf("sites %d and %d: %w", result.Site1, result.Site2, err)
	}
	result.P = p

	return result, nil
}
