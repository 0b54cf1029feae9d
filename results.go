package ld

import (
	"math"
)

// Results is the store filled by one engine pass. In per-pair mode it maps
// each tested pair to its PairResult; in accumulative mode it only keeps a
// histogram of r² values.
type Results struct {
	sites SiteInfo
	enum  *Enumerator

	pairs map[uint64]PairResult

	accumulative bool
	bins         []int
	binWidth     float64
}

func newResults(sites SiteInfo, enum *Enumerator, accumulative bool, nBins int) *Results {
	r := &Results{
		sites:        sites,
		enum:         enum,
		accumulative: accumulative,
	}

	if accumulative {
		r.binWidth = 1 / float64(nBins)
		// The extra bin counts pairs whose r² is NaN.
		r.bins = make([]int, nBins+1)
		return r
	}

	hint := enum.TotalTests()
	if hint > 1<<24 {
		hint = 1 << 24
	}
	r.pairs = make(map[uint64]PairResult, int(hint))

	return r
}

// key packs an unordered pair so that (a,b) and (b,a) share storage.
func (r *Results) key(a, b int) uint64 {
	if b < a {
		a, b = b, a
	}
	return uint64(a)*uint64(r.enum.NumSites()) + uint64(b)
}

func (r *Results) add(res PairResult) {
	if r.accumulative {
		r.bins[r.binFor(res.RSqr)]++
		return
	}
	r.pairs[r.key(res.Site1, res.Site2)] = res
}

func (r *Results) binFor(rsqr float64) int {
	nBins := len(r.bins) - 1
	if math.IsNaN(rsqr) {
		return nBins
	}
	if rsqr >= 1 {
		return nBins - 1
	}
	i := int(math.Floor(rsqr / r.binWidth))
	if i >= nBins {
		i = nBins - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Accumulative reports whether only an r² histogram was kept.
func (r *Results) Accumulative() bool { return r.accumulative }

// Enumerator returns the enumeration the results were computed with.
func (r *Results) Enumerator() *Enumerator { return r.enum }

// Sites returns the site metadata of the analysed source.
func (r *Results) Sites() SiteInfo { return r.sites }

// Len is the number of stored pairs, or the number of histogram bins
// including the NaN bin in accumulative mode.
func (r *Results) Len() int {
	if r.accumulative {
		return len(r.bins)
	}
	return len(r.pairs)
}

// Lookup returns the result for a pair in either order. ok is false for a
// pair that was never computed, which is distinct from a computed pair whose
// statistics are NaN.
func (r *Results) Lookup(site1, site2 int) (res PairResult, ok bool) {
	if r.accumulative {
		return res, false
	}
	res, ok = r.pairs[r.key(site1, site2)]
	return res, ok
}

// RSqr returns r² for a pair, NaN if it was not computed.
func (r *Results) RSqr(site1, site2 int) float64 {
	res, ok := r.Lookup(site1, site2)
	if !ok {
		return math.NaN()
	}
	return res.RSqr
}

// DPrime returns D' for a pair, NaN if it was not computed.
func (r *Results) DPrime(site1, site2 int) float64 {
	res, ok := r.Lookup(site1, site2)
	if !ok {
		return math.NaN()
	}
	return res.DPrime
}

// PValue returns the exact test p-value for a pair, NaN if it was not
// computed.
func (r *Results) PValue(site1, site2 int) float64 {
	res, ok := r.Lookup(site1, site2)
	if !ok {
		return math.NaN()
	}
	return res.P
}

// SampleSize returns the number of observations used for a pair after
// missing data was excluded, 0 if it was not computed.
func (r *Results) SampleSize(site1, site2 int) int {
	res, ok := r.Lookup(site1, site2)
	if !ok {
		return 0
	}
	return res.N
}

// Bins returns a copy of the histogram counts. The last entry counts NaN r²
// values. It is nil in per-pair mode.
func (r *Results) Bins() []int {
	if !r.accumulative {
		return nil
	}
	return append([]int(nil), r.bins...)
}

// BinWidth is the width of each histogram bin.
func (r *Results) BinWidth() float64 { return r.binWidth }

// Each calls fn for every stored pair in test order and stops early if fn
// returns false.
func (r *Results) Each(fn func(PairResult) bool) {
	if r.accumulative {
		return
	}
	total := r.enum.TotalTests()
	for i := uint64(0); i < total; i++ {
		row, col := r.enum.Pair(i)
		res, ok := r.pairs[r.key(row, col)]
		if !ok {
			continue
		}
		if !fn(res) {
			return
		}
	}
}
