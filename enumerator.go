package ld

import (
	"fmt"
	"math"
	"sort"
)

// Enumerator maps a dense test index in [0, TotalTests()) to a site pair.
// Pairs are always returned with row > col. Indices are ordered so that a
// single pass from 0 upwards visits every pair of the design exactly once.
type Enumerator struct {
	design   Design
	numSites int
	total    uint64

	// SlidingWindow: size of the leading triangular block
	block uint64
}

// NewEnumerator validates design against numSites.
func NewEnumerator(design Design, numSites int) (*Enumerator, error) {
	d, err := normalize(design, numSites)
	if err != nil {
		return nil, err
	}

	e := &Enumerator{design: d, numSites: numSites}
	n := uint64(numSites)

	switch v := d.(type) {
	case AllPairs:
		e.total = n * (n - 1) / 2
	case SlidingWindow:
		w := uint64(v.Width)
		e.block = w * (w + 1) / 2
		e.total = e.block + (n-w-1)*w
	case SiteVsAll:
		e.total = n - 1
	case SiteList:
		// k(k+1)/2 + (n-k-1)k, rearranged so no term goes negative when
		// every site is listed.
		k := uint64(len(v.Sites))
		e.total = k*(k-1)/2 + (n-k)*k
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownDesign, d)
	}

	return e, nil
}

// Design returns the normalized design being enumerated.
func (e *Enumerator) Design() Design { return e.design }

// NumSites is the number of sites the enumerator was built for.
func (e *Enumerator) NumSites() int { return e.numSites }

// TotalTests is the number of pairs covered by the design.
func (e *Enumerator) TotalTests() uint64 { return e.total }

// Pair returns the sites compared at index. index must be below TotalTests.
func (e *Enumerator) Pair(index uint64) (row, col int) {
	switch v := e.design.(type) {
	case AllPairs:
		return triangularPair(index)
	case SlidingWindow:
		if index < e.block {
			return triangularPair(index)
		}
		w := uint64(v.Width)
		off := index - e.block
		r := w + 1 + off/w
		return int(r), int(r - w + off%w)
	case SiteVsAll:
		if index < uint64(v.Target) {
			return v.Target, int(index)
		}
		return int(index) + 1, v.Target
	case SiteList:
		return e.siteListPair(v.Sites, index)
	default:
		panic(fmt.Sprintf("ld: unhandled design %T", e.design))
	}
}

// Index is the inverse of Pair. The order of row and col does not matter; ok
// is false when the pair is not part of the design.
func (e *Enumerator) Index(row, col int) (index uint64, ok bool) {
	if row < col {
		row, col = col, row
	}
	if col < 0 || row >= e.numSites || row == col {
		return 0, false
	}

	r, c := uint64(row), uint64(col)
	switch v := e.design.(type) {
	case AllPairs:
		return r*(r-1)/2 + c, true
	case SlidingWindow:
		w := uint64(v.Width)
		if r-c > w {
			return 0, false
		}
		if r <= w {
			return r*(r-1)/2 + c, true
		}
		return e.block + (r-w-1)*w + (c - (r - w)), true
	case SiteVsAll:
		t := v.Target
		switch {
		case row == t:
			return c, true
		case col == t:
			return r - 1, true
		}
		return 0, false
	case SiteList:
		return e.siteListIndex(v.Sites, row, col)
	default:
		panic(fmt.Sprintf("ld: unhandled design %T", e.design))
	}
}

// triangularPair inverts index = row*(row-1)/2 + col for 0 <= col < row.
func triangularPair(index uint64) (row, col int) {
	r := uint64(math.Ceil((math.Sqrt(8*(float64(index)+1)+1) - 1) / 2))

	// Float rounding can be off by one for large indices.
	for r > 1 && r*(r-1)/2 > index {
		r--
	}
	for (r+1)*r/2 <= index {
		r++
	}

	return int(r), int(index - r*(r-1)/2)
}

// siteListStart is the first index of the block belonging to the i-th listed
// site. Block i pairs sites[i] with every site other than sites[0..i], so it
// holds n-1-i entries.
func siteListStart(n, i uint64) uint64 {
	return i*(n-1) - i*(i-1)/2
}

func (e *Enumerator) siteListBlock(k int, index uint64) int {
	n := uint64(e.numSites)

	// Largest i with siteListStart(i) <= index, from the quadratic
	// i^2 - (2n-1)i + 2*index >= 0.
	b := 2*float64(n) - 1
	disc := b*b - 8*float64(index)
	if disc < 0 {
		disc = 0
	}
	i := int(math.Floor((b - math.Sqrt(disc)) / 2))
	if i < 0 {
		i = 0
	}
	if i > k-1 {
		i = k - 1
	}

	for i > 0 && siteListStart(n, uint64(i)) > index {
		i--
	}
	for i+1 < k && siteListStart(n, uint64(i+1)) <= index {
		i++
	}

	return i
}

func (e *Enumerator) siteListPair(sites []int, index uint64) (row, col int) {
	n := uint64(e.numSites)
	i := e.siteListBlock(len(sites), index)
	j := int(index - siteListStart(n, uint64(i)))

	// The partner is the j-th site (ascending) that is not one of
	// sites[0..i]. sites[t]-t is non-decreasing, so the number of excluded
	// sites below the answer is found by binary search.
	excluded := sites[:i+1]
	c := sort.Search(len(excluded), func(t int) bool {
		return excluded[t]-t > j
	})
	partner := j + c

	if partner > sites[i] {
		return partner, sites[i]
	}
	return sites[i], partner
}

func (e *Enumerator) siteListIndex(sites []int, row, col int) (uint64, bool) {
	n := uint64(e.numSites)

	// The pair belongs to the block of the first listed site among the two.
	lo := sort.SearchInts(sites, col)
	loListed := lo < len(sites) && sites[lo] == col
	hi := sort.SearchInts(sites, row)
	hiListed := hi < len(sites) && sites[hi] == row

	var block, partner int
	switch {
	case loListed:
		block, partner = lo, row
	case hiListed:
		block, partner = hi, col
	default:
		return 0, false
	}

	// Number of sites[0..block] below partner.
	below := sort.SearchInts(sites[:block+1], partner)
	j := partner - below

	return siteListStart(n, uint64(block)) + uint64(j), true
}
