package ld

import (
	"fmt"
	"math/rand"

	"github.com/bits-and-blooms/bitset"
)

// Genotype codes for testSource
const (
	homMajor = 0
	het      = 1
	homMinor = 2
	missing  = -1
)

// testSource is an AlleleSource over genotype codes, [site][taxon].
type testSource struct {
	codes  [][]int
	chroms []string

	presence [][2]*bitset.BitSet
	failAt   int // AllelePresence fails for this site when >= 0
}

func newTestSource(codes [][]int) *testSource {
	s := &testSource{codes: codes, failAt: -1}
	s.chroms = make([]string, len(codes))
	for i := range s.chroms {
		s.chroms[i] = "1"
	}
	s.build()
	return s
}

func (s *testSource) build() {
	s.presence = make([][2]*bitset.BitSet, len(s.codes))
	for site, row := range s.codes {
		mj, mn := bitset.New(uint(len(row))), bitset.New(uint(len(row)))
		for i, c := range row {
			if c == homMajor || c == het {
				mj.Set(uint(i))
			}
			if c == homMinor || c == het {
				mn.Set(uint(i))
			}
		}
		s.presence[site] = [2]*bitset.BitSet{mj, mn}
	}
}

func (s *testSource) NumSites() int           { return len(s.codes) }
func (s *testSource) NumTaxa() int            { return len(s.codes[0]) }
func (s *testSource) Chromosome(i int) string { return s.chroms[i] }
func (s *testSource) Position(i int) int      { return 100 * (i + 1) }
func (s *testSource) MajorAllele(int) string  { return "A" }
func (s *testSource) MinorAllele(int) string  { return "C" }

func (s *testSource) AllelePresence(site int, rank AlleleRank) (*bitset.BitSet, error) {
	if site == s.failAt {
		return nil, fmt.Errorf("site %d is unreadable", site)
	}
	return s.presence[site][rank], nil
}

func (s *testSource) HomozygousView() (AlleleSource, error) {
	masked := make([][]int, len(s.codes))
	for site, row := range s.codes {
		masked[site] = make([]int, len(row))
		for i, c := range row {
			if c == het {
				c = missing
			}
			masked[site][i] = c
		}
	}
	v := newTestSource(masked)
	copy(v.chroms, s.chroms)
	v.failAt = s.failAt
	return v, nil
}

// randomSource draws codes with a per-site minor allele frequency so that
// some pairs are informative and some sites are nearly fixed.
func randomSource(seed int64, sites, taxa int) *testSource {
	rng := rand.New(rand.NewSource(seed))
	codes := make([][]int, sites)
	for s := range codes {
		maf := rng.Float64() * 0.5
		codes[s] = make([]int, taxa)
		for i := range codes[s] {
			switch {
			case rng.Float64() < 0.05:
				codes[s][i] = missing
			case i > 0 && rng.Float64() < 0.5 && s > 0:
				// Correlate with the previous site.
				codes[s][i] = codes[s-1][i]
			default:
				n := 0
				if rng.Float64() < maf {
					n++
				}
				if rng.Float64() < maf {
					n++
				}
				codes[s][i] = n
			}
		}
	}
	return newTestSource(codes)
}

// contingencySource builds two sites whose haplotype table is exactly
// n00, n01, n10, n11, with site 1 as the row site.
func contingencySource(n00, n01, n10, n11 int) *testSource {
	var row, col []int
	add := func(n, r, c int) {
		for i := 0; i < n; i++ {
			row = append(row, r)
			col = append(col, c)
		}
	}
	add(n00, homMajor, homMajor)
	add(n01, homMajor, homMinor)
	add(n10, homMinor, homMajor)
	add(n11, homMinor, homMinor)

	return newTestSource([][]int{col, row})
}
