// Package ld computes pairwise linkage disequilibrium (r², D' and an exact
// significance test) between biallelic sites of a genotype matrix.
package ld

import (
	"github.com/bits-and-blooms/bitset"
)

// AlleleRank selects the major or the minor allele of a site.
type AlleleRank uint8

const (
	Major AlleleRank = iota
	Minor
)

func (r AlleleRank) String() string {
	switch r {
	case Major:
		return "Major"
	case Minor:
		return "Minor"
	default:
		return "Illegal selection"
	}
}

// SiteInfo exposes the read-only site metadata needed by the report view.
type SiteInfo interface {
	NumSites() int
	Chromosome(site int) string
	Position(site int) int
	MajorAllele(site int) string
	MinorAllele(site int) string
}

// AlleleSource supplies, for each site, one bit per taxon indicating which taxa
// carry the major or the minor allele. Returned bitsets are shared and must
// not be modified by the caller.
type AlleleSource interface {
	SiteInfo
	NumTaxa() int
	AllelePresence(site int, rank AlleleRank) (*bitset.BitSet, error)

	// HomozygousView returns a source in which heterozygous calls are
	// treated as missing. The major and minor assignments are those of the
	// parent source.
	HomozygousView() (AlleleSource, error)
}

// ProgressFunc receives the percent of comparisons completed.
type ProgressFunc func(percent int)
