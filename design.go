package ld

import (
	"errors"
	"fmt"
	"sort"
)

// Configuration errors. They are returned before any pair is computed.
var (
	ErrEmptySiteList     = errors.New("site list is empty")
	ErrSiteOutOfRange    = errors.New("site is out of range")
	ErrWindowSize        = errors.New("window size must be positive")
	ErrTargetSite        = errors.New("target site is out of range")
	ErrTooFewSites       = errors.New("at least two sites are required")
	ErrUnknownDesign     = errors.New("unknown test design")
	ErrGenotypeTreatment = errors.New("treating heterozygotes as a third state is not implemented")
	ErrUnknownTreatment  = errors.New("unknown heterozygote treatment")
	ErrBins              = errors.New("number of accumulative bins must be positive")
)

// Design selects which site pairs are tested. The set of implementations is
// closed: AllPairs, SlidingWindow, SiteVsAll and SiteList.
type Design interface {
	fmt.Stringer
	design()
}

// AllPairs tests every site against every other site.
type AllPairs struct{}

// SlidingWindow tests each site against the Width sites that precede it.
type SlidingWindow struct {
	Width int
}

// SiteVsAll tests one site against all others.
type SiteVsAll struct {
	Target int
}

// SiteList tests every listed site against all sites. A pair of two listed
// sites is tested once.
type SiteList struct {
	Sites []int
}

func (AllPairs) design()      {}
func (SlidingWindow) design() {}
func (SiteVsAll) design()     {}
func (SiteList) design()      {}

func (AllPairs) String() string        { return "All" }
func (d SlidingWindow) String() string { return fmt.Sprintf("SlidingWindow(%d)", d.Width) }
func (d SiteVsAll) String() string     { return fmt.Sprintf("SiteByAll(%d)", d.Target) }
func (d SiteList) String() string      { return fmt.Sprintf("SiteList(%d sites)", len(d.Sites)) }

// normalize validates d against numSites and returns the design that will be
// enumerated. A window that covers every preceding site becomes AllPairs, and
// a site list is copied, sorted and deduplicated.
func normalize(d Design, numSites int) (Design, error) {
	if numSites < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrTooFewSites, numSites)
	}

	switch v := d.(type) {
	case AllPairs:
		return v, nil
	case SlidingWindow:
		if v.Width <= 0 {
			return nil, fmt.Errorf("%w: got %d", ErrWindowSize, v.Width)
		}
		if v.Width >= numSites-1 {
			return AllPairs{}, nil
		}
		return v, nil
	case SiteVsAll:
		if v.Target < 0 || v.Target >= numSites {
			return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrTargetSite, v.Target, numSites)
		}
		return v, nil
	case SiteList:
		if len(v.Sites) == 0 {
			return nil, ErrEmptySiteList
		}
		sites := append([]int(nil), v.Sites...)
		sort.Ints(sites)
		out := sites[:0]
		for i, s := range sites {
			if s < 0 || s >= numSites {
				return nil, fmt.Errorf("%w: %d not in [0,%d)", ErrSiteOutOfRange, s, numSites)
			}
			if i > 0 && s == sites[i-1] {
				continue
			}
			out = append(out, s)
		}
		return SiteList{Sites: out}, nil
	case nil:
		return nil, fmt.Errorf("%w: nil", ErrUnknownDesign)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownDesign, d)
	}
}

// HetTreatment sets how heterozygous calls enter the contingency table.
type HetTreatment int

const (
	// Haplotype assumes fully phased data: a heterozygous taxon carries both
	// alleles and is counted in both presence vectors.
	Haplotype HetTreatment = iota

	// Homozygous sets every heterozygous call to missing.
	Homozygous

	// Genotype would treat heterozygotes as a third state. It is not
	// implemented and is always rejected.
	Genotype
)

func (h HetTreatment) String() string {
	switch h {
	case Haplotype:
		return "Haplotype"
	case Homozygous:
		return "Homozygous"
	case Genotype:
		return "Genotype"
	default:
		return fmt.Sprintf("HetTreatment(%d)", int(h))
	}
}

// ParseHetTreatment is the inverse of HetTreatment.String.
func ParseHetTreatment(s string) (HetTreatment, error) {
	for _, h := range []HetTreatment{Haplotype, Homozygous, Genotype} {
		if h.String() == s {
			return h, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownTreatment, s)
}

func checkTreatment(h HetTreatment) error {
	switch h {
	case Haplotype, Homozygous:
		return nil
	case Genotype:
		return ErrGenotypeTreatment
	default:
		return fmt.Errorf("%w: %d", ErrUnknownTreatment, int(h))
	}
}
