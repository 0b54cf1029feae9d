// Package genotype holds an in-memory matrix of diploid allele calls and
// exposes it as per-site allele presence bitsets.
package genotype

import (
	"fmt"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/carbocation/ld"
	"github.com/carbocation/pfx"
)

// MissingAllele marks an unknown allele in a Call.
const MissingAllele uint8 = 0xFF

// UnknownAllele labels the minor allele of a monomorphic site.
const UnknownAllele = "N"

// Call is a diploid genotype as a pair of indices into Site.Alleles.
type Call [2]uint8

// MissingCall has no known allele.
var MissingCall = Call{MissingAllele, MissingAllele}

// Heterozygous reports whether both alleles are known and differ.
func (c Call) Heterozygous() bool {
	return c[0] != MissingAllele && c[1] != MissingAllele && c[0] != c[1]
}

// Missing reports whether at least one allele is unknown.
func (c Call) Missing() bool {
	return c[0] == MissingAllele || c[1] == MissingAllele
}

// Has reports whether either allele of the call is allele.
func (c Call) Has(allele uint8) bool {
	return allele != MissingAllele && (c[0] == allele || c[1] == allele)
}

// Site describes one marker.
type Site struct {
	ID         string
	Chromosome string
	Position   int
	Alleles    []string
}

// Table is an immutable genotype matrix. It implements ld.AlleleSource and is
// safe for concurrent use.
type Table struct {
	taxa  []string
	sites []Site
	calls [][]Call // [site][taxon]

	major, minor []uint8
	presence     [][2]*bitset.BitSet

	homOnce sync.Once
	hom     *Table
}

var _ ld.AlleleSource = (*Table)(nil)

// NumTaxa implements ld.AlleleSource.
func (t *Table) NumTaxa() int { return len(t.taxa) }

// NumSites implements ld.SiteInfo.
func (t *Table) NumSites() int { return len(t.sites) }

// Taxa returns the taxon names in column order.
func (t *Table) Taxa() []string { return append([]string(nil), t.taxa...) }

// Site returns the metadata of site i.
func (t *Table) Site(i int) Site { return t.sites[i] }

// Call returns the genotype of taxon at site.
func (t *Table) Call(site, taxon int) Call { return t.calls[site][taxon] }

// Chromosome implements ld.SiteInfo.
func (t *Table) Chromosome(site int) string { return t.sites[site].Chromosome }

// Position implements ld.SiteInfo.
func (t *Table) Position(site int) int { return t.sites[site].Position }

// MajorAllele implements ld.SiteInfo.
func (t *Table) MajorAllele(site int) string { return t.label(site, t.major[site]) }

// MinorAllele implements ld.SiteInfo.
func (t *Table) MinorAllele(site int) string { return t.label(site, t.minor[site]) }

func (t *Table) label(site int, allele uint8) string {
	if allele == MissingAllele || int(allele) >= len(t.sites[site].Alleles) {
		return UnknownAllele
	}
	return t.sites[site].Alleles[allele]
}

// MajorIndex and MinorIndex return allele indices, MissingAllele if absent.
func (t *Table) MajorIndex(site int) uint8 { return t.major[site] }

func (t *Table) MinorIndex(site int) uint8 { return t.minor[site] }

// AllelePresence implements ld.AlleleSource. The returned bitset is shared.
func (t *Table) AllelePresence(site int, rank ld.AlleleRank) (*bitset.BitSet, error) {
	if site < 0 || site >= len(t.sites) {
		return nil, fmt.Errorf("site %d out of range [0,%d)", site, len(t.sites))
	}
	switch rank {
	case ld.Major:
		return t.presence[site][0], nil
	case ld.Minor:
		return t.presence[site][1], nil
	default:
		return nil, fmt.Errorf("unknown allele rank %d", rank)
	}
}

// HomozygousView implements ld.AlleleSource. Heterozygous and half-missing
// calls become missing; major and minor alleles are kept from t. The view is
// built on first use and shared afterwards.
func (t *Table) HomozygousView() (ld.AlleleSource, error) {
	t.homOnce.Do(func() {
		h := &Table{
			taxa:  t.taxa,
			sites: t.sites,
			calls: make([][]Call, len(t.calls)),
			major: t.major,
			minor: t.minor,
		}
		for s, row := range t.calls {
			masked := make([]Call, len(row))
			for i, c := range row {
				if c.Heterozygous() || c.Missing() {
					masked[i] = MissingCall
					continue
				}
				masked[i] = c
			}
			h.calls[s] = masked
		}
		h.buildPresence()

		// A homozygous view is its own homozygous view.
		h.hom = h
		h.homOnce.Do(func() {})
		t.hom = h
	})
	return t.hom, nil
}

// Subset returns a table restricted to the given sites, in the given order.
func (t *Table) Subset(sites []int) (*Table, error) {
	b := NewBuilder(t.taxa)
	for _, s := range sites {
		if s < 0 || s >= len(t.sites) {
			return nil, pfx.Err(fmt.Errorf("site %d out of range [0,%d)", s, len(t.sites)))
		}
		if err := b.AddSite(t.sites[s], t.calls[s]); err != nil {
			return nil, pfx.Err(err)
		}
	}
	return b.Build()
}

// SitesOnChromosome returns the indices of the sites on chr.
func (t *Table) SitesOnChromosome(chr string) []int {
	var out []int
	for i, s := range t.sites {
		if s.Chromosome == chr {
			out = append(out, i)
		}
	}
	return out
}

// Chromosomes returns the chromosome names in order of first appearance.
func (t *Table) Chromosomes() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range t.sites {
		if _, ok := seen[s.Chromosome]; ok {
			continue
		}
		seen[s.Chromosome] = struct{}{}
		out = append(out, s.Chromosome)
	}
	return out
}

func (t *Table) buildPresence() {
	n := uint(len(t.taxa))
	t.presence = make([][2]*bitset.BitSet, len(t.sites))
	for s, row := range t.calls {
		mj, mn := bitset.New(n), bitset.New(n)
		for i, c := range row {
			if c.Has(t.major[s]) {
				mj.Set(uint(i))
			}
			if c.Has(t.minor[s]) {
				mn.Set(uint(i))
			}
		}
		t.presence[s] = [2]*bitset.BitSet{mj, mn}
	}
}
