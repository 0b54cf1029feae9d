package genotype

import (
	"fmt"

	"github.com/carbocation/pfx"
)

// Builder accumulates sites for a Table.
type Builder struct {
	taxa  []string
	sites []Site
	calls [][]Call
}

// NewBuilder starts a table with the given taxa as columns.
func NewBuilder(taxa []string) *Builder {
	return &Builder{taxa: append([]string(nil), taxa...)}
}

// NumSites is the number of sites added so far.
func (b *Builder) NumSites() int { return len(b.sites) }

// AddSite appends a site and one call per taxon. Calls are copied.
func (b *Builder) AddSite(site Site, calls []Call) error {
	if len(calls) != len(b.taxa) {
		return fmt.Errorf("site %q: %d calls for %d taxa", site.ID, len(calls), len(b.taxa))
	}
	if len(site.Alleles) >= int(MissingAllele) {
		return fmt.Errorf("site %q: %d alleles is more than supported", site.ID, len(site.Alleles))
	}
	for i, c := range calls {
		for _, a := range c {
			if a != MissingAllele && int(a) >= len(site.Alleles) {
				return fmt.Errorf("site %q taxon %d: allele index %d with %d alleles", site.ID, i, a, len(site.Alleles))
			}
		}
	}

	site.Alleles = append([]string(nil), site.Alleles...)
	b.sites = append(b.sites, site)
	b.calls = append(b.calls, append([]Call(nil), calls...))

	return nil
}

// Build finishes the table: major and minor alleles are assigned per site and
// the presence bitsets are computed.
func (b *Builder) Build() (*Table, error) {
	if len(b.taxa) == 0 {
		return nil, pfx.Err(fmt.Errorf("table has no taxa"))
	}

	t := &Table{
		taxa:  b.taxa,
		sites: b.sites,
		calls: b.calls,
		major: make([]uint8, len(b.sites)),
		minor: make([]uint8, len(b.sites)),
	}
	for s := range t.sites {
		t.major[s], t.minor[s] = rankAlleles(len(t.sites[s].Alleles), t.calls[s])
	}
	t.buildPresence()

	return t, nil
}

// rankAlleles counts allele copies over known haplotypes and returns the most
// and second most frequent alleles. Ties go to the lower allele index. An
// allele that was never observed is reported as MissingAllele.
func rankAlleles(nAlleles int, calls []Call) (major, minor uint8) {
	counts := make([]int, nAlleles)
	for _, c := range calls {
		for _, a := range c {
			if a != MissingAllele {
				counts[a]++
			}
		}
	}

	major, minor = MissingAllele, MissingAllele
	for a, n := range counts {
		if n == 0 {
			continue
		}
		switch {
		case major == MissingAllele || n > counts[major]:
			minor = major
			major = uint8(a)
		case minor == MissingAllele || n > counts[minor]:
			minor = uint8(a)
		}
	}

	return major, minor
}
