package bgen

import (
	"fmt"

	"github.com/carbocation/ld/genotype"
	"github.com/carbocation/pfx"
)

// DefaultCallThreshold is the smallest probability accepted as a hard call.
const DefaultCallThreshold = 0.9

// LoadTable reads every variant of b and converts its probabilities to hard
// calls: a genotype (or, for phased data, a haplotype allele) is called when
// its probability is at least threshold, and is missing otherwise. A zero
// threshold means DefaultCallThreshold. Sites that are not biallelic and
// samples that are not diploid are kept as missing, so site i of the table is
// variant i of the file.
func LoadTable(b *BGEN, threshold float64) (*genotype.Table, error) {
	if threshold == 0 {
		threshold = DefaultCallThreshold
	}
	if threshold <= 0.5 || threshold > 1 {
		return nil, pfx.Err(fmt.Errorf("call threshold %v must be in (0.5, 1]", threshold))
	}

	names, err := sampleNames(b)
	if err != nil {
		return nil, pfx.Err(err)
	}

	builder := genotype.NewBuilder(names)
	calls := make([]genotype.Call, b.NSamples)

	vr := b.NewVariantReader()
	for v := vr.Read(); v != nil; v = vr.Read() {
		site := genotype.Site{
			ID:         v.RSID,
			Chromosome: v.Chromosome,
			Position:   int(v.Position),
			Alleles:    make([]string, 0, 2),
		}
		if site.ID == "" {
			site.ID = v.ID
		}
		for i, a := range v.Alleles {
			// Only the first two alleles can be called.
			if i == 2 {
				break
			}
			site.Alleles = append(site.Alleles, a.String())
		}

		hardCalls(v, threshold, calls)

		if err := builder.AddSite(site, calls); err != nil {
			return nil, pfx.Err(err)
		}
	}
	if err := vr.Error(); err != nil {
		return nil, pfx.Err(err)
	}

	return builder.Build()
}

// hardCalls fills calls, one per sample, from the probabilities of v.
func hardCalls(v *Variant, threshold float64, calls []genotype.Call) {
	for i := range calls {
		calls[i] = genotype.MissingCall
	}
	if v.NAlleles != 2 || v.Probabilities == nil {
		return
	}

	for i, sp := range v.Probabilities.SampleProbabilities {
		if i == len(calls) {
			break
		}
		calls[i] = genotype.Call(sp.biallelicCall(v.Probabilities.Phased, threshold))
	}
}
