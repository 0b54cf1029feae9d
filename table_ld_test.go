package ld_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/carbocation/ld"
	"github.com/carbocation/ld/genotype"
)

func buildTable(t *testing.T) *genotype.Table {
	t.Helper()

	taxa := make([]string, 24)
	for i := range taxa {
		taxa[i] = fmt.Sprintf("t%d", i)
	}
	b := genotype.NewBuilder(taxa)

	linked := make([]genotype.Call, len(taxa))
	mixed := make([]genotype.Call, len(taxa))
	for i := range taxa {
		switch {
		case i < 14:
			linked[i] = genotype.Call{0, 0}
			mixed[i] = genotype.Call{0, 0}
		case i < 20:
			linked[i] = genotype.Call{1, 1}
			mixed[i] = genotype.Call{0, 1}
		default:
			linked[i] = genotype.Call{1, 1}
			mixed[i] = genotype.Call{1, 1}
		}
	}

	sites := []struct {
		site  genotype.Site
		calls []genotype.Call
	}{
		{genotype.Site{ID: "s1", Chromosome: "1", Position: 100, Alleles: []string{"A", "G"}}, linked},
		{genotype.Site{ID: "s2", Chromosome: "1", Position: 250, Alleles: []string{"C", "T"}}, linked},
		{genotype.Site{ID: "s3", Chromosome: "1", Position: 900, Alleles: []string{"A", "T"}}, mixed},
	}
	for _, s := range sites {
		if err := b.AddSite(s.site, s.calls); err != nil {
			t.Fatal(err)
		}
	}

	tab, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return tab
}

func TestTableEngine(t *testing.T) {
	tab := buildTable(t)

	for _, treatment := range []ld.HetTreatment{ld.Haplotype, ld.Homozygous} {
		cfg := ld.DefaultConfig()
		cfg.Design = ld.AllPairs{}
		cfg.HetTreatment = treatment
		cfg.MinTaxaForEstimate = 5

		e, err := ld.New(tab, cfg)
		if err != nil {
			t.Fatal(err)
		}
		res, err := e.Run(nil)
		if err != nil {
			t.Fatal(err)
		}

		if got := res.RSqr(0, 1); math.Abs(got-1) > 1e-12 {
			t.Errorf("%s: Got r2 %v for identical sites, expected 1", treatment, got)
		}
		if got := res.DPrime(1, 0); math.Abs(got-1) > 1e-12 {
			t.Errorf("%s: Got D' %v for identical sites, expected 1", treatment, got)
		}
		if got := res.SampleSize(0, 1); got != 24 {
			t.Errorf("%s: Got N %d, expected 24", treatment, got)
		}

		// Heterozygotes at site 3 add observations only under Haplotype.
		expectedN := 24 + 6
		if treatment == ld.Homozygous {
			expectedN = 18
		}
		if got := res.SampleSize(2, 0); got != expectedN {
			t.Errorf("%s: Got N %d, expected %d", treatment, got, expectedN)
		}

		single, err := ld.PairLD(tab, 2, 0, treatment, cfg.MinTaxaForEstimate, cfg.MinMinorCount)
		if err != nil {
			t.Fatal(err)
		}
		if single.N != expectedN || math.Abs(single.RSqr-res.RSqr(0, 2)) > 1e-12 {
			t.Errorf("%s: Got %+v from PairLD, engine had r2 %v", treatment, single, res.RSqr(0, 2))
		}
	}

	if tab.MajorAllele(0) != "A" || tab.MinorAllele(0) != "G" {
		t.Errorf("Got %s/%s, expected A/G", tab.MajorAllele(0), tab.MinorAllele(0))
	}
}
