// Package plink loads PLINK binary filesets (.bed, .bim, .fam) into genotype
// tables.
package plink

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/carbocation/genomisc"
	"github.com/carbocation/ld/genotype"
	"github.com/carbocation/pfx"
)

// MagicNumber opens every SNP-major .bed file.
var MagicNumber = []byte{0x6c, 0x1b, 0x01}

// 2-bit genotype codes of a .bed file
const (
	codeHomozygousA1 = 0x0
	codeMissing      = 0x1
	codeHeterozygous = 0x2
	codeHomozygousA2 = 0x3
)

// Read loads prefix.bed, prefix.bim and prefix.fam. Taxa are named by the
// within-family ID of the .fam file. Alleles are listed as A1 then A2.
func Read(prefix string) (*genotype.Table, error) {
	taxa, err := readFAM(prefix + ".fam")
	if err != nil {
		return nil, pfx.Err(err)
	}

	sites, err := readBIM(prefix + ".bim")
	if err != nil {
		return nil, pfx.Err(err)
	}

	f, err := os.Open(prefix + ".bed")
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	t, err := readBED(bufio.NewReader(f), taxa, sites)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s.bed: %w", prefix, err))
	}
	return t, nil
}

func readFAM(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var taxa []string
	sc := bufio.NewScanner(f)
	for line := 1; sc.Scan(); line++ {
		cols := strings.Fields(sc.Text())
		if len(cols) == 0 {
			continue
		}
		if len(cols) < 2 {
			return nil, fmt.Errorf("%s line %d: expected family and individual IDs", path, line)
		}
		taxa = append(taxa, cols[1])
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(taxa) == 0 {
		return nil, fmt.Errorf("%s lists no samples", path)
	}

	return taxa, nil
}

func readBIM(path string) ([]genotype.Site, error) {
	bim, err := genomisc.OpenBIM(path)
	if err != nil {
		return nil, err
	}
	defer bim.Close()

	var sites []genotype.Site
	for row := bim.Read(); row != nil; row = bim.Read() {
		sites = append(sites, genotype.Site{
			ID:         row.VariantID,
			Chromosome: Chromosome(row.Chromosome),
			Position:   int(row.Coordinate),
			Alleles:    []string{row.Allele1, row.Allele2},
		})
	}
	if err := bim.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return sites, nil
}

func readBED(r io.Reader, taxa []string, sites []genotype.Site) (*genotype.Table, error) {
	magic := make([]byte, len(MagicNumber))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, err
	}
	if !bytes.Equal(magic, MagicNumber) {
		return nil, fmt.Errorf("header %#v is not a SNP-major .bed header", magic)
	}

	b := genotype.NewBuilder(taxa)
	row := make([]byte, (len(taxa)+3)/4)
	calls := make([]genotype.Call, len(taxa))

	for s, site := range sites {
		if _, err := io.ReadFull(r, row); err != nil {
			return nil, fmt.Errorf("site %d of %d: %w", s+1, len(sites), err)
		}

		for j := range calls {
			switch (row[j/4] >> (2 * uint(j%4))) & 0x3 {
			case codeHomozygousA1:
				calls[j] = genotype.Call{0, 0}
			case codeHeterozygous:
				calls[j] = genotype.Call{0, 1}
			case codeHomozygousA2:
				calls[j] = genotype.Call{1, 1}
			case codeMissing:
				calls[j] = genotype.MissingCall
			}
		}

		if err := b.AddSite(site, calls); err != nil {
			return nil, err
		}
	}

	if n, _ := r.Read(make([]byte, 1)); n != 0 {
		return nil, fmt.Errorf("data continues past %d sites", len(sites))
	}

	return b.Build()
}
