package genotype

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
)

// Columns of a HapMap file
const (
	hapmapRSID = iota
	hapmapAlleles
	hapmapChrom
	hapmapPos
	hapmapStrand
	hapmapAssembly
	hapmapCenter
	hapmapProtLSID
	hapmapAssayLSID
	hapmapPanel
	hapmapQCCode

	hapmapFirstTaxon
)

// 4-bit mask per base
var iupacMask = map[byte]uint8{
	'A': 1 << 0,
	'C': 1 << 1,
	'G': 1 << 2,
	'T': 1 << 3,
	'R': (1 << 0) | (1 << 2),
	'Y': (1 << 1) | (1 << 3),
	'S': (1 << 1) | (1 << 2),
	'W': (1 << 0) | (1 << 3),
	'K': (1 << 2) | (1 << 3),
	'M': (1 << 0) | (1 << 1),
}

var maskBases = [4]byte{'A', 'C', 'G', 'T'}

// ReadHapMap parses a HapMap genotype file: a header line starting with rs#,
// then one line per site with 11 metadata columns followed by one call per
// taxon. Calls are either two alleles ("AG", "A/G") or one IUPAC code, where
// heterozygous codes such as R expand to both bases. N, -, 0 and ? are
// missing; + and - are accepted as indel alleles only in two-allele form.
func ReadHapMap(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1<<20), 1<<30)

	var b *Builder
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			continue
		}
		fields := strings.Split(text, "\t")

		if b == nil {
			if !strings.HasPrefix(strings.ToLower(fields[0]), "rs") || len(fields) <= hapmapFirstTaxon {
				return nil, pfx.Err(fmt.Errorf("line %d: expected a HapMap header with at least one taxon", line))
			}
			b = NewBuilder(fields[hapmapFirstTaxon:])
			continue
		}

		if len(fields) != hapmapFirstTaxon+len(b.taxa) {
			return nil, pfx.Err(fmt.Errorf("line %d: %d fields, expected %d", line, len(fields), hapmapFirstTaxon+len(b.taxa)))
		}

		site, calls, err := parseHapMapSite(fields)
		if err != nil {
			return nil, pfx.Err(fmt.Errorf("line %d: %w", line, err))
		}
		if err := b.AddSite(site, calls); err != nil {
			return nil, pfx.Err(fmt.Errorf("line %d: %w", line, err))
		}
	}
	if err := sc.Err(); err != nil {
		return nil, pfx.Err(err)
	}
	if b == nil {
		return nil, pfx.Err(fmt.Errorf("no HapMap header found"))
	}

	return b.Build()
}

func parseHapMapSite(fields []string) (Site, []Call, error) {
	pos, err := strconv.Atoi(fields[hapmapPos])
	if err != nil {
		return Site{}, nil, fmt.Errorf("position: %w", err)
	}

	site := Site{
		ID:         fields[hapmapRSID],
		Chromosome: fields[hapmapChrom],
		Position:   pos,
	}

	index := make(map[byte]uint8)
	alleleIndex := func(base byte) uint8 {
		if idx, ok := index[base]; ok {
			return idx
		}
		idx := uint8(len(site.Alleles))
		index[base] = idx
		site.Alleles = append(site.Alleles, string(base))
		return idx
	}

	// Declared alleles keep their order; alleles seen only in calls follow.
	for _, a := range strings.Split(fields[hapmapAlleles], "/") {
		if len(a) == 1 && isAlleleBase(a[0]) {
			alleleIndex(a[0])
		}
	}

	calls := make([]Call, len(fields)-hapmapFirstTaxon)
	for i, s := range fields[hapmapFirstTaxon:] {
		bases, err := parseHapMapCall(s)
		if err != nil {
			return Site{}, nil, fmt.Errorf("taxon %d: %w", i, err)
		}
		c := MissingCall
		for k, base := range bases {
			if base != 0 {
				c[k] = alleleIndex(base)
			}
		}
		calls[i] = c
	}

	return site, calls, nil
}

// parseHapMapCall returns the two bases of a call; 0 marks a missing allele.
func parseHapMapCall(s string) ([2]byte, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 3 && s[1] == '/' {
		s = s[:1] + s[2:]
	}

	switch len(s) {
	case 1:
		c := s[0]
		if isMissingBase(c) {
			return [2]byte{}, nil
		}
		m, ok := iupacMask[c]
		if !ok {
			return [2]byte{}, fmt.Errorf("invalid call %q", s)
		}
		var out [2]byte
		k := 0
		for bit, base := range maskBases {
			if m&(1<<uint(bit)) != 0 {
				out[k] = base
				k++
			}
		}
		if k == 1 {
			out[1] = out[0]
		}
		return out, nil
	case 2:
		var out [2]byte
		for k := 0; k < 2; k++ {
			switch c := s[k]; {
			case isAlleleBase(c):
				out[k] = c
			case c == 'N' || c == '0' || c == '?':
			default:
				return [2]byte{}, fmt.Errorf("invalid call %q", s)
			}
		}
		return out, nil
	}

	return [2]byte{}, fmt.Errorf("invalid call %q", s)
}

func isAlleleBase(c byte) bool {
	switch c {
	case 'A', 'C', 'G', 'T', '+', '-':
		return true
	}
	return false
}

func isMissingBase(c byte) bool {
	switch c {
	case 'N', '-', '0', '?':
		return true
	}
	return false
}
