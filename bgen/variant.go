package bgen

// Allele is the text of one allele of a variant.
type Allele string

func (a Allele) String() string {
	return string(a)
}

type Variant struct {
	ID            string
	RSID          string
	Chromosome    string
	Position      uint32
	NAlleles      uint16
	Alleles       []Allele
	Probabilities *Probability

	// FileStartPosition is the byte offset of the variant, as stored in the
	// BGI index.
	FileStartPosition int64
}
