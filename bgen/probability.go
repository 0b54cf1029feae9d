package bgen

// Probability is the decoded genotype block of one variant.
type Probability struct {
	NSamples         uint32
	NAlleles         uint16
	MinimumPloidy    uint8
	MaximumPloidy    uint8
	Phased           bool
	NProbabilityBits uint8 // 1-32

	SampleProbabilities []*SampleProbability
}

// SampleProbability is one sample's data at one variant. Probabilities
// include the value left implicit in the file: unphased samples carry one
// entry per genotype in colex order, phased samples carry NAlleles entries per
// haplotype. Missing samples have no probabilities.
type SampleProbability struct {
	Missing       bool
	Ploidy        uint8 // 0-63
	Probabilities []float64
}

// noCall marks an allele that could not be called.
const noCall = 0xFF

// biallelicCall returns the diploid hard call of a biallelic sample as a pair
// of allele indices. An allele is called when its probability (per haplotype
// if phased, per genotype otherwise) reaches threshold; anything else is
// noCall. Non-diploid and missing samples are never called.
func (sp *SampleProbability) biallelicCall(phased bool, threshold float64) [2]uint8 {
	out := [2]uint8{noCall, noCall}
	if sp.Missing || sp.Ploidy != 2 {
		return out
	}
	probs := sp.Probabilities

	if phased {
		if len(probs) != 4 {
			return out
		}
		for h := range out {
			switch {
			case probs[2*h] >= threshold:
				out[h] = 0
			case probs[2*h+1] >= threshold:
				out[h] = 1
			}
		}
		return out
	}

	if len(probs) != 3 {
		return out
	}
	// AA, AB, BB
	switch {
	case probs[0] >= threshold:
		out = [2]uint8{0, 0}
	case probs[1] >= threshold:
		out = [2]uint8{0, 1}
	case probs[2] >= threshold:
		out = [2]uint8{1, 1}
	}
	return out
}
