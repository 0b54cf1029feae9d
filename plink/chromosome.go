package plink

import "strings"

// Chromosome takes the raw chromosome code of a .bim file and
// returns its standard string translation.
func Chromosome(code string) string {
	chromosome := strings.TrimPrefix(strings.TrimPrefix(code, "chr"), "CHR")

	switch chromosome {
	case "23":
		chromosome = "X"
	case "24":
		chromosome = "Y"
	case "25":
		chromosome = "XY"
	case "26", "M":
		chromosome = "MT"
	case "0":
		chromosome = "NA"
	default:
		// Autosomes are written without zero padding.
		if t := strings.TrimLeft(chromosome, "0"); t != "" && t != chromosome {
			chromosome = t
		}
	}

	return chromosome
}
