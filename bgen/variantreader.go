package bgen

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/carbocation/pfx"
)

// VariantReader decodes variants one at a time. It is not safe for concurrent
// use; open one per goroutine.
type VariantReader struct {
	VariantsSeen  uint32
	b             *BGEN
	currentOffset int64
	err           error

	// Cached values
	buffer       []byte
	decompressed []byte
}

func (b *BGEN) NewVariantReader() *VariantReader {
	vr := &VariantReader{
		currentOffset: int64(b.VariantsStart),
		b:             b,
	}

	return vr
}

func (vr *VariantReader) Error() error {
	return vr.err
}

// Read returns the next variant, or nil once every variant has been read or
// an error occurred. Check Error after a nil result.
func (vr *VariantReader) Read() *Variant {
	if vr.err != nil || vr.VariantsSeen >= vr.b.NVariants {
		return nil
	}

	v, newOffset, err := vr.parseVariantAtOffset(vr.currentOffset)
	if err == io.EOF {
		// Data ran out before the variant count in the header.
		vr.err = pfx.Err(fmt.Errorf("file ends after %d of %d variants", vr.VariantsSeen, vr.b.NVariants))
		return nil
	} else if err != nil {
		vr.err = pfx.Err(err)
		return nil
	}

	vr.VariantsSeen++
	vr.currentOffset = newOffset

	return v
}

// ReadAt decodes the variant starting at offset, as found in a BGI index.
// A following Read continues after it.
func (vr *VariantReader) ReadAt(offset int64) *Variant {
	v, newOffset, err := vr.parseVariantAtOffset(offset)
	if err != nil {
		vr.err = pfx.Err(err)
		return nil
	}

	vr.currentOffset = newOffset

	return v
}

// parseVariantAtOffset only touches the reader's buffers.
func (vr *VariantReader) parseVariantAtOffset(offset int64) (*Variant, int64, error) {
	v := &Variant{FileStartPosition: offset}
	var err error

	if vr.b.FlagLayout == Layout1 {
		if err = vr.readNBytesAtOffset(4, offset); err != nil {
			return nil, offset, err
		}
		offset += 4
		if n := binary.LittleEndian.Uint32(vr.buffer[:4]); n != vr.b.NSamples {
			return nil, offset, fmt.Errorf("variant at %d lists %d samples, expected %d", v.FileStartPosition, n, vr.b.NSamples)
		}
	}

	if v.ID, offset, err = vr.readString16(offset); err != nil {
		return nil, offset, err
	}
	if v.RSID, offset, err = vr.readString16(offset); err != nil {
		return nil, offset, err
	}
	if v.Chromosome, offset, err = vr.readString16(offset); err != nil {
		return nil, offset, err
	}

	// Position
	if err = vr.readNBytesAtOffset(4, offset); err != nil {
		return nil, offset, err
	}
	offset += 4
	v.Position = binary.LittleEndian.Uint32(vr.buffer[:4])

	// NAlleles
	if vr.b.FlagLayout == Layout1 {
		// Assumed to be 2 in Layout1
		v.NAlleles = 2
	} else {
		if err = vr.readNBytesAtOffset(2, offset); err != nil {
			return nil, offset, err
		}
		offset += 2
		v.NAlleles = binary.LittleEndian.Uint16(vr.buffer[:2])
	}

	// Allele slice
	v.Alleles = make([]Allele, 0, v.NAlleles)
	for i := uint16(0); i < v.NAlleles; i++ {
		if err = vr.readNBytesAtOffset(4, offset); err != nil {
			return nil, offset, err
		}
		offset += 4
		alleleLength := int(binary.LittleEndian.Uint32(vr.buffer[:4]))

		if err = vr.readNBytesAtOffset(alleleLength, offset); err != nil {
			return nil, offset, err
		}
		offset += int64(alleleLength)
		v.Alleles = append(v.Alleles, Allele(string(vr.buffer[:alleleLength])))
	}

	// Genotype data
	var block []byte
	if block, offset, err = vr.readGenotypeBlock(offset); err != nil {
		return nil, offset, fmt.Errorf("variant %s: %w", v.RSID, err)
	}

	if vr.b.FlagLayout == Layout1 {
		v.Probabilities, err = parseLayout1Probabilities(block, vr.b.NSamples)
	} else {
		v.Probabilities, err = parseLayout2Probabilities(block, vr.b.NSamples, v.NAlleles)
	}
	if err != nil {
		return nil, offset, fmt.Errorf("variant %s: %w", v.RSID, err)
	}

	return v, offset, nil
}

// readGenotypeBlock returns the uncompressed genotype data of the variant
// whose genotype block begins at offset, and the offset of the next variant.
func (vr *VariantReader) readGenotypeBlock(offset int64) ([]byte, int64, error) {
	if vr.b.FlagLayout == Layout1 && vr.b.FlagCompression == CompressionDisabled {
		// "If CompressedSNPBlocks=0 this field is omitted and the length of
		// the uncompressed data is C=6N."
		size := 6 * int(vr.b.NSamples)
		if err := vr.readNBytesAtOffset(size, offset); err != nil {
			return nil, offset, err
		}
		return vr.buffer[:size], offset + int64(size), nil
	}

	if err := vr.readNBytesAtOffset(4, offset); err != nil {
		return nil, offset, err
	}
	offset += 4
	blockLength := int(binary.LittleEndian.Uint32(vr.buffer[:4]))

	switch vr.b.FlagLayout {
	case Layout1:
		// Layout 1 compressed blocks carry no decompressed size.
		if err := vr.readNBytesAtOffset(blockLength, offset); err != nil {
			return nil, offset, err
		}
		offset += int64(blockLength)

		out, err := DecompressZLIB(vr.decompressed, vr.buffer[:blockLength], 6*int(vr.b.NSamples))
		if err != nil {
			return nil, offset, err
		}
		vr.decompressed = out
		return out, offset, nil

	default:
		if vr.b.FlagCompression == CompressionDisabled {
			if err := vr.readNBytesAtOffset(blockLength, offset); err != nil {
				return nil, offset, err
			}
			return vr.buffer[:blockLength], offset + int64(blockLength), nil
		}

		// "If CompressedSNPBlocks is nonzero, this is C-4 bytes which can be
		// uncompressed to form D bytes"
		if blockLength < 4 {
			return nil, offset, fmt.Errorf("compressed block length %d is too short", blockLength)
		}
		if err := vr.readNBytesAtOffset(4, offset); err != nil {
			return nil, offset, err
		}
		offset += 4
		decompressedLength := int(binary.LittleEndian.Uint32(vr.buffer[:4]))

		compressedLength := blockLength - 4
		if err := vr.readNBytesAtOffset(compressedLength, offset); err != nil {
			return nil, offset, err
		}
		offset += int64(compressedLength)

		var out []byte
		var err error
		if vr.b.FlagCompression == CompressionZLIB {
			out, err = DecompressZLIB(vr.decompressed, vr.buffer[:compressedLength], decompressedLength)
		} else {
			out, err = DecompressZStandard(vr.decompressed, vr.buffer[:compressedLength])
		}
		if err != nil {
			return nil, offset, err
		}
		if len(out) != decompressedLength {
			return nil, offset, fmt.Errorf("decompressed %d bytes, expected %d", len(out), decompressedLength)
		}
		vr.decompressed = out
		return out, offset, nil
	}
}

func parseLayout1Probabilities(data []byte, nSamples uint32) (*Probability, error) {
	if len(data) != 6*int(nSamples) {
		return nil, fmt.Errorf("Layout1 block is %d bytes, expected %d", len(data), 6*nSamples)
	}

	p := &Probability{
		NSamples:            nSamples,
		NAlleles:            2,
		MinimumPloidy:       2,
		MaximumPloidy:       2,
		NProbabilityBits:    16,
		SampleProbabilities: make([]*SampleProbability, nSamples),
	}

	for i := range p.SampleProbabilities {
		sp := &SampleProbability{Ploidy: 2, Probabilities: make([]float64, 3)}
		allZero := true
		for k := 0; k < 3; k++ {
			raw := binary.LittleEndian.Uint16(data[6*i+2*k:])
			if raw != 0 {
				allZero = false
			}
			sp.Probabilities[k] = float64(raw) / 32768
		}
		if allZero {
			sp.Missing = true
			sp.Probabilities = nil
		}
		p.SampleProbabilities[i] = sp
	}

	return p, nil
}

func parseLayout2Probabilities(data []byte, nSamples uint32, nAlleles uint16) (*Probability, error) {
	const fixed = 4 + 2 + 1 + 1
	if len(data) < fixed {
		return nil, fmt.Errorf("Layout2 block is %d bytes", len(data))
	}

	p := &Probability{
		NSamples:      binary.LittleEndian.Uint32(data[0:4]),
		NAlleles:      binary.LittleEndian.Uint16(data[4:6]),
		MinimumPloidy: data[6],
		MaximumPloidy: data[7],
	}
	if p.NSamples != nSamples {
		return nil, fmt.Errorf("block lists %d samples, expected %d", p.NSamples, nSamples)
	}
	if p.NAlleles != nAlleles {
		return nil, fmt.Errorf("block lists %d alleles, expected %d", p.NAlleles, nAlleles)
	}

	pos := fixed + int(nSamples)
	if len(data) < pos+2 {
		return nil, fmt.Errorf("Layout2 block is %d bytes, too short for %d samples", len(data), nSamples)
	}
	ploidies := data[fixed:pos]
	p.Phased = data[pos] == 1
	p.NProbabilityBits = data[pos+1]
	if p.NProbabilityBits < 1 || p.NProbabilityBits > 32 {
		return nil, fmt.Errorf("%d bits per probability is outside 1-32", p.NProbabilityBits)
	}

	if p.NAlleles == 0 {
		return nil, fmt.Errorf("variant has no alleles")
	}

	nbits := int(p.NProbabilityBits)
	denominator := float64(uint64(1)<<uint(nbits) - 1)
	k := int(p.NAlleles)

	br := newBitReader(bytes.NewReader(data[pos+2:]))
	p.SampleProbabilities = make([]*SampleProbability, nSamples)
	for i, pl := range ploidies {
		sp := &SampleProbability{
			Missing: pl&0x80 != 0,
			Ploidy:  pl & 63,
		}
		z := int(sp.Ploidy)

		// Stored values per sample; the last value of each distribution
		// is implied.
		var stored, perGroup int
		if p.Phased {
			stored = z * (k - 1)
			perGroup = k - 1
		} else {
			stored = Choose(z+k-1, k-1) - 1
			perGroup = stored
		}

		values := make([]float64, 0, stored+z+1)
		sum := 0.0
		for j := 0; j < stored; j++ {
			raw, err := br.ReadUint(nbits)
			if err != nil {
				return nil, fmt.Errorf("sample %d: %w", i, err)
			}
			val := float64(raw) / denominator
			values = append(values, val)
			sum += val
			if perGroup > 0 && (j+1)%perGroup == 0 {
				values = append(values, math.Max(0, 1-sum))
				sum = 0
			}
		}
		if perGroup == 0 && z > 0 {
			// A single allele leaves nothing stored.
			for g := 0; g < z && p.Phased; g++ {
				values = append(values, 1)
			}
			if !p.Phased {
				values = append(values, 1)
			}
		}

		if !sp.Missing {
			sp.Probabilities = values
		}
		p.SampleProbabilities[i] = sp
	}

	return p, nil
}

// readString16 reads a string with a 2-byte length prefix.
func (vr *VariantReader) readString16(offset int64) (string, int64, error) {
	if err := vr.readNBytesAtOffset(2, offset); err != nil {
		return "", offset, err
	}
	offset += 2
	size := int(binary.LittleEndian.Uint16(vr.buffer[:2]))
	if err := vr.readNBytesAtOffset(size, offset); err != nil {
		return "", offset, err
	}
	return string(vr.buffer[:size]), offset + int64(size), nil
}

func (vr *VariantReader) readNBytesAtOffset(N int, offset int64) error {
	if len(vr.buffer) < N {
		vr.buffer = make([]byte, N)
	}

	return vr.b.parseAtOffsetWithBuffer(offset, vr.buffer[:N])
}
