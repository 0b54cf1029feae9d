package bgen

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/carbocation/pfx"
)

type Sample struct {
	SampleID string
}

// ErrNoSampleIDs is returned by ReadSamples when the header flags say the file
// carries no sample identifier block.
var ErrNoSampleIDs = fmt.Errorf("This file indicates that it does not have sample IDs")

// ReadSamples reads the sample identifier block.
func ReadSamples(b *BGEN) ([]Sample, error) {
	if b.reader == nil {
		return nil, pfx.Err(fmt.Errorf("BGEN %s is not open", b.FilePath))
	}

	if !b.FlagHasSampleIDs {
		return nil, ErrNoSampleIDs
	}

	// SamplesStart is at sample_block_length, and SamplesStart+4 is at number_samples
	bufferCount := make([]byte, 4)
	if err := b.parseAtOffsetWithBuffer(int64(b.SamplesStart+4), bufferCount); err != nil {
		return nil, pfx.Err(err)
	}
	if n := binary.LittleEndian.Uint32(bufferCount); n != b.NSamples {
		return nil, pfx.Err(fmt.Errorf("sample block lists %d samples but the header has %d", n, b.NSamples))
	}

	samples := make([]Sample, 0, b.NSamples)

	bufferLength := make([]byte, 2)
	bufferID := make([]byte, 2)
	offset := int64(b.SamplesStart + 8)

	nSamples := int(b.NSamples)
	var sampleTextSize uint16
	for i := 0; i < nSamples; i++ {
		if err := b.parseAtOffsetWithBuffer(offset, bufferLength); err != nil {
			return nil, pfx.Err(err)
		}
		offset += 2

		sampleTextSize = binary.LittleEndian.Uint16(bufferLength)

		if int(sampleTextSize) > cap(bufferID) {
			bufferID = make([]byte, sampleTextSize)
		}
		bufferID = bufferID[:sampleTextSize]
		if err := b.parseAtOffsetWithBuffer(offset, bufferID); err != nil {
			return nil, pfx.Err(err)
		}

		samples = append(samples, Sample{SampleID: string(bufferID)})
		offset += int64(sampleTextSize)
	}

	return samples, nil
}

// sampleNames returns the sample IDs, or 1-based ordinals when the file has
// none.
func sampleNames(b *BGEN) ([]string, error) {
	names := make([]string, b.NSamples)

	samples, err := ReadSamples(b)
	if err == ErrNoSampleIDs {
		for i := range names {
			names[i] = strconv.Itoa(i + 1)
		}
		return names, nil
	} else if err != nil {
		return nil, err
	}

	for i, s := range samples {
		names[i] = s.SampleID
	}
	return names, nil
}
