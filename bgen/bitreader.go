package bgen

import (
	"io"
)

// bitReader reads the bit-packed probabilities of a Layout 2 block. Values
// are packed least significant bit first, starting at the low bit of each
// byte.
type bitReader struct {
	reader io.ByteReader
	byte   byte
	offset byte

	errCache    error
	lastBit     bool
	resultCache uint64
}

func newBitReader(r io.ByteReader) *bitReader {
	return &bitReader{reader: r, offset: 8}
}

func (r *bitReader) ReadBit() (bool, error) {
	if r.offset == 8 {
		if r.byte, r.errCache = r.reader.ReadByte(); r.errCache != nil {
			return false, r.errCache
		}
		r.offset = 0
	}
	r.lastBit = (r.byte & (1 << r.offset)) != 0
	r.offset++
	return r.lastBit, nil
}

// ReadUint reads an nbits-wide unsigned value, nbits <= 64.
func (r *bitReader) ReadUint(nbits int) (uint64, error) {
	r.resultCache = 0
	for i := 0; i < nbits; i++ {
		r.lastBit, r.errCache = r.ReadBit()
		if r.errCache != nil {
			return 0, r.errCache
		}
		if r.lastBit {
			r.resultCache |= 1 << uint(i)
		}
	}
	return r.resultCache, nil
}
