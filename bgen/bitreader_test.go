package bgen

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// packBits is the inverse of bitReader.ReadUint.
func packBits(values []uint64, nbits int) []byte {
	out := make([]byte, (len(values)*nbits+7)/8)
	pos := 0
	for _, v := range values {
		for i := 0; i < nbits; i++ {
			if v&(1<<uint(i)) != 0 {
				out[pos/8] |= 1 << uint(pos%8)
			}
			pos++
		}
	}
	return out
}

func TestBitReader(t *testing.T) {
	data := []byte{0x05}

	expected := []bool{true, false, true, false, false, false, false, false}
	br := newBitReader(bytes.NewBuffer(data))
	for i, want := range expected {
		got, err := br.ReadBit()
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("bit %d: Got %v, expected %v", i, got, want)
		}
	}

	if _, err := br.ReadBit(); err == nil {
		t.Errorf("expected an error past the end of the data")
	}
}

func TestBitReadUint(t *testing.T) {
	var target uint64 = 3
	data := make([]byte, 8) // Big enough to hold a uint64

	binary.LittleEndian.PutUint64(data, target)

	br := newBitReader(bytes.NewBuffer(data))

	val, err := br.ReadUint(8)
	if err != nil {
		t.Error(err)
	}

	if target != val {
		t.Errorf("Got %d, expected %d", val, target)
	}
}

func TestBitReadPacked(t *testing.T) {
	// 5, 2, 7, 1 packed in 3 bits each.
	data := []byte{213, 3}
	if packed := packBits([]uint64{5, 2, 7, 1}, 3); !bytes.Equal(packed, data) {
		t.Fatalf("Got %v, expected %v", packed, data)
	}

	br := newBitReader(bytes.NewBuffer(data))
	for _, want := range []uint64{5, 2, 7, 1} {
		got, err := br.ReadUint(3)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Got %d, expected %d", got, want)
		}
	}

	values := []uint64{0, 65535, 1, 32768, 12345}
	br = newBitReader(bytes.NewBuffer(packBits(values, 16)))
	for _, want := range values {
		got, err := br.ReadUint(16)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("Got %d, expected %d", got, want)
		}
	}
}
