// Package bgen reads BGEN genotype probability files and converts them into
// hard-called genotype tables.
package bgen

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/genomisc"
	"github.com/carbocation/pfx"
)

// MagicNumber contains the value required to confirm that a file is BGEN-conformant
const MagicNumber = "bgen"

const (
	offsetVariant        = 0
	offsetHeaderLength   = 4
	offsetNumberVariants = 8
	offsetNumberSamples  = 12
	offsetMagicNumber    = 16
	offsetFreeStorage    = 20
)

// BGEN is the main object used for parsing BGEN files
type BGEN struct {
	FilePath         string
	NVariants        uint32
	NSamples         uint32
	FlagCompression  Compression
	FlagLayout       Layout
	FlagHasSampleIDs bool
	SamplesStart     uint32
	VariantsStart    uint32

	reader io.ReaderAt
	closer io.Closer
}

// Open attempts to read a bgen file located at path. If successful,
// this returns a new BGEN object. Otherwise, it returns an error.
func Open(path string) (*BGEN, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}

	b, err := newBGEN(path, file, file)
	if err != nil {
		file.Close()
		return nil, pfx.Err(err)
	}

	return b, nil
}

// OpenFromStorage opens a gs://bucket/object BGEN file. Each read is a ranged
// request bound to ctx. Paths without the gs:// prefix are opened locally.
func OpenFromStorage(ctx context.Context, path string, client *storage.Client) (*BGEN, error) {
	if client == nil || !strings.HasPrefix(path, "gs://") {
		return Open(path)
	}

	parts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(parts) != 2 {
		return nil, pfx.Err(fmt.Errorf("expected gs://bucket/object, got %s", path))
	}

	handle := client.Bucket(parts[0]).Object(parts[1])
	ra := &genomisc.GSReaderAtCloser{
		ObjectHandle: handle,
		Context:      ctx,
	}

	b, err := newBGEN(path, ra, ra)
	if err != nil {
		return nil, pfx.Err(err)
	}

	return b, nil
}

func newBGEN(path string, r io.ReaderAt, c io.Closer) (*BGEN, error) {
	b := &BGEN{
		FilePath: path,
		reader:   r,
		closer:   c,
	}

	if err := populateBGENHeader(b); err != nil {
		return nil, err
	}

	return b, nil
}

// Close releases the underlying file.
func (b *BGEN) Close() error {
	if b.closer == nil {
		return nil
	}
	return b.closer.Close()
}

func populateBGENHeader(b *BGEN) error {
	buffer := make([]byte, 4)

	if err := b.parseAtOffsetWithBuffer(offsetVariant, buffer); err != nil {
		return pfx.Err(err)
	}
	// First variant is at variant_offset + 4
	b.VariantsStart = binary.LittleEndian.Uint32(buffer) + 4

	if err := b.parseAtOffsetWithBuffer(offsetHeaderLength, buffer); err != nil {
		return pfx.Err(err)
	}
	headerLength := int64(binary.LittleEndian.Uint32(buffer))
	if headerLength < offsetFreeStorage {
		return pfx.Err(fmt.Errorf("header length %d is shorter than the fixed header", headerLength))
	}

	b.SamplesStart = uint32(headerLength + 4)

	if err := b.parseAtOffsetWithBuffer(offsetNumberVariants, buffer); err != nil {
		return pfx.Err(err)
	}
	b.NVariants = binary.LittleEndian.Uint32(buffer)

	if err := b.parseAtOffsetWithBuffer(offsetNumberSamples, buffer); err != nil {
		return pfx.Err(err)
	}
	b.NSamples = binary.LittleEndian.Uint32(buffer)

	if err := b.parseAtOffsetWithBuffer(offsetMagicNumber, buffer); err != nil {
		return pfx.Err(err)
	}
	// Some writers leave the magic number zeroed.
	if MagicNumber != string(buffer) && binary.LittleEndian.Uint32(buffer) != 0 {
		return pfx.Err(fmt.Errorf("The BGEN header value at offset %d is expected to resolve to the Magic Number %s, but instead resolved to byte slice %v", offsetMagicNumber, MagicNumber, buffer))
	}

	if err := b.parseAtOffsetWithBuffer(headerLength, buffer); err != nil {
		return pfx.Err(err)
	}
	flags := binary.LittleEndian.Uint32(buffer)
	b.FlagCompression = Compression(flags & 3)
	b.FlagLayout = Layout((flags & (15 << 2)) >> 2)
	b.FlagHasSampleIDs = flags&(1<<31) != 0

	switch {
	case b.FlagLayout == Layout1 && b.FlagCompression == CompressionZStandard:
		return pfx.Err(fmt.Errorf("Compression choice %s is not compatible with %s", b.FlagCompression, b.FlagLayout))
	case b.FlagLayout != Layout1 && b.FlagLayout != Layout2:
		return pfx.Err(fmt.Errorf("%s is not supported", b.FlagLayout))
	case b.FlagCompression > CompressionZStandard:
		return pfx.Err(fmt.Errorf("%s is not supported", b.FlagCompression))
	}

	return nil
}

// parseAtOffsetWithBuffer fills buffer entirely from offset. Remote readers
// may return short reads, so this loops until the buffer is full.
func (b *BGEN) parseAtOffsetWithBuffer(offset int64, buffer []byte) error {
	_, err := io.ReadFull(io.NewSectionReader(b.reader, offset, int64(len(buffer))), buffer)
	if err == io.ErrUnexpectedEOF {
		return io.EOF
	}
	if err != nil {
		return err
	}

	return nil
}
