package bgen

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	zstdOnce    sync.Once
	zstdDecoder *zstd.Decoder
	zstdErr     error
)

// DecompressZStandard decompresses a Zstd compressed block of a Layout 2
// file. dst is reused when it has enough capacity.
func DecompressZStandard(dst, src []byte) ([]byte, error) {
	zstdOnce.Do(func() {
		zstdDecoder, zstdErr = zstd.NewReader(nil)
	})
	if zstdErr != nil {
		return nil, zstdErr
	}

	return zstdDecoder.DecodeAll(src, dst[:0])
}
