package genotype

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/genomisc"
	"github.com/carbocation/pfx"
)

// Open reads a HapMap file from a local path or, when client is not nil, from
// a gs:// URL. Compressed input (gzip, zip, xz, bzip2, Z) is detected from its
// leading bytes.
func Open(ctx context.Context, path string, client *storage.Client) (*Table, error) {
	f, err := openLocal(ctx, path, client)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	rc, err := genomisc.MaybeDecompressReadCloserFromFile(f)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}
	defer rc.Close()

	t, err := ReadHapMap(rc)
	if err != nil {
		return nil, pfx.Err(fmt.Errorf("%s: %w", path, err))
	}
	return t, nil
}

// openLocal opens path, first copying gs:// objects to a temporary file that
// is removed when the returned file is closed.
func openLocal(ctx context.Context, path string, client *storage.Client) (*os.File, error) {
	if client == nil || !strings.HasPrefix(path, "gs://") {
		return os.Open(path)
	}

	parts := strings.SplitN(strings.TrimPrefix(path, "gs://"), "/", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("expected gs://bucket/object, got %s", path)
	}

	rc, err := client.Bucket(parts[0]).Object(parts[1]).NewReader(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "ld-*-"+filepath.Base(parts[1]))
	if err != nil {
		return nil, err
	}
	// Unlinked now; the open descriptor keeps the data readable until Close.
	os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, err
	}

	return tmp, nil
}
