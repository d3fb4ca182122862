package storageutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pierrec/lz4/v4"
)

const operationTimeout = 5 * time.Second

// ErrObjectNotFound indicates an object was not found.
var ErrObjectNotFound = errors.New("object not found")

type ReadSizeCloser interface {
	io.Reader
	io.Closer
	Size() int64
}

// ObjectHandler provides common interface for multiple storage providers.
type ObjectHandler interface {
	// Put writes a file to the storage provider with name being the path.
	Put(ctx context.Context, name string) (io.WriteCloser, error)
	// Get reads a file from the storage provider with name being the path.
	// If a key was not found, it will return ErrObjectNotFound.
	Get(ctx context.Context, name string) (ReadSizeCloser, error)
}

// CompressedWrite compresses r with lz4 and stores it as objectName. It
// returns the number of uncompressed bytes stored.
//
// On failure the object writer is still closed, after its context has been
// canceled, so providers discard the partial object instead of storing it.
func CompressedWrite(ctx context.Context, b ObjectHandler, objectName string, r io.Reader) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	ow, err := b.Put(ctx, objectName)
	if err != nil {
		return 0, err
	}
	zw := lz4.NewWriter(ow)
	_ = zw.Apply(lz4.CompressionLevelOption(lz4.Level9))
	n, err := io.Copy(zw, r)
	if err == nil {
		err = zw.Close()
	}
	if err != nil {
		cancel()
		_ = ow.Close()
		return n, err
	}
	err = ow.Close()
	if err != nil {
		return n, err
	}
	return n, nil
}

// ReadCompressed reads and decompresses objectName.
func ReadCompressed(ctx context.Context, b ObjectHandler, objectName string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	or, err := b.Get(ctx, objectName)
	if err != nil {
		return nil, err
	}
	defer or.Close()

	var out bytes.Buffer
	if size := or.Size(); size > 0 {
		out.Grow(int(size))
	}
	zr := lz4.NewReader(or)
	if _, err := io.Copy(&out, zr); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// StoragePath names the archived report of a crash.
func StoragePath(bundleID string, pid int, crashedAt time.Time) string {
	if bundleID == "" {
		bundleID = "unknown"
	}
	return fmt.Sprintf(
		"%s/%d/%d.bjn.lz4",
		strings.ReplaceAll(bundleID, "/", "_"),
		crashedAt.UTC().Unix(),
		pid,
	)
}
