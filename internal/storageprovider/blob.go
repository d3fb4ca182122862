package storageprovider

import (
	"context"
	"fmt"
	"io"

	"gocloud.dev/blob"
	// Bucket URL schemes accepted by OpenBlob.
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	"gocloud.dev/gcerrors"

	"github.com/bitdrift/crashreport/internal/storageutil"
)

const contentType = "application/x-lz4"

// Blob implements storageutil.ObjectHandler on any gocloud bucket.
type Blob struct {
	Bucket *blob.Bucket
}

// OpenBlob opens a bucket URL such as file:///var/reports, mem:// or
// gs://bucket.
func OpenBlob(ctx context.Context, url string) (*Blob, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("could not open bucket %s: %w", url, err)
	}
	return &Blob{Bucket: bucket}, nil
}

func (b *Blob) Put(ctx context.Context, name string) (io.WriteCloser, error) {
	return b.Bucket.NewWriter(ctx, name, &blob.WriterOptions{ContentType: contentType})
}

// Get reads a file from the storage provider with name being the path.
// If a key was not found, it will return ErrObjectNotFound.
func (b *Blob) Get(ctx context.Context, name string) (storageutil.ReadSizeCloser, error) {
	r, err := b.Bucket.NewReader(ctx, name, nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, storageutil.ErrObjectNotFound
		}
		return nil, err
	}
	return r, nil
}

func (b *Blob) Close() error {
	return b.Bucket.Close()
}
