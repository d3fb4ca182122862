package storageprovider

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/dgraph-io/badger/v4"

	"github.com/bitdrift/crashreport/internal/storageutil"
)

// Badger implements storageutil.ObjectHandler on a local badger database,
// for devices and hosts that keep their report archive on disk.
type Badger struct {
	DB *badger.DB
}

// Put buffers the object and stores it when the writer is closed.
func (b *Badger) Put(ctx context.Context, name string) (io.WriteCloser, error) {
	return &badgerWriter{
		ctx:  ctx,
		buf:  &bytes.Buffer{},
		txn:  b.DB.NewTransaction(true),
		name: name,
	}, nil
}

// Get reads the object stored as name.
// If a key was not found, it will return ErrObjectNotFound.
func (b *Badger) Get(ctx context.Context, name string) (storageutil.ReadSizeCloser, error) {
	txn := b.DB.NewTransaction(false)
	item, err := txn.Get([]byte(name))
	if err != nil {
		txn.Discard()
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, storageutil.ErrObjectNotFound
		}
		return nil, err
	}

	value, err := item.ValueCopy(nil)
	if err != nil {
		txn.Discard()
		return nil, err
	}

	return &badgerReader{
		txn:    txn,
		reader: bytes.NewReader(value),
		size:   item.ValueSize(),
	}, nil
}

// badgerWriter implements io.WriteCloser
type badgerWriter struct {
	ctx  context.Context
	buf  *bytes.Buffer
	txn  *badger.Txn
	name string
}

func (bw *badgerWriter) Write(p []byte) (int, error) {
	n, err := bw.buf.Write(p)
	if err != nil {
		bw.txn.Discard()
	}
	return n, err
}

// Close commits the object. A canceled context discards it instead.
func (bw *badgerWriter) Close() error {
	if err := bw.ctx.Err(); err != nil {
		bw.txn.Discard()
		return err
	}
	err := bw.txn.Set([]byte(bw.name), bw.buf.Bytes())
	if err != nil {
		bw.txn.Discard()
		return err
	}
	return bw.txn.Commit()
}

// badgerReader implements storageutil.ReadSizeCloser
type badgerReader struct {
	txn    *badger.Txn
	reader io.Reader
	size   int64
}

func (b *badgerReader) Read(p []byte) (int, error) {
	return b.reader.Read(p)
}

// Close ends the read-only transaction.
func (b *badgerReader) Close() error {
	b.txn.Discard()
	return nil
}

func (b *badgerReader) Size() int64 {
	return b.size
}
