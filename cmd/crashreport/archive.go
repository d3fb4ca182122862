package main

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"cloud.google.com/go/storage"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog/log"

	"github.com/bitdrift/crashreport/internal/errorutil"
	"github.com/bitdrift/crashreport/internal/reportnotice"
	"github.com/bitdrift/crashreport/internal/reportreader"
	"github.com/bitdrift/crashreport/internal/storageprovider"
	"github.com/bitdrift/crashreport/internal/storageutil"
)

type archive struct {
	handler storageutil.ObjectHandler
	close   func() error
}

// openArchive opens the report store named by bucketURL.
func openArchive(ctx context.Context, bucketURL string) (*archive, error) {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return nil, fmt.Errorf("invalid bucket url %q: %w", bucketURL, err)
	}
	switch u.Scheme {
	case "gs":
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, err
		}
		return &archive{
			handler: &storageprovider.Gcs{BucketHandle: client.Bucket(u.Host)},
			close:   client.Close,
		}, nil
	case "badger":
		db, err := badger.Open(badger.DefaultOptions(u.Path).WithLogger(nil))
		if err != nil {
			return nil, fmt.Errorf("could not open badger archive %s: %w", u.Path, err)
		}
		return &archive{
			handler: &storageprovider.Badger{DB: db},
			close:   db.Close,
		}, nil
	}
	b, err := storageprovider.OpenBlob(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &archive{handler: b, close: b.Close}, nil
}

// archiveReport uploads the report at path and returns the notice
// describing it.
func archiveReport(ctx context.Context, a *archive, path string) (reportnotice.Notice, error) {
	report, result, err := reportreader.ReadReport(path)
	if err != nil {
		return reportnotice.Notice{}, fmt.Errorf("could not read report %s: %w", path, err)
	}
	switch result {
	case reportreader.ReportDoesNotExist:
		return reportnotice.Notice{}, fmt.Errorf("%w at %s", errorutil.ErrNoReport, path)
	case reportreader.PartialSuccess:
		log.Warn().Str("path", path).Msg("archiving a partial report")
	}

	n := reportnotice.BuildNotice("", report, result)
	n.ObjectName = storageutil.StoragePath(n.BundleIdentifier, int(n.PID), time.Unix(n.CrashedAt, 0))

	f, err := os.Open(path)
	if err != nil {
		return reportnotice.Notice{}, err
	}
	defer f.Close()
	size, err := storageutil.CompressedWrite(ctx, a.handler, n.ObjectName, f)
	if err != nil {
		return reportnotice.Notice{}, fmt.Errorf("could not archive report as %s: %w", n.ObjectName, err)
	}
	log.Info().
		Str("object_name", n.ObjectName).
		Int64("size", size).
		Str("result", result.String()).
		Msg("report archived")
	return n, nil
}

// fetchReport copies an archived report to w.
func fetchReport(ctx context.Context, a *archive, objectName string, w io.Writer) error {
	data, err := storageutil.ReadCompressed(ctx, a.handler, objectName)
	if err != nil {
		return fmt.Errorf("could not fetch %s: %w", objectName, err)
	}
	_, err = w.Write(data)
	return err
}
