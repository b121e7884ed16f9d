package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"gocloud.dev/blob"
)

// publishArchive copies the finished archive into a blob bucket, keyed by the
// archive file name.
func publishArchive(ctx context.Context, path, bucketURL string, logger log.Logger) error {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return fmt.Errorf("can't open bucket %s: %w", bucketURL, err)
	}
	defer bucket.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("can't open archive: %w", err)
	}
	defer f.Close()

	key := filepath.Base(path)

	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		return fmt.Errorf("can't write to bucket %s: %w", bucketURL, err)
	}

	if _, err := io.Copy(w, f); err != nil {
		w.Close()

		return fmt.Errorf("can't upload archive: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("can't upload archive: %w", err)
	}

	level.Info(logger).Log("msg", "archive published", "bucket", bucketURL, "key", key)

	return nil
}
