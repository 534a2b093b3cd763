// Package archive writes JSON-lines objects to a gocloud.dev blob bucket
// (file://, s3://, mem://).
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"
)

// Archiver writes record batches to a bucket.
type Archiver struct {
	bucket *blob.Bucket
}

// Open opens the bucket named by url, e.g. file:///var/lib/orderbus/archive.
func Open(ctx context.Context, url string) (*Archiver, error) {
	bucket, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive bucket: %w", err)
	}
	return &Archiver{bucket: bucket}, nil
}

// New wraps an already open bucket.
func New(bucket *blob.Bucket) *Archiver {
	return &Archiver{bucket: bucket}
}

// Write stores records as one JSON document per line under key.
func (a *Archiver) Write(ctx context.Context, key string, records []any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return fmt.Errorf("failed to encode archive record: %w", err)
		}
	}

	opts := &blob.WriterOptions{ContentType: "application/x-ndjson"}
	if err := a.bucket.WriteAll(ctx, key, buf.Bytes(), opts); err != nil {
		return fmt.Errorf("failed to write archive %s: %w", key, err)
	}
	return nil
}

// Close releases the bucket.
func (a *Archiver) Close() error {
	return a.bucket.Close()
}
