package storage

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSOptions configures Google Cloud Storage access.
type GCSOptions struct {
	CredentialsFile string // service account key file
}

// GCS reads gs://bucket/key objects.
type GCS struct {
	client *storage.Client
}

var _ Store = (*GCS)(nil)

// NewGCS creates a client from a service account key file.
func NewGCS(ctx context.Context, opts GCSOptions) (*GCS, error) {
	if opts.CredentialsFile == "" {
		return nil, fmt.Errorf("gcs credentials file is required")
	}
	client, err := storage.NewClient(ctx, option.WithAuthCredentialsFile(option.ServiceAccount, opts.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCS{client: client}, nil
}

// Open downloads the object.
func (g *GCS) Open(ctx context.Context, path string) (File, error) {
	bucket, key, err := ParseGCSPath(path)
	if err != nil {
		return nil, err
	}
	r, err := g.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gcs object %q: %w", path, err)
	}
	defer r.Close() //nolint:errcheck

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read gcs object %q: %w", path, err)
	}
	return newMemFile(data), nil
}

// ParseGCSPath extracts bucket and key from a "gs://bucket/path" URI.
func ParseGCSPath(path string) (bucket, key string, err error) {
	return splitBucketKey(path, "gs")
}
