// Package storage opens table data files on local disk, S3, GCS and Azure
// Blob Storage.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

// File is an open data file. Parquet readers need random access.
type File interface {
	ReadAt(p []byte, off int64) (int, error)
	Seek(offset int64, whence int) (int64, error)
	Close() error
}

// Store opens files addressed by path or URI.
type Store interface {
	Open(ctx context.Context, path string) (File, error)
}

// Options configures the remote backends. A backend without credentials is
// not registered and paths with its scheme fail to open.
type Options struct {
	S3    S3Options
	GCS   GCSOptions
	Azure AzureOptions
}

// Router dispatches to a backend by URI scheme. Paths without a scheme, and
// file:// URIs, are read from local disk.
type Router struct {
	local  Store
	stores map[string]Store
}

var _ Store = (*Router)(nil)

// NewRouter builds the configured backends.
func NewRouter(ctx context.Context, opts Options) (*Router, error) {
	r := &Router{local: Local{}, stores: map[string]Store{}}

	if opts.S3.configured() {
		r.stores["s3"] = NewS3(opts.S3)
	}
	if opts.GCS.CredentialsFile != "" {
		gcs, err := NewGCS(ctx, opts.GCS)
		if err != nil {
			return nil, err
		}
		r.stores["gs"] = gcs
	}
	if opts.Azure.AccountName != "" {
		az, err := NewAzure(opts.Azure)
		if err != nil {
			return nil, err
		}
		r.stores["az"] = az
		r.stores["abfss"] = az
	}
	return r, nil
}

// Register installs store for scheme, replacing any configured backend.
func (r *Router) Register(scheme string, store Store) {
	r.stores[strings.ToLower(scheme)] = store
}

// Schemes lists the remote schemes that can be opened.
func (r *Router) Schemes() []string {
	out := make([]string, 0, len(r.stores))
	for s := range r.stores {
		out = append(out, s)
	}
	return out
}

// Open opens path with the backend matching its scheme.
func (r *Router) Open(ctx context.Context, path string) (File, error) {
	scheme := Scheme(path)
	if scheme == "" || scheme == "file" {
		return r.local.Open(ctx, path)
	}
	store, ok := r.stores[scheme]
	if !ok {
		return nil, fmt.Errorf("no storage backend configured for %s:// (path %q)", scheme, path)
	}
	return store.Open(ctx, path)
}

// Scheme returns the lower-cased URI scheme of path, or "" for plain paths.
func Scheme(path string) string {
	i := strings.Index(path, "://")
	if i <= 0 {
		return ""
	}
	return strings.ToLower(path[:i])
}

// Join resolves rel against base. An absolute rel (a URI or a rooted local
// path) is returned unchanged.
func Join(base, rel string) string {
	if rel == "" {
		return base
	}
	if base == "" || Scheme(rel) != "" || filepath.IsAbs(rel) {
		return rel
	}
	if Scheme(base) != "" {
		return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(rel, "/")
	}
	joined := filepath.Join(base, rel)
	if strings.HasSuffix(rel, "/") {
		joined += "/"
	}
	return joined
}

// memFile serves a downloaded object from memory.
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func newMemFile(data []byte) File { return memFile{bytes.NewReader(data)} }

// splitBucketKey parses scheme://bucket/key.
func splitBucketKey(path, scheme string) (bucket, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("parse path %q: %w", path, err)
	}
	if u.Scheme != scheme {
		return "", "", fmt.Errorf("expected %s:// scheme, got %q in %q", scheme, u.Scheme, path)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("empty bucket in path %q", path)
	}
	if key == "" {
		return "", "", fmt.Errorf("empty key in path %q", path)
	}
	return bucket, key, nil
}
