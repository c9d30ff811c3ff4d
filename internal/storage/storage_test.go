package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheme(t *testing.T) {
	tests := map[string]string{
		"s3://bucket/key":        "s3",
		"GS://bucket/key":        "gs",
		"abfss://c@a.dfs/x":      "abfss",
		"/var/data/file.parquet": "",
		"relative/file.parquet":  "",
		"file:///tmp/x":          "file",
		"://weird":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Scheme(in), in)
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		base, rel, want string
	}{
		{"s3://lake/data/", "main/", "s3://lake/data/main/"},
		{"s3://lake/data/main/", "users/part-1.parquet", "s3://lake/data/main/users/part-1.parquet"},
		{"s3://lake/data", "/abs/x.parquet", "/abs/x.parquet"},
		{"/data/", "main/", "/data/main/"},
		{"/data/main/", "users.parquet", "/data/main/users.parquet"},
		{"/data", "gs://other/x.parquet", "gs://other/x.parquet"},
		{"", "x.parquet", "x.parquet"},
		{"/data", "", "/data"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Join(tc.base, tc.rel), "%s + %s", tc.base, tc.rel)
	}
}

func TestParseS3Path(t *testing.T) {
	bucket, key, err := ParseS3Path("s3://lake/main/users/data.parquet")
	require.NoError(t, err)
	assert.Equal(t, "lake", bucket)
	assert.Equal(t, "main/users/data.parquet", key)

	_, _, err = ParseS3Path("gs://lake/x")
	require.Error(t, err)
	_, _, err = ParseS3Path("s3://lake/")
	require.Error(t, err)
}

func TestParseGCSPath(t *testing.T) {
	bucket, key, err := ParseGCSPath("gs://bkt/a/b.parquet")
	require.NoError(t, err)
	assert.Equal(t, "bkt", bucket)
	assert.Equal(t, "a/b.parquet", key)
}

func TestParseAzurePath(t *testing.T) {
	c, k, err := ParseAzurePath("abfss://lake@acct.dfs.core.windows.net/main/t.parquet")
	require.NoError(t, err)
	assert.Equal(t, "lake", c)
	assert.Equal(t, "main/t.parquet", k)

	c, k, err = ParseAzurePath("az://lake/main/t.parquet")
	require.NoError(t, err)
	assert.Equal(t, "lake", c)
	assert.Equal(t, "main/t.parquet", k)

	_, _, err = ParseAzurePath("abfss://acct.dfs.core.windows.net/x")
	require.Error(t, err)
	_, _, err = ParseAzurePath("az://lake")
	require.Error(t, err)
}

func TestRouter_Local(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello lake"), 0o600))

	r, err := NewRouter(context.Background(), Options{})
	require.NoError(t, err)
	assert.Empty(t, r.Schemes())

	for _, p := range []string{path, "file://" + path} {
		f, err := r.Open(context.Background(), p)
		require.NoError(t, err)
		buf := make([]byte, 4)
		n, err := f.ReadAt(buf, 6)
		require.NoError(t, err)
		assert.Equal(t, "lake", string(buf[:n]))
		require.NoError(t, f.Close())
	}
}

func TestRouter_MissingBackend(t *testing.T) {
	r, err := NewRouter(context.Background(), Options{})
	require.NoError(t, err)
	_, err = r.Open(context.Background(), "s3://lake/x.parquet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no storage backend configured for s3://")
}

type staticStore struct{ data []byte }

func (s staticStore) Open(context.Context, string) (File, error) { return newMemFile(s.data), nil }

func TestRouter_Register(t *testing.T) {
	r, err := NewRouter(context.Background(), Options{})
	require.NoError(t, err)
	r.Register("S3", staticStore{data: []byte("abc")})

	f, err := r.Open(context.Background(), "s3://b/k")
	require.NoError(t, err)
	data, err := io.ReadAll(io.NewSectionReader(f, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestNewRouter_ConfiguresBackends(t *testing.T) {
	r, err := NewRouter(context.Background(), Options{
		S3:    S3Options{Endpoint: "localhost:9000", AccessKeyID: "k", SecretAccessKey: "s", UsePathStyle: true, Insecure: true},
		Azure: AzureOptions{AccountName: "acct", AccountKey: "a2V5"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"s3", "az", "abfss"}, r.Schemes())
}

func TestS3Options_BaseEndpoint(t *testing.T) {
	assert.Equal(t, "", S3Options{}.baseEndpoint())
	assert.Equal(t, "https://minio:9000", S3Options{Endpoint: "minio:9000"}.baseEndpoint())
	assert.Equal(t, "http://minio:9000", S3Options{Endpoint: "minio:9000", Insecure: true}.baseEndpoint())
	assert.Equal(t, "http://x", S3Options{Endpoint: "http://x"}.baseEndpoint())
}
