package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Options configures an S3-compatible endpoint such as MinIO or Hetzner.
type S3Options struct {
	Endpoint        string // host[:port] or full URL; empty uses AWS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	Insecure        bool // plain http for a bare host endpoint
}

func (o S3Options) configured() bool {
	return o.AccessKeyID != "" || o.Endpoint != ""
}

func (o S3Options) baseEndpoint() string {
	if o.Endpoint == "" || strings.Contains(o.Endpoint, "://") {
		return o.Endpoint
	}
	if o.Insecure {
		return "http://" + o.Endpoint
	}
	return "https://" + o.Endpoint
}

// S3 reads objects with GetObject and buffers them in memory.
type S3 struct {
	client *s3.Client
}

var _ Store = (*S3)(nil)

// NewS3 creates an S3 store with static credentials.
func NewS3(opts S3Options) *S3 {
	region := opts.Region
	if region == "" {
		region = "us-east-1"
	}
	o := s3.Options{
		Region:       region,
		UsePathStyle: opts.UsePathStyle,
	}
	if opts.AccessKeyID != "" {
		o.Credentials = credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, "")
	}
	if ep := opts.baseEndpoint(); ep != "" {
		o.BaseEndpoint = aws.String(ep)
	}
	return &S3{client: s3.New(o)}
}

// Open downloads an s3://bucket/key object.
func (s *S3) Open(ctx context.Context, path string) (File, error) {
	bucket, key, err := ParseS3Path(path)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3 object %q: %w", path, err)
	}
	defer out.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3 object %q: %w", path, err)
	}
	return newMemFile(data), nil
}

// ParseS3Path extracts bucket and key from an "s3://bucket/path/to/file" URI.
func ParseS3Path(path string) (bucket, key string, err error) {
	return splitBucketKey(path, "s3")
}
