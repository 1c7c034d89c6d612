package store

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/NuHepMC/ReferenceImplementation/pkg/report"
	"github.com/NuHepMC/ReferenceImplementation/pkg/storage/s3"
)

// S3Config configures the S3 backend.
type S3Config struct {
	Bucket string
	Prefix string
	Client s3.Config
}

// S3 stores reports as JSON objects in a bucket.
type S3 struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3 creates an S3 backend.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 store needs a bucket")
	}
	client, err := s3.NewClient(ctx, cfg.Client)
	if err != nil {
		return nil, err
	}
	return NewS3WithClient(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3WithClient creates an S3 backend over an existing client.
func NewS3WithClient(client *s3.Client, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

func (b *S3) key(key string) string {
	return path.Join(b.prefix, key+".json")
}

// Save uploads the report.
func (b *S3) Save(ctx context.Context, key string, r *report.Report) error {
	data, err := report.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return b.client.Put(ctx, b.bucket, b.key(key), "application/json", data)
}

// Load downloads a stored report.
func (b *S3) Load(ctx context.Context, key string) (*report.Report, error) {
	data, err := b.client.Get(ctx, b.bucket, b.key(key))
	if errors.Is(err, s3.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return decode(key, data)
}

// Delete removes a stored report.
func (b *S3) Delete(ctx context.Context, key string) error {
	return b.client.Delete(ctx, b.bucket, b.key(key))
}

// Name returns the backend name.
func (b *S3) Name() string { return BackendS3 }
