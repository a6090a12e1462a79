package blob

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	errs "github.com/matzehuels/gridcollage/pkg/errors"
)

// MinIOConfig holds connection settings for an S3-compatible bucket.
type MinIOConfig struct {
	Endpoint  string `toml:"endpoint"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
	Bucket    string `toml:"bucket"`
	UseSSL    bool   `toml:"use_ssl"`
}

// MinIO is a Store backed by an S3-compatible bucket.
type MinIO struct {
	client *minio.Client
	bucket string
}

// NewMinIO connects to the configured endpoint and creates the bucket if it
// does not exist yet.
func NewMinIO(ctx context.Context, cfg MinIOConfig) (*MinIO, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is not configured")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio credentials are not configured")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("minio bucket is not configured")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}

	return &MinIO{client: client, bucket: cfg.Bucket}, nil
}

// Put implements Store.
func (m *MinIO) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	if err := errs.ValidatePath(key); err != nil {
		return err
	}
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

// Get implements Store.
func (m *MinIO) Get(ctx context.Context, key string) (io.ReadCloser, Info, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, Info{}, mapMinIOError(key, err)
	}

	// GetObject is lazy; Stat performs the request and surfaces missing keys.
	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return nil, Info{}, mapMinIOError(key, err)
	}

	return obj, Info{
		Key:         key,
		Size:        stat.Size,
		ContentType: stat.ContentType,
		ModTime:     stat.LastModified,
	}, nil
}

// Delete implements Store.
func (m *MinIO) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return mapMinIOError(key, err)
	}
	return nil
}

// DeletePrefix implements Store.
func (m *MinIO) DeletePrefix(ctx context.Context, prefix string) error {
	objects := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for rerr := range m.client.RemoveObjects(ctx, m.bucket, objects, minio.RemoveObjectsOptions{}) {
		if rerr.Err != nil {
			return fmt.Errorf("delete %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return nil
}

// Close implements Store.
func (m *MinIO) Close() error {
	return nil
}

func mapMinIOError(key string, err error) error {
	if isNoSuchKey(err) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", key, err)
}

func isNoSuchKey(err error) bool {
	if err == nil {
		return false
	}
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}
