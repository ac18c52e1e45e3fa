package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioStore implements Store against a MinIO (or any S3-compatible) bucket.
type MinioStore struct {
	client *minio.Client
	bucket string

	// publicEndpoint/publicSecure describe how browsers reach the bucket,
	// which may differ from the internal endpoint the backend uploads to.
	publicEndpoint string
	publicSecure   bool
}

// MinioOptions carries the connection settings for NewMinio.
type MinioOptions struct {
	Endpoint       string
	AccessKey      string
	SecretKey      string
	Bucket         string
	UseSSL         bool
	PublicEndpoint string
	PublicUseSSL   bool
}

// NewMinio connects to the object store and verifies the bucket exists.
func NewMinio(ctx context.Context, opts MinioOptions) (*MinioStore, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to object store: %w", err)
	}

	exists, err := client.BucketExists(ctx, opts.Bucket)
	if err != nil {
		return nil, fmt.Errorf("checking bucket %q: %w", opts.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %q does not exist", opts.Bucket)
	}

	public := opts.PublicEndpoint
	if public == "" {
		public = opts.Endpoint
	}
	return &MinioStore{
		client:         client,
		bucket:         opts.Bucket,
		publicEndpoint: public,
		publicSecure:   opts.PublicUseSSL,
	}, nil
}

// Put uploads the object under path.
func (s *MinioStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, path, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("uploading %q: %w", path, err)
	}
	return nil
}

// Remove deletes the object at path.
func (s *MinioStore) Remove(ctx context.Context, path string) error {
	return s.client.RemoveObject(ctx, s.bucket, path, minio.RemoveObjectOptions{})
}

// PublicURL returns the browser-facing URL of a stored object.
func (s *MinioStore) PublicURL(path string) string {
	return publicURL(s.publicSecure, s.publicEndpoint, s.bucket, path)
}
