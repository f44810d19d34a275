// Package s3storage wraps MinIO/S3 interactions for raw blobs and
// processed OCR artifacts.
package s3storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/papyrushq/papyrus/internal/config"
)

// Storage holds the MinIO client and bucket names.
type Storage struct {
	client          *minio.Client
	rawBucket       string
	processedBucket string
	region          string
}

// New creates a MinIO client from the Config.
func New(cfg *config.Config) (*Storage, error) {
	client, err := minio.New(cfg.S3Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio: %w", err)
	}
	return &Storage{
		client:          client,
		rawBucket:       cfg.RawBucket,
		processedBucket: cfg.ProcessedBucket,
		region:          cfg.S3Region,
	}, nil
}

// EnsureBuckets makes sure the raw/processed buckets exist before use.
func (s *Storage) EnsureBuckets(ctx context.Context) error {
	for _, bucket := range []string{s.rawBucket, s.processedBucket} {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("check bucket %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("make bucket %s: %w", bucket, err)
			}
		}
	}
	return nil
}

// UploadRaw streams an uploaded blob into the raw bucket.
func (s *Storage) UploadRaw(ctx context.Context, objectKey string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := s.client.PutObject(ctx, s.rawBucket, objectKey, reader, size, opts)
	if err != nil {
		return fmt.Errorf("upload raw object: %w", err)
	}
	return nil
}

// DownloadRawToFile fetches the raw blob bytes into a local scratch file
// for the extraction tools to read.
func (s *Storage) DownloadRawToFile(ctx context.Context, objectKey, destPath string) error {
	if err := s.client.FGetObject(ctx, s.rawBucket, objectKey, destPath, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("get raw object: %w", err)
	}
	return nil
}

// PromoteProcessed moves an OCR overlay PDF from the scratch directory into
// the processed bucket. This is the promotion step: extractors only ever
// write to scratch.
func (s *Storage) PromoteProcessed(ctx context.Context, blobID, localPath string) error {
	objectKey := ProcessedObjectKey(blobID)
	opts := minio.PutObjectOptions{ContentType: "application/pdf"}
	if _, err := s.client.FPutObject(ctx, s.processedBucket, objectKey, localPath, opts); err != nil {
		return fmt.Errorf("upload processed object: %w", err)
	}
	return nil
}

// DeleteRaw removes a blob's raw object.
func (s *Storage) DeleteRaw(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.rawBucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove raw object: %w", err)
	}
	return nil
}

// DeleteProcessed removes a blob's processed artifact, if any.
func (s *Storage) DeleteProcessed(ctx context.Context, blobID string) error {
	key := ProcessedObjectKey(blobID)
	if err := s.client.RemoveObject(ctx, s.processedBucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove processed object: %w", err)
	}
	return nil
}

// PresignProcessedURL returns a signed GET URL for the processed artifact.
func (s *Storage) PresignProcessedURL(ctx context.Context, blobID string, expiry time.Duration) (string, error) {
	key := ProcessedObjectKey(blobID)
	u, err := s.client.PresignedGetObject(ctx, s.processedBucket, key, expiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign processed object: %w", err)
	}
	return u.String(), nil
}

// ProcessedObjectKey is the processed-bucket key for a blob's OCR overlay.
func ProcessedObjectKey(blobID string) string {
	return fmt.Sprintf("processed/%s.ocr.pdf", blobID)
}

// RawObjectKey is the raw-bucket key for an uploaded blob.
func RawObjectKey(blobID, fileName string) string {
	return fmt.Sprintf("uploads/%s/%s", blobID, fileName)
}
