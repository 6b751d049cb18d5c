// Package storage wraps the partner-documents bucket behind a small
// upload/download/sign contract.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectStore is the behavior the pipeline depends on.
type ObjectStore interface {
	// Upload stores body under key and returns the key.
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
	// Download fetches the full object at key.
	Download(ctx context.Context, key string) ([]byte, error)
	// SignedURL returns a time-bound read URL for key.
	SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// S3Store implements ObjectStore against a single S3 bucket.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	logger  *slog.Logger
}

// NewS3Store loads AWS config for region and returns a store bound to bucket.
func NewS3Store(ctx context.Context, region, bucket string, logger *slog.Logger) (*S3Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg, err := awsCfg.LoadDefaultConfig(ctx, awsCfg.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		logger:  logger,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	start := time.Now()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.logger.Error("storage.upload.error", "key", key, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	s.logger.Info("storage.upload.ok", "key", key, "bytes", len(body), "elapsed_ms", time.Since(start).Milliseconds())
	return key, nil
}

func (s *S3Store) Download(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.logger.Error("storage.download.error", "key", key, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer func() {
		if cerr := out.Body.Close(); cerr != nil {
			s.logger.Warn("storage.download.body_close_error", "key", key, "error", cerr)
		}
	}()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	s.logger.Info("storage.download.ok", "key", key, "bytes", len(data), "elapsed_ms", time.Since(start).Milliseconds())
	return data, nil
}

func (s *S3Store) SignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, func(o *s3.PresignOptions) { o.Expires = ttl })
	if err != nil {
		s.logger.Error("storage.sign.error", "key", key, "error", err)
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return req.URL, nil
}
