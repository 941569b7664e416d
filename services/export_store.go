package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/phonginreallife/contracthub/internal/config"
)

const (
	ExportBackendFile = "file"
	ExportBackendS3   = "s3"
)

// ExportStore keeps finished CSV exports
type ExportStore interface {
	// Put stores data under name and returns where it was written
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, name string) ([]byte, error)
}

// NewExportStore creates the store selected by cfg.Backend
func NewExportStore(ctx context.Context, cfg config.ExportConfig, dataDir string) (ExportStore, error) {
	switch cfg.Backend {
	case "", ExportBackendFile:
		return NewFileStore(filepath.Join(dataDir, "exports"))
	case ExportBackendS3:
		if cfg.S3.Bucket == "" {
			return nil, fmt.Errorf("EXPORT_S3_BUCKET is required for S3 storage")
		}
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unsupported export backend: %s", cfg.Backend)
	}
}

// ============================================================================
// FileStore
// ============================================================================

// FileStore writes exports below a local directory
type FileStore struct {
	baseDir string
}

func NewFileStore(baseDir string) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to ensure export dir: %w", err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

var _ ExportStore = (*FileStore)(nil)

func (s *FileStore) path(name string) string {
	return filepath.Join(s.baseDir, filepath.Base(name))
}

func (s *FileStore) Put(ctx context.Context, name string, data []byte) (string, error) {
	path := s.path(name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

func (s *FileStore) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := os.ReadFile(s.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrExportNotFound
		}
		return nil, fmt.Errorf("failed to read export: %w", err)
	}
	return data, nil
}

// ============================================================================
// S3Store
// ============================================================================

// S3Store writes exports to an S3 (or S3-compatible) bucket
type S3Store struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true // Required for MinIO
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

var _ ExportStore = (*S3Store)(nil)

func (s *S3Store) Put(ctx context.Context, name string, data []byte) (string, error) {
	key := s.prefix + name
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put failed: %w", err)
	}
	return "s3://" + s.bucket + "/" + key, nil
}

func (s *S3Store) Get(ctx context.Context, name string) ([]byte, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get failed for %s: %w", name, err)
	}
	defer func() { _ = result.Body.Close() }()

	return io.ReadAll(result.Body)
}
