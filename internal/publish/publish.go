// Package publish uploads finished run archives to an S3-compatible object
// store.
package publish

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/ironsheep/shoreline-batch/internal/config"
)

// ObjectStore is the part of *minio.Client the publisher uses.
type ObjectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// NewMinIOClient connects to the configured endpoint.
func NewMinIOClient(cfg config.PublishConfig) (*minio.Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("object store endpoint is required")
	}
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:     credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:    cfg.UseSSL,
		Region:    cfg.Region,
		Transport: newTransport(),
	})
}

func newTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Publisher uploads archives into one bucket.
type Publisher struct {
	store  ObjectStore
	bucket string
	prefix string
	region string
	logger *zap.Logger
}

// New returns a Publisher writing to cfg.Bucket under cfg.Prefix.
func New(store ObjectStore, cfg config.PublishConfig, logger *zap.Logger) (*Publisher, error) {
	if store == nil {
		return nil, errors.New("object store is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		store:  store,
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		region: cfg.Region,
		logger: logger,
	}, nil
}

// Key returns the object name of an archive.
func (p *Publisher) Key(zipPath string) string {
	base := filepath.Base(zipPath)
	if p.prefix == "" {
		return base
	}
	return path.Join(p.prefix, base)
}

// Publish uploads zipPath, creating the bucket first if needed, and returns
// the object key. runID is stored as object metadata.
func (p *Publisher) Publish(ctx context.Context, zipPath, runID string) (string, error) {
	if err := p.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket %s: %w", p.bucket, err)
	}

	key := p.Key(zipPath)
	info, err := p.store.FPutObject(ctx, p.bucket, key, zipPath, minio.PutObjectOptions{
		ContentType:  "application/zip",
		UserMetadata: map[string]string{"run-id": runID},
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", zipPath, err)
	}

	p.logger.Info("archive published",
		zap.String("bucket", p.bucket),
		zap.String("key", key),
		zap.Int64("bytes", info.Size))
	return key, nil
}

func (p *Publisher) ensureBucket(ctx context.Context) error {
	exists, err := p.store.BucketExists(ctx, p.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return p.store.MakeBucket(ctx, p.bucket, minio.MakeBucketOptions{Region: p.region})
}
