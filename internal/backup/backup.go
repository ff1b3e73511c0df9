// Package backup mirrors the store to an S3-compatible bucket. Encrypted
// config values travel as ciphertext together with the salt, so a restored
// store unlocks with the same passphrase.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/Individual-1/notifier/internal/logging"
	"github.com/Individual-1/notifier/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// DefaultKey is the object key used when none is configured.
const DefaultKey = "notifier/backup.json"

// ErrObjectNotFound is returned by Import when no backup exists yet.
var ErrObjectNotFound = errors.New("backup object not found")

// Store is the part of the store a backup reads and replaces.
type Store interface {
	Snapshot(ctx context.Context) (*models.Snapshot, error)
	Restore(ctx context.Context, snap *models.Snapshot) error
}

type Config struct {
	// Endpoint overrides the AWS endpoint for S3-compatible services.
	Endpoint        string
	Region          string
	Bucket          string
	Key             string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// Enabled reports whether a bucket is configured.
func (c Config) Enabled() bool {
	return c.Bucket != ""
}

type Backup struct {
	s3     *s3.Client
	bucket string
	key    string
	store  Store
	log    logging.Logger
}

// New builds an S3 client from cfg. Static credentials are used when both
// keys are set; otherwise the default AWS chain applies.
func New(ctx context.Context, cfg Config, store Store, log logging.Logger) (*Backup, error) {
	if !cfg.Enabled() {
		return nil, errors.New("backup bucket is not set")
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	sdkConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(sdkConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewFromS3Client(client, cfg.Bucket, cfg.Key, store, log), nil
}

// NewFromS3Client wraps an existing S3 client.
func NewFromS3Client(client *s3.Client, bucket, key string, store Store, log logging.Logger) *Backup {
	if key == "" {
		key = DefaultKey
	}
	return &Backup{
		s3:     client,
		bucket: bucket,
		key:    key,
		store:  store,
		log:    log.With("module", "backup"),
	}
}

// Export uploads a snapshot of the whole store.
func (b *Backup) Export(ctx context.Context) error {
	snap, err := b.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot store: %w", err)
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = b.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %q: %w", b.key, err)
	}

	b.log.Info(ctx, "backup exported", "bucket", b.bucket, "key", b.key,
		"config", len(snap.Config), "users", len(snap.Users))
	return nil
}

// Import downloads the last snapshot and replaces the store with it.
func (b *Backup) Import(ctx context.Context) error {
	result, err := b.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return ErrObjectNotFound
		}
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return ErrObjectNotFound
		}
		return fmt.Errorf("failed to get object %q: %w", b.key, err)
	}
	defer result.Body.Close()

	body, err := io.ReadAll(result.Body)
	if err != nil {
		return fmt.Errorf("failed to read object %q: %w", b.key, err)
	}

	var snap models.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}

	if err := b.store.Restore(ctx, &snap); err != nil {
		return fmt.Errorf("failed to restore store: %w", err)
	}

	b.log.Info(ctx, "backup imported", "bucket", b.bucket, "key", b.key,
		"config", len(snap.Config), "users", len(snap.Users))
	return nil
}
