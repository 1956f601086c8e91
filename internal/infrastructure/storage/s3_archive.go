// Package storage archives raw webhook deliveries to S3-compatible object storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	infraconfig "github.com/club19/salesos/internal/infrastructure/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrArchiveKeyRequired = errors.New("storage: archive key is required")
	ErrArchiveNotFound    = errors.New("storage: archived delivery not found")
)

const (
	defaultPrefix   = "webhooks"
	jsonContentType = "application/json"
)

// S3DeliveryArchive stores each raw webhook body under
// <prefix>/yyyy/mm/dd/<delivery-id>.json so it can be replayed by hand.
// It works with any S3-compatible backend (AWS S3, MinIO, RustFS).
type S3DeliveryArchive struct {
	client *s3.Client
	bucket string
	prefix string
	logger *zap.Logger
}

// S3DeliveryArchiveOption is a functional option for configuring S3DeliveryArchive
type S3DeliveryArchiveOption func(*S3DeliveryArchive)

// WithLogger sets a custom logger
func WithLogger(logger *zap.Logger) S3DeliveryArchiveOption {
	return func(a *S3DeliveryArchive) {
		a.logger = logger
	}
}

// NewS3DeliveryArchive creates an archive from configuration
func NewS3DeliveryArchive(cfg *infraconfig.StorageConfig, opts ...S3DeliveryArchiveOption) (*S3DeliveryArchive, error) {
	if cfg == nil {
		return nil, errors.New("storage configuration is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("storage bucket is required")
	}
	if cfg.AccessKey == "" {
		return nil, errors.New("storage access key is required")
	}
	if cfg.SecretKey == "" {
		return nil, errors.New("storage secret key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "http://localhost:9000"
	}
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if cfg.UseSSL {
			endpoint = "https://" + endpoint
		} else {
			endpoint = "http://" + endpoint
		}
	}
	if _, err := url.Parse(endpoint); err != nil {
		return nil, fmt.Errorf("invalid storage endpoint: %w", err)
	}

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		o.BaseEndpoint = aws.String(endpoint)
	})

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = defaultPrefix
	}

	archive := &S3DeliveryArchive{
		client: client,
		bucket: cfg.Bucket,
		prefix: prefix,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(archive)
	}
	return archive, nil
}

// DeliveryKey builds the object key for a delivery received at receivedAt.
// An empty delivery id gets a random one so nothing is overwritten.
func DeliveryKey(prefix, deliveryID string, receivedAt time.Time) string {
	if deliveryID == "" {
		deliveryID = uuid.NewString()
	}
	// Delivery ids come from a request header; keep them out of the path structure.
	deliveryID = strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(deliveryID)
	utc := receivedAt.UTC()
	return path.Join(prefix, utc.Format("2006"), utc.Format("01"), utc.Format("02"), deliveryID+".json")
}

// EnsureBucket creates the bucket if it doesn't exist
func (a *S3DeliveryArchive) EnsureBucket(ctx context.Context) error {
	_, err := a.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *types.NotFound
	var noSuchBucket *types.NoSuchBucket
	if !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	a.logger.Info("Creating delivery archive bucket", zap.String("bucket", a.bucket))
	_, err = a.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(a.bucket),
	})
	if err != nil {
		var alreadyOwned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &alreadyOwned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// Archive writes body and returns the object key
func (a *S3DeliveryArchive) Archive(ctx context.Context, deliveryID string, receivedAt time.Time, body []byte) (string, error) {
	key := DeliveryKey(a.prefix, deliveryID, receivedAt)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(jsonContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive delivery: %w", err)
	}

	a.logger.Debug("Archived webhook delivery", zap.String("key", key), zap.Int("bytes", len(body)))
	return key, nil
}

// Fetch reads an archived body back for replay
func (a *S3DeliveryArchive) Fetch(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, ErrArchiveKeyRequired
	}

	out, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		var notFound *types.NotFound
		if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, key)
		}
		return nil, fmt.Errorf("failed to fetch archived delivery: %w", err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read archived delivery: %w", err)
	}
	return body, nil
}

// Bucket returns the bucket name
func (a *S3DeliveryArchive) Bucket() string {
	return a.bucket
}
