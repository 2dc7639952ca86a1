package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/onnwee/cinesearch/internal/tracing"
)

// S3Config holds configuration for loading the catalog from an
// S3-compatible bucket (R2, MinIO, AWS).
type S3Config struct {
	Bucket          string
	Key             string // Object key; its extension selects the format
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Region          string // Default: "auto"
}

// S3Source loads a JSON or CBOR snapshot object from a bucket.
type S3Source struct {
	client *s3.Client
	bucket string
	key    string
	format Format
}

// NewS3Source creates a new S3Source with the given configuration.
func NewS3Source(cfg S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.Key == "" {
		return nil, errors.New("object key is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("access key ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("secret access key is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	format, err := FormatFromName(cfg.Key)
	if err != nil {
		return nil, err
	}

	client := s3.New(s3.Options{
		Region: cfg.Region,
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true,
	})

	return &S3Source{
		client: client,
		bucket: cfg.Bucket,
		key:    cfg.Key,
		format: format,
	}, nil
}

// Load downloads and decodes the snapshot object.
func (s *S3Source) Load(ctx context.Context) (titles []Title, err error) {
	ctx, endSpan := tracing.StartObjectSpan(ctx, s.bucket, s.key)
	defer func() { endSpan(err) }()

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog object %s/%s: %w", s.bucket, s.key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog object: %w", err)
	}
	return Decode(data, s.format)
}
