// Package blob issues presigned URLs for receipt uploads to S3-compatible
// object storage.
package blob

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

const defaultExpiry = 15 * time.Minute

// S3Config configures the presigner.
type S3Config struct {
	Region    string
	Bucket    string
	AccessKey string
	SecretKey string

	// Endpoint is set for MinIO and other S3-compatible services. It also
	// switches to path-style addressing.
	Endpoint string

	Expiry time.Duration
}

// Enabled reports whether object storage is configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// PresignedURL is a time-limited URL for a single object.
type PresignedURL struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Key       string    `json:"key"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Presigner creates upload and download URLs.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string) (*PresignedURL, error)
	PresignGet(ctx context.Context, key string) (*PresignedURL, error)
}

// S3Presigner implements Presigner for S3.
type S3Presigner struct {
	client *s3.PresignClient
	bucket string
	expiry time.Duration
}

var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3Presigner loads AWS configuration and prepares a presign client.
// Static credentials are used when AccessKey is set, otherwise the default
// AWS credential chain.
func NewS3Presigner(ctx context.Context, cfg S3Config) (*S3Presigner, error) {
	if !cfg.Enabled() {
		return nil, errors.New("S3 bucket is required")
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.Expiry <= 0 {
		cfg.Expiry = defaultExpiry
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3Presigner{
		client: s3.NewPresignClient(client),
		bucket: cfg.Bucket,
		expiry: cfg.Expiry,
	}, nil
}

// PresignPut returns a URL the client can PUT the object to.
func (p *S3Presigner) PresignPut(ctx context.Context, key, contentType string) (*PresignedURL, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return nil, fmt.Errorf("presign put %s: %w", key, err)
	}
	return &PresignedURL{URL: req.URL, Method: req.Method, Key: key, ExpiresAt: time.Now().Add(p.expiry).UTC()}, nil
}

// PresignGet returns a URL the client can GET the object from.
func (p *S3Presigner) PresignGet(ctx context.Context, key string) (*PresignedURL, error) {
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(p.expiry))
	if err != nil {
		return nil, fmt.Errorf("presign get %s: %w", key, err)
	}
	return &PresignedURL{URL: req.URL, Method: req.Method, Key: key, ExpiresAt: time.Now().Add(p.expiry).UTC()}, nil
}

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"image/heic":      ".heic",
	"application/pdf": ".pdf",
}

// ReceiptContentTypes lists what may be uploaded as a receipt.
func ReceiptContentTypes() []string {
	return []string{"image/jpeg", "image/png", "image/webp", "image/heic", "application/pdf"}
}

// ReceiptKey returns a fresh object key for a requirement's receipt.
func ReceiptKey(requirementID, contentType string) string {
	ext := extensions[strings.ToLower(contentType)]
	return path.Join("receipts", requirementID, uuid.New().String()+ext)
}
