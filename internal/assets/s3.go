package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithy "github.com/aws/smithy-go"
)

// S3Config configures an S3-compatible backend, modeled on
// artifacts.S3StoreConfig (custom endpoint and path-style support for
// MinIO/R2-style deployments alongside AWS itself).
type S3Config struct {
	Bucket         string
	Region         string
	Endpoint       string
	AccessKeyID    string
	SecretKey      string
	UsePathStyle   bool
	KeyPrefix      string
}

// DefaultS3Config returns an S3Config with sensible defaults.
func DefaultS3Config(bucket string) S3Config {
	return S3Config{Bucket: bucket, Region: "us-east-1"}
}

// S3Backend stores assets as objects in an S3-compatible bucket.
type S3Backend struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewS3Backend builds an S3-compatible backend from cfg.
func NewS3Backend(ctx context.Context, cfg S3Config) (*S3Backend, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("assets: load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = &cfg.Endpoint
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return &S3Backend{client: client, bucket: cfg.Bucket, prefix: cfg.KeyPrefix}, nil
}

func (b *S3Backend) key(id string) string {
	if b.prefix == "" {
		return id
	}
	return b.prefix + "/" + id
}

// Put implements Backend.
func (b *S3Backend) Put(ctx context.Context, id string, mimeType string, data []byte) (string, error) {
	key := b.key(id)
	_, err := b.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &b.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &mimeType,
	})
	if err != nil {
		return "", fmt.Errorf("assets: s3 put: %w", err)
	}
	return key, nil
}

// Get implements Backend.
func (b *S3Backend) Get(ctx context.Context, ref string) ([]byte, error) {
	out, err := b.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &b.bucket, Key: &ref})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchKey" {
			return nil, ErrAssetNotFound
		}
		return nil, fmt.Errorf("assets: s3 get: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// Delete implements Backend.
func (b *S3Backend) Delete(ctx context.Context, ref string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: &b.bucket, Key: &ref})
	if err != nil {
		return fmt.Errorf("assets: s3 delete: %w", err)
	}
	return nil
}
