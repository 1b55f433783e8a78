package internal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/lychee-technology/studiokit"
	"go.uber.org/zap"
)

type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink uploads exported files to a bucket under an optional key prefix.
type S3Sink struct {
	uploader objectUploader
	bucket   string
	prefix   string
}

var _ studiokit.FileSink = (*S3Sink)(nil)

func NewS3Sink(uploader objectUploader, bucket, prefix string) *S3Sink {
	return &S3Sink{uploader: uploader, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// ValidateExportConfig performs basic sanity checks on the S3 export settings.
func ValidateExportConfig(cfg studiokit.ExportConfig) error {
	if cfg.S3Bucket == "" {
		return fmt.Errorf("export.s3Bucket is required")
	}
	if cfg.S3AccessKey != "" && cfg.S3SecretKey == "" {
		return fmt.Errorf("s3AccessKey provided without s3SecretKey")
	}
	if cfg.S3SecretKey != "" && cfg.S3AccessKey == "" {
		return fmt.Errorf("s3SecretKey provided without s3AccessKey")
	}
	return nil
}

// NewS3Client builds an S3 client from cfg. Static credentials and a custom
// endpoint are used when set, which is how MinIO is reached.
func NewS3Client(ctx context.Context, cfg studiokit.ExportConfig) (*s3.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.S3Region)}
	if cfg.S3AccessKey != "" {
		loadOpts = append(loadOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")))
	}
	if cfg.S3Endpoint != "" {
		loadOpts = append(loadOpts, config.WithBaseEndpoint(cfg.S3Endpoint))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

type bucketAPI interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// EnsureBucket creates bucket when it is missing.
func EnsureBucket(ctx context.Context, client bucketAPI, bucket string) error {
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err == nil {
		return nil
	}
	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)}); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			switch apiErr.ErrorCode() {
			case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
				return nil
			}
		}
		return fmt.Errorf("create bucket: %w", err)
	}
	zap.S().Infow("created export bucket", "bucket", bucket)
	return nil
}

func (s *S3Sink) Key(p string) string {
	p = strings.TrimPrefix(path.Clean("/"+p), "/")
	if s.prefix == "" {
		return p
	}
	return s.prefix + "/" + p
}

func (s *S3Sink) WriteFile(ctx context.Context, p string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.Key(p)),
		Body:   bytes.NewReader(data),
	}
	if ct := mime.TypeByExtension(path.Ext(p)); ct != "" {
		input.ContentType = aws.String(ct)
	}
	if _, err := s.uploader.Upload(ctx, input); err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("s3 upload %s: %s: %w", s.Key(p), apiErr.ErrorCode(), err)
		}
		return fmt.Errorf("s3 upload %s: %w", s.Key(p), err)
	}
	return nil
}
