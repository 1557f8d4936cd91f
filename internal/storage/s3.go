package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"pixelbox/internal/logging"
	"pixelbox/internal/metrics"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds the configuration for the S3 mirror.
type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // S3-compatible endpoint, e.g. MinIO
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// objectPutter is the subset of *s3.Client the mirror uses.
type objectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Mirror uploads outputs to a bucket.
type S3Mirror struct {
	client objectPutter
	bucket string
	prefix string
}

// NewS3Mirror creates an S3 client from cfg. Static credentials are used
// when both keys are set; otherwise the default AWS credential chain applies.
// A custom endpoint implies path-style addressing.
func NewS3Mirror(ctx context.Context, cfg S3Config) (*S3Mirror, error) {
	configOpts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.UsePathStyle {
			o.UsePathStyle = true
		}
	})

	return &S3Mirror{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Key returns the object key for an output name.
func (m *S3Mirror) Key(name string) string {
	name = strings.TrimLeft(path.Clean("/"+name), "/")
	if m.prefix == "" {
		return name
	}
	return path.Join(m.prefix, name)
}

// Put uploads data under the prefixed key and returns an s3:// URI.
func (m *S3Mirror) Put(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := m.Key(name)
	start := time.Now()

	_, err := m.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(m.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	metrics.MirrorUploadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.MirrorUploadsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("upload to S3: %w", err)
	}
	metrics.MirrorUploadsTotal.WithLabelValues("success").Inc()

	location := fmt.Sprintf("s3://%s/%s", m.bucket, key)
	logging.Debug("Mirrored %s to %s", name, location)
	return location, nil
}
