// Package archive uploads rendered issues to S3 so emails can link to a
// hosted copy.
package archive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gabriel-vasile/mimetype"

	"auto_digest_publisher/config"
)

// PutObjectAPI is the part of the S3 client the archive uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archive writes issue pages to {prefix}/{slug}.html in one bucket.
type Archive struct {
	api     PutObjectAPI
	bucket  string
	prefix  string
	baseURL string
	logger  *log.Logger
}

// New wraps an existing S3 client. baseURL is the public origin serving the
// bucket; when empty the virtual-hosted S3 URL is used.
func New(api PutObjectAPI, bucket, prefix, baseURL string, logger *log.Logger) (*Archive, error) {
	if api == nil {
		return nil, errors.New("archive requires an s3 client")
	}
	if bucket == "" {
		return nil, errors.New("archive bucket is required")
	}
	if logger == nil {
		logger = log.Default()
	}
	if baseURL == "" {
		baseURL = "https://" + bucket + ".s3.amazonaws.com"
	}
	return &Archive{
		api:     api,
		bucket:  bucket,
		prefix:  strings.Trim(prefix, "/"),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}, nil
}

// NewFromConfig loads AWS credentials from the default chain.
func NewFromConfig(ctx context.Context, cfg config.ArchiveConfig, logger *log.Logger) (*Archive, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	if awsCfg.Region == "" {
		awsCfg.Region = "us-east-1"
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		// MinIO / LocalStack 等兼容端点需要 path-style。
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}
	return New(s3.NewFromConfig(awsCfg, s3Opts...), cfg.Bucket, cfg.Prefix, cfg.BaseURL, logger)
}

// Key is the object key for an issue slug.
func (a *Archive) Key(slug string) string {
	if a.prefix == "" {
		return slug + ".html"
	}
	return path.Join(a.prefix, slug+".html")
}

// URL is the public link for a key.
func (a *Archive) URL(key string) string {
	return a.baseURL + "/" + key
}

// Upload stores the page and returns its public URL.
func (a *Archive) Upload(ctx context.Context, slug, html string) (string, error) {
	if slug == "" {
		return "", errors.New("archive upload requires a slug")
	}
	body := []byte(html)
	key := a.Key(slug)
	contentType := mimetype.Detect(body).String()

	_, err := a.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(a.bucket),
		Key:          aws.String(key),
		Body:         strings.NewReader(html),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=3600"),
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", a.bucket, key, err)
	}
	url := a.URL(key)
	a.logger.Printf("[INFO] [archive] uploaded %d bytes to s3://%s/%s", len(body), a.bucket, key)
	return url, nil
}
