package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"github.com/Alijeyrad/simorq_screening/config"
)

const defaultReportPrefix = "assessments"

// ReportArchiver stores a completed assessment report.
type ReportArchiver interface {
	PutReport(ctx context.Context, assessmentID uuid.UUID, report any) (string, error)
}

// Client wraps the AWS S3 client configured for an S3-compatible store.
type Client struct {
	s3     *s3.Client
	bucket string
	prefix string
}

// New creates a new S3 client. Path-style addressing is used so that
// S3-compatible providers work without bucket DNS.
func New(ctx context.Context, cfg config.S3Config) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket name is required")
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load config: %w", err)
	}

	cli := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true
	})

	prefix := cfg.ReportPrefix
	if prefix == "" {
		prefix = defaultReportPrefix
	}

	return &Client{s3: cli, bucket: cfg.Bucket, prefix: prefix}, nil
}

// ReportKey returns the object key for an assessment report.
func ReportKey(prefix string, assessmentID uuid.UUID) string {
	if prefix == "" {
		prefix = defaultReportPrefix
	}
	return path.Join(prefix, assessmentID.String()+".json")
}

// PutReport marshals report as JSON and stores it under
// {prefix}/{assessment_id}.json. It returns the object key.
func (c *Client) PutReport(ctx context.Context, assessmentID uuid.UUID, report any) (string, error) {
	body, err := json.Marshal(report)
	if err != nil {
		return "", fmt.Errorf("s3 marshal report: %w", err)
	}
	key := ReportKey(c.prefix, assessmentID)
	if err := c.Upload(ctx, key, "application/json", bytes.NewReader(body), int64(len(body))); err != nil {
		return "", err
	}
	return key, nil
}

// Upload puts a private object into the bucket.
func (c *Client) Upload(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
		ACL:           types.ObjectCannedACLPrivate,
	})
	if err != nil {
		return fmt.Errorf("s3 upload %q: %w", key, err)
	}
	return nil
}
