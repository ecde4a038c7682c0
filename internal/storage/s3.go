package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds settings for an S3-compatible store (Cloudflare R2).
type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PresignTTL      time.Duration
}

// S3Store talks to an S3-compatible bucket.
type S3Store struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	bucket     string
	presignTTL time.Duration
}

// NewS3Store constructs an S3Store for the configured endpoint.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, errLoad := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		),
	)
	if errLoad != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", errLoad)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
	})

	presignTTL := cfg.PresignTTL
	if presignTTL <= 0 {
		presignTTL = time.Minute
	}

	return &S3Store{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		bucket:     cfg.Bucket,
		presignTTL: presignTTL,
	}, nil
}

// Put uploads a blob.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	_, errPut := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	if errPut != nil {
		return fmt.Errorf("storage: put %s: %w", key, errPut)
	}
	return nil
}

// Delete removes a blob.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, errDelete := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if errDelete != nil {
		return fmt.Errorf("storage: delete %s: %w", key, errDelete)
	}
	return nil
}

// PresignGet implements BlobStore.
func (s *S3Store) PresignGet(ctx context.Context, key string) (string, error) {
	req, errPresign := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.presignTTL))
	if errPresign != nil {
		return "", fmt.Errorf("storage: presign %s: %w", key, errPresign)
	}
	return req.URL, nil
}
