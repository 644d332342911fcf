package storage

import (
	"bytes"
	"context"
	"errors"
	"time"

	"alcyxob/fitness-coach/internal/config"
	"alcyxob/fitness-coach/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config" // Alias config to avoid clash
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Storage implements the FileStorage interface using an S3-compatible backend.
type s3Storage struct {
	client        *s3.Client        // Regular client for uploads and deletes
	presignClient *s3.PresignClient // Special client for generating presigned URLs
	bucketName    string
	log           *logger.Logger
}

// NewS3Storage creates a new S3 storage service instance.
func NewS3Storage(ctx context.Context, cfg config.S3Config, log *logger.Logger) (FileStorage, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("s3 bucket name is required")
	}

	awsSDKConfig, err := awsCfg.LoadDefaultConfig(ctx,
		awsCfg.WithRegion(cfg.Region),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		log.Error("Failed to load AWS SDK config for S3", "error", err)
		return nil, err
	}

	s3Client := s3.NewFromConfig(awsSDKConfig, func(o *s3.Options) {
		// Custom endpoint for S3-compatible services (MinIO, DigitalOcean Spaces).
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = true // IMPORTANT for S3-compatible like MinIO!
	})

	log.Info("S3 storage initialized", "endpoint", cfg.Endpoint, "bucket", cfg.BucketName)

	return &s3Storage{
		client:        s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    cfg.BucketName,
		log:           log,
	}, nil
}

// PutObject uploads an in-memory object. Audio clips are small enough to buffer.
func (s *s3Storage) PutObject(ctx context.Context, objectKey, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucketName),
		Key:           aws.String(objectKey),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		s.log.Error("Failed to upload object", "key", objectKey, "bucket", s.bucketName, "error", err)
		return err
	}
	return nil
}

// GeneratePresignedDownloadURL creates a temporary URL for downloading (GET).
func (s *s3Storage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	if expires <= 0 {
		expires = DefaultPresignedURLExpiry
	}

	presignParams := &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	}

	req, err := s.presignClient.PresignGetObject(ctx, presignParams, s3.WithPresignExpires(expires))
	if err != nil {
		s.log.Error("Failed to generate presigned GET URL", "key", objectKey, "error", err)
		return "", err
	}

	return req.URL, nil
}

// DeleteObject removes an object from the S3 bucket.
func (s *s3Storage) DeleteObject(ctx context.Context, objectKey string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		s.log.Error("Failed to delete object", "key", objectKey, "bucket", s.bucketName, "error", err)
		return err
	}

	s.log.Info("Deleted object", "key", objectKey, "bucket", s.bucketName)
	return nil
}
