package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/thannaske/ocicost/pkg/models"
)

// PutObjectAPI is the part of the S3 client used for uploads
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var _ PutObjectAPI = (*s3.Client)(nil)

// NewS3Client creates an S3 client. With an endpoint set, requests go to that
// S3-compatible service (e.g. the OCI Object Storage compatibility API);
// without access keys the default AWS credential chain is used.
func NewS3Client(ctx context.Context, cfg models.Config) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error

	if cfg.S3Endpoint != "" {
		// Create custom resolver to use the configured endpoint
		customResolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:               cfg.S3Endpoint,
				SigningRegion:     cfg.S3Region,
				HostnameImmutable: true,
			}, nil
		})
		opts = append(opts, config.WithEndpointResolverWithOptions(customResolver))
	}

	if cfg.S3AccessKey != "" && cfg.S3SecretKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, "")
		opts = append(opts, config.WithCredentialsProvider(creds))
	}

	if cfg.S3Region != "" {
		opts = append(opts, config.WithRegion(cfg.S3Region))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK configuration: %w", err)
	}

	return s3.NewFromConfig(awsCfg), nil
}

// Uploader hands finished report files to object storage
type Uploader struct {
	client PutObjectAPI
	log    logrus.FieldLogger
}

// NewUploader creates an Uploader on top of client
func NewUploader(client PutObjectAPI, log logrus.FieldLogger) *Uploader {
	return &Uploader{client: client, log: log}
}

// Upload puts the file at path into bucket under objectName, or under the
// file's base name when objectName is empty. Failures are logged and
// reported as false; the local file is never removed.
func (u *Uploader) Upload(ctx context.Context, path, bucket, objectName string) bool {
	if objectName == "" {
		objectName = filepath.Base(path)
	}
	log := u.log.WithFields(logrus.Fields{"file": path, "bucket": bucket, "object": objectName})

	f, err := os.Open(path)
	if err != nil {
		log.WithError(err).Error("failed to open report for upload")
		return false
	}
	defer f.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(objectName),
		Body:        f,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		log.WithError(err).Error("failed to upload report")
		return false
	}

	log.Info("report uploaded")
	return true
}
