package objectstore

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thannaske/ocicost/pkg/models"
)

type mockS3Client struct {
	putFn func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

func (m *mockS3Client) PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	return m.putFn(ctx, params, optFns...)
}

func writeReport(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "oci_usage_from_2024-01-01_to_2024-01-31.csv")
	require.NoError(t, os.WriteFile(path, []byte("\"Vendor\"\n"), 0o644))
	return path
}

func TestUploadUsesBaseName(t *testing.T) {
	path := writeReport(t)
	var bucket, key, body, contentType string
	client := &mockS3Client{putFn: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		bucket, key, contentType = *params.Bucket, *params.Key, *params.ContentType
		b, err := io.ReadAll(params.Body)
		body = string(b)
		return &s3.PutObjectOutput{}, err
	}}
	logger, _ := test.NewNullLogger()

	ok := NewUploader(client, logger).Upload(context.Background(), path, "usage-from-oci", "")
	assert.True(t, ok)
	assert.Equal(t, "usage-from-oci", bucket)
	assert.Equal(t, "oci_usage_from_2024-01-01_to_2024-01-31.csv", key)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "\"Vendor\"\n", body)
}

func TestUploadExplicitObjectName(t *testing.T) {
	path := writeReport(t)
	var key string
	client := &mockS3Client{putFn: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		key = *params.Key
		return &s3.PutObjectOutput{}, nil
	}}
	logger, _ := test.NewNullLogger()

	assert.True(t, NewUploader(client, logger).Upload(context.Background(), path, "b", "reports/jan.csv"))
	assert.Equal(t, "reports/jan.csv", key)
}

func TestUploadFailureReturnsFalseAndKeepsFile(t *testing.T) {
	path := writeReport(t)
	client := &mockS3Client{putFn: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	logger, hook := test.NewNullLogger()

	ok := NewUploader(client, logger).Upload(context.Background(), path, "usage-from-oci", "")
	assert.False(t, ok)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.Equal(t, "usage-from-oci", entry.Data["bucket"])
	assert.EqualError(t, entry.Data[logrus.ErrorKey].(error), "dial tcp: connection refused")

	_, err := os.Stat(path)
	assert.NoError(t, err)
}

func TestUploadMissingFile(t *testing.T) {
	called := false
	client := &mockS3Client{putFn: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
		called = true
		return &s3.PutObjectOutput{}, nil
	}}
	logger, _ := test.NewNullLogger()

	assert.False(t, NewUploader(client, logger).Upload(context.Background(), filepath.Join(t.TempDir(), "nope.csv"), "b", ""))
	assert.False(t, called)
}

func TestNewS3ClientWithEndpoint(t *testing.T) {
	client, err := NewS3Client(context.Background(), models.Config{
		S3Endpoint:  "https://ns.compat.objectstorage.ap-sydney-1.oraclecloud.com",
		S3AccessKey: "key",
		S3SecretKey: "secret",
		S3Region:    "ap-sydney-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ap-sydney-1", client.Options().Region)
}
