package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evenfall/nightpost/internal/server/config"
)

func TestAttachmentStorageKey(t *testing.T) {
	key := attachmentStorageKey()

	now := time.Now()
	prefix := fmt.Sprintf("letters/%d/%d/%d/", now.Year(), now.Month(), now.Day())
	assert.True(t, strings.HasPrefix(key, prefix), "key %q should start with %q", key, prefix)

	other := attachmentStorageKey()
	assert.NotEqual(t, key, other)
}

func TestPresignedPutURL(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNewClient := newS3ClientFromConfig
	origNewPresign := newS3PresignClient
	origPresign := presignPutObject
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewClient
		newS3PresignClient = origNewPresign
		presignPutObject = origPresign
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return nil
	}
	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return nil
	}

	var gotBucket, gotKey string
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotBucket = *in.Bucket
		gotKey = *in.Key
		return &v4.PresignedHTTPRequest{URL: "https://s3.example.com/upload"}, nil
	}

	svc := NewAttachmentService(&config.Config{S3Bucket: "letters-bucket", S3Region: "us-east-1"})

	key, url, err := svc.PresignedPutURL(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "letters-bucket", gotBucket)
	assert.Equal(t, key, gotKey)
	assert.Equal(t, "https://s3.example.com/upload", url)
}

func TestPresignedPutURL_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, assert.AnError
	}

	svc := NewAttachmentService(&config.Config{})
	_, _, err := svc.PresignedPutURL(context.Background())
	assert.Error(t, err)
}
