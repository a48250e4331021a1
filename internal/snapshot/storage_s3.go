package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
)

// S3Provider replicates snapshots to an S3 bucket
type S3Provider struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3Provider creates an S3 offsite provider
func NewS3Provider(config *S3Config) (*S3Provider, error) {
	if config == nil {
		return nil, NewValidationError("s3 configuration is required", nil)
	}
	if config.Bucket == "" {
		return nil, NewValidationError("s3 bucket is required", nil)
	}
	if config.Region == "" {
		return nil, NewValidationError("s3 region is required", nil)
	}

	awsConfig := &aws.Config{
		Region: aws.String(config.Region),
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}
	if config.AccessKey != "" && config.SecretKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, NewStorageError("failed to create AWS session", err)
	}

	return &S3Provider{
		client: s3.New(sess),
		bucket: config.Bucket,
		prefix: config.Prefix,
	}, nil
}

// Name identifies the provider
func (p *S3Provider) Name() string { return "s3" }

// Replicate uploads every member file of a snapshot directory
func (p *S3Provider) Replicate(ctx context.Context, localDir, id string) error {
	entries, err := os.ReadDir(localDir)
	if err != nil {
		return NewStorageError("failed to read snapshot directory", err).WithContext("snapshot", id)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(localDir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			return NewStorageError("failed to open member file", err).WithContext("path", path)
		}

		_, err = p.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    aws.String(objectKey(p.prefix, id, entry.Name())),
			Body:   f,
			Metadata: map[string]*string{
				"snapshot-id": aws.String(id),
			},
		})
		f.Close()
		if err != nil {
			return NewNetworkError(fmt.Sprintf("failed to upload %s to s3", entry.Name()), err).WithContext("snapshot", id)
		}
	}
	return nil
}

// Delete removes all replicated objects for a snapshot
func (p *S3Provider) Delete(ctx context.Context, id string) error {
	prefix := objectKey(p.prefix, id, "")

	listOutput, err := p.client.ListObjectsV2WithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(p.bucket),
		Prefix: aws.String(prefix),
	})
	if err != nil {
		return NewNetworkError("failed to list snapshot objects in s3", err).WithContext("snapshot", id)
	}

	for _, object := range listOutput.Contents {
		_, err := p.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(p.bucket),
			Key:    object.Key,
		})
		if err != nil {
			return NewNetworkError(fmt.Sprintf("failed to delete object %s", aws.StringValue(object.Key)), err)
		}
	}
	return nil
}

// HealthCheck verifies the bucket is reachable
func (p *S3Provider) HealthCheck(ctx context.Context) error {
	_, err := p.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(p.bucket),
	})
	if err != nil {
		return NewNetworkError("s3 bucket is not accessible", err).WithContext("bucket", p.bucket)
	}
	return nil
}

// Close is a no-op for the S3 client
func (p *S3Provider) Close() error { return nil }
