package snapshot

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GCSProvider replicates snapshots to a Google Cloud Storage bucket
type GCSProvider struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSProvider creates a GCS offsite provider
func NewGCSProvider(ctx context.Context, config *GCSConfig) (*GCSProvider, error) {
	if config == nil {
		return nil, NewValidationError("gcs configuration is required", nil)
	}
	if config.Bucket == "" {
		return nil, NewValidationError("gcs bucket is required", nil)
	}

	var client *storage.Client
	var err error
	if config.CredentialsFile != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.CredentialsFile))
	} else {
		client, err = storage.NewClient(ctx)
	}
	if err != nil {
		return nil, NewStorageError("failed to create GCS client", err)
	}

	return &GCSProvider{
		client: client,
		bucket: config.Bucket,
		prefix: config.Prefix,
	}, nil
}

// Name identifies the provider
func (p *GCSProvider) Name() string { return "gcs" }

// Replicate uploads every member file of a snapshot directory
func (p *GCSProvider) Replicate(ctx context.Context, localDir, id string) error {
	entries, err := os.ReadDir(localDir)
	if err != nil {
		return NewStorageError("failed to read snapshot directory", err).WithContext("snapshot", id)
	}

	bucket := p.client.Bucket(p.bucket)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(localDir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			return NewStorageError("failed to open member file", err).WithContext("path", path)
		}

		w := bucket.Object(objectKey(p.prefix, id, entry.Name())).NewWriter(ctx)
		w.Metadata = map[string]string{"snapshot-id": id}
		if _, err := io.Copy(w, f); err != nil {
			f.Close()
			w.Close()
			return NewNetworkError(fmt.Sprintf("failed to upload %s to gcs", entry.Name()), err).WithContext("snapshot", id)
		}
		f.Close()
		if err := w.Close(); err != nil {
			return NewNetworkError(fmt.Sprintf("failed to finalize upload of %s", entry.Name()), err).WithContext("snapshot", id)
		}
	}
	return nil
}

// Delete removes all replicated objects for a snapshot
func (p *GCSProvider) Delete(ctx context.Context, id string) error {
	bucket := p.client.Bucket(p.bucket)
	it := bucket.Objects(ctx, &storage.Query{Prefix: objectKey(p.prefix, id, "")})

	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return NewNetworkError("failed to list snapshot objects in gcs", err).WithContext("snapshot", id)
		}
		if err := bucket.Object(attrs.Name).Delete(ctx); err != nil {
			return NewNetworkError(fmt.Sprintf("failed to delete object %s", attrs.Name), err)
		}
	}
}

// HealthCheck verifies the bucket is reachable
func (p *GCSProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.Bucket(p.bucket).Attrs(ctx); err != nil {
		return NewNetworkError("gcs bucket is not accessible", err).WithContext("bucket", p.bucket)
	}
	return nil
}

// Close closes the GCS client
func (p *GCSProvider) Close() error {
	return p.client.Close()
}
