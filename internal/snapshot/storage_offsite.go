package snapshot

import (
	"context"
	"fmt"
)

// OffsiteProvider replicates completed snapshot directories to remote
// object storage. The local copy stays authoritative.
type OffsiteProvider interface {
	// Name identifies the provider, e.g. "s3"
	Name() string
	// Replicate uploads every member file of a snapshot directory
	Replicate(ctx context.Context, localDir, id string) error
	// Delete removes a replicated snapshot
	Delete(ctx context.Context, id string) error
	// HealthCheck verifies the remote target is reachable
	HealthCheck(ctx context.Context) error
	// Close releases provider resources
	Close() error
}

// NewOffsiteProvider builds a provider from configuration
func NewOffsiteProvider(ctx context.Context, config OffsiteConfig) (OffsiteProvider, error) {
	if !config.Enabled {
		return nil, NewConfigurationError("offsite replication is not enabled", nil)
	}

	switch config.Provider {
	case "s3":
		return NewS3Provider(&config.S3)
	case "gcs":
		return NewGCSProvider(ctx, &config.GCS)
	case "azure":
		return NewAzureProvider(&config.Azure)
	default:
		return nil, NewConfigurationError(fmt.Sprintf("unsupported offsite provider: %s", config.Provider), nil)
	}
}

// objectKey builds a remote object name for a snapshot member
func objectKey(prefix, id, fileName string) string {
	if prefix == "" {
		prefix = "snapshots/"
	}
	if prefix[len(prefix)-1] != '/' {
		prefix += "/"
	}
	return prefix + id + "/" + fileName
}
