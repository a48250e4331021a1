package snapshot

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// AzureProvider replicates snapshots to an Azure Blob Storage container
type AzureProvider struct {
	serviceURL azblob.ServiceURL
	container  string
	prefix     string
}

// NewAzureProvider creates an Azure offsite provider
func NewAzureProvider(config *AzureConfig) (*AzureProvider, error) {
	if config == nil {
		return nil, NewValidationError("azure configuration is required", nil)
	}
	if config.Container == "" {
		return nil, NewValidationError("azure container is required", nil)
	}
	if config.AccountName == "" {
		return nil, NewValidationError("azure account name is required", nil)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, NewStorageError("failed to create azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})
	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, NewStorageError("failed to parse azure service URL", err)
	}

	return &AzureProvider{
		serviceURL: azblob.NewServiceURL(*serviceURL, pipeline),
		container:  config.Container,
		prefix:     config.Prefix,
	}, nil
}

// Name identifies the provider
func (p *AzureProvider) Name() string { return "azure" }

// Replicate uploads every member file of a snapshot directory
func (p *AzureProvider) Replicate(ctx context.Context, localDir, id string) error {
	entries, err := os.ReadDir(localDir)
	if err != nil {
		return NewStorageError("failed to read snapshot directory", err).WithContext("snapshot", id)
	}

	containerURL := p.serviceURL.NewContainerURL(p.container)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		path := filepath.Join(localDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return NewStorageError("failed to read member file", err).WithContext("path", path)
		}

		blobURL := containerURL.NewBlockBlobURL(objectKey(p.prefix, id, entry.Name()))
		_, err = azblob.UploadBufferToBlockBlob(ctx, data, blobURL, azblob.UploadToBlockBlobOptions{
			BlockSize:   4 * 1024 * 1024,
			Parallelism: 16,
			Metadata:    azblob.Metadata{"snapshotid": id},
		})
		if err != nil {
			return NewNetworkError(fmt.Sprintf("failed to upload %s to azure", entry.Name()), err).WithContext("snapshot", id)
		}
	}
	return nil
}

// Delete removes all replicated blobs for a snapshot
func (p *AzureProvider) Delete(ctx context.Context, id string) error {
	containerURL := p.serviceURL.NewContainerURL(p.container)
	prefix := objectKey(p.prefix, id, "")

	for marker := (azblob.Marker{}); marker.NotDone(); {
		listResp, err := containerURL.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{
			Prefix: prefix,
		})
		if err != nil {
			return NewNetworkError("failed to list snapshot blobs in azure", err).WithContext("snapshot", id)
		}
		marker = listResp.NextMarker

		for _, blob := range listResp.Segment.BlobItems {
			blobURL := containerURL.NewBlockBlobURL(blob.Name)
			_, err := blobURL.Delete(ctx, azblob.DeleteSnapshotsOptionInclude, azblob.BlobAccessConditions{})
			if err != nil {
				return NewNetworkError(fmt.Sprintf("failed to delete blob %s", blob.Name), err)
			}
		}
	}
	return nil
}

// HealthCheck verifies the container is reachable
func (p *AzureProvider) HealthCheck(ctx context.Context) error {
	containerURL := p.serviceURL.NewContainerURL(p.container)
	if _, err := containerURL.GetProperties(ctx, azblob.LeaseAccessConditions{}); err != nil {
		return NewNetworkError("azure container is not accessible", err).WithContext("container", p.container)
	}
	return nil
}

// Close is a no-op for the Azure pipeline
func (p *AzureProvider) Close() error { return nil }
