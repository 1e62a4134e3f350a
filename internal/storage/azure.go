// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
)

// ErrBlobExists marks an upload refused because the target blob already
// exists and overwriting was not requested.
var ErrBlobExists = errors.New("blob already exists")

// AzureClient implements Client over one Azure Blob Storage container,
// authenticating through the ambient credential chain (managed identity,
// environment, CLI login).
type AzureClient struct {
	client    *azblob.Client
	container string
}

// NewAzureClient connects to the account's blob endpoint using
// DefaultAzureCredential.
func NewAzureClient(accountName, containerName string) (*AzureClient, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("acquiring Azure credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClient(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating blob client for %s: %w", accountName, err)
	}
	return &AzureClient{client: client, container: containerName}, nil
}

func (c *AzureClient) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	cc := c.client.ServiceClient().NewContainerClient(c.container)

	opts := &container.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = &prefix
	}

	var objects []ObjectInfo
	pager := cc.NewListBlobsFlatPager(opts)
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing blobs under %q: %w", prefix, err)
		}
		for _, b := range resp.Segment.BlobItems {
			if b.Name == nil {
				continue
			}
			obj := ObjectInfo{Key: *b.Name}
			if b.Properties != nil {
				if b.Properties.ContentLength != nil {
					obj.Size = *b.Properties.ContentLength
				}
				if b.Properties.LastModified != nil {
					obj.LastModified = *b.Properties.LastModified
				}
			}
			objects = append(objects, obj)
		}
	}
	return objects, nil
}

func (c *AzureClient) Download(ctx context.Context, key, path string) error {
	bc := c.client.ServiceClient().NewContainerClient(c.container).NewBlobClient(key)

	resp, err := bc.DownloadStream(ctx, nil)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", key, err)
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func (c *AzureClient) Upload(ctx context.Context, path, key string, overwrite bool) error {
	bc := c.client.ServiceClient().NewContainerClient(c.container).NewBlockBlobClient(key)

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	opts := &blockblob.UploadStreamOptions{}
	if !overwrite {
		// IfNoneMatch:* makes the create conditional on the blob not
		// existing, so concurrent runs cannot clobber each other.
		noneMatch := azcore.ETagAny
		opts.AccessConditions = &blob.AccessConditions{
			ModifiedAccessConditions: &blob.ModifiedAccessConditions{IfNoneMatch: &noneMatch},
		}
	}

	if _, err := bc.UploadStream(ctx, f, opts); err != nil {
		if bloberror.HasCode(err, bloberror.BlobAlreadyExists) {
			return fmt.Errorf("uploading %s: %w", key, ErrBlobExists)
		}
		return fmt.Errorf("uploading %s: %w", key, err)
	}
	return nil
}

func (c *AzureClient) Exists(ctx context.Context, key string) (bool, error) {
	bc := c.client.ServiceClient().NewContainerClient(c.container).NewBlobClient(key)

	_, err := bc.GetProperties(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == 404 {
			return false, nil
		}
		return false, fmt.Errorf("checking %s: %w", key, err)
	}
	return true, nil
}
