package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureOptions configures shared-key access to one storage account.
type AzureOptions struct {
	AccountName string
	AccountKey  string
	ServiceURL  string // defaults to https://<account>.blob.core.windows.net
}

// Azure reads blobs from az:// and abfss:// URIs.
type Azure struct {
	client *azblob.Client
}

var _ Store = (*Azure)(nil)

// NewAzure creates a blob client with shared-key credentials.
func NewAzure(opts AzureOptions) (*Azure, error) {
	if opts.AccountKey == "" {
		return nil, fmt.Errorf("azure account key is required")
	}
	cred, err := azblob.NewSharedKeyCredential(opts.AccountName, opts.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	serviceURL := opts.ServiceURL
	if serviceURL == "" {
		serviceURL = fmt.Sprintf("https://%s.blob.core.windows.net", opts.AccountName)
	}
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return &Azure{client: client}, nil
}

// Open downloads the blob.
func (a *Azure) Open(ctx context.Context, path string) (File, error) {
	container, key, err := ParseAzurePath(path)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.DownloadStream(ctx, container, key, nil)
	if err != nil {
		return nil, fmt.Errorf("download blob %q: %w", path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read blob %q: %w", path, err)
	}
	return newMemFile(data), nil
}

// ParseAzurePath extracts container and blob name from
//
//	az://container/path/to/file
//	abfss://container@account.dfs.core.windows.net/path/to/file
func ParseAzurePath(path string) (container, key string, err error) {
	u, err := url.Parse(path)
	if err != nil {
		return "", "", fmt.Errorf("parse Azure path %q: %w", path, err)
	}
	switch u.Scheme {
	case "abfss":
		// url.Parse reads "container" as userinfo.
		if u.User == nil {
			return "", "", fmt.Errorf("abfss path %q missing container@account component", path)
		}
		container = u.User.Username()
	case "az":
		container = u.Host
	default:
		return "", "", fmt.Errorf("unrecognized Azure path scheme %q in %q", u.Scheme, path)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if container == "" {
		return "", "", fmt.Errorf("empty container in Azure path %q", path)
	}
	if key == "" {
		return "", "", fmt.Errorf("empty key in Azure path %q", path)
	}
	return container, key, nil
}
