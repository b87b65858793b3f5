package azure

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/gobeaver/blobpath"
)

// Config holds the client params of the azure scheme. Either a connection
// string or an account name and key are required.
type Config struct {
	AccountName      string `mapstructure:"account_name" validate:"required_without=ConnectionString"`
	AccountKey       string `mapstructure:"account_key" validate:"required_without=ConnectionString"`
	Endpoint         string `mapstructure:"endpoint" validate:"omitempty,url"` // Optional custom endpoint
	ConnectionString string `mapstructure:"connection_string"`
}

func init() {
	blobpath.RegisterDriver("azure", func(params blobpath.ClientParams) (blobpath.Backend, error) {
		var cfg Config
		if err := params.Decode(&cfg); err != nil {
			return nil, err
		}

		client, err := NewClient(cfg)
		if err != nil {
			return nil, err
		}
		return New(client), nil
	})
}

// NewClient creates a blob service client from config
func NewClient(cfg Config) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create azure client: %w", err)
		}
		return client, nil
	}

	// Build service URL
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", cfg.AccountName)
	if cfg.Endpoint != "" {
		serviceURL = cfg.Endpoint
	}

	// Create shared key credential
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure client: %w", err)
	}
	return client, nil
}
