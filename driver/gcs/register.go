package gcs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/gobeaver/blobpath"
	"google.golang.org/api/option"
)

// Config holds the client params of the gs scheme
type Config struct {
	// CredentialsFile is a service account JSON key. Without it the
	// application default credentials are used.
	CredentialsFile string `mapstructure:"credentials_file" validate:"omitempty,file"`
	ProjectID       string `mapstructure:"project_id"`

	// Endpoint points at an emulator and disables authentication.
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
}

func init() {
	blobpath.RegisterDriver("gs", func(params blobpath.ClientParams) (blobpath.Backend, error) {
		var cfg Config
		if err := params.Decode(&cfg); err != nil {
			return nil, err
		}

		client, err := NewClient(context.Background(), cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create GCS client: %w", err)
		}
		return New(client, WithProjectID(cfg.ProjectID)), nil
	})
}

// NewClient creates a storage client from config
func NewClient(ctx context.Context, cfg Config) (*storage.Client, error) {
	var opts []option.ClientOption
	switch {
	case cfg.Endpoint != "":
		opts = append(opts, option.WithEndpoint(cfg.Endpoint), option.WithoutAuthentication())
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	return storage.NewClient(ctx, opts...)
}
