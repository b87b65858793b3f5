package minio

import (
	"fmt"

	"github.com/gobeaver/blobpath"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config holds the client params of the minio scheme
type Config struct {
	Endpoint        string `mapstructure:"endpoint" validate:"required,hostname_port"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Region          string `mapstructure:"region"`
	Secure          bool   `mapstructure:"secure"`
}

func init() {
	blobpath.RegisterDriver("minio", func(params blobpath.ClientParams) (blobpath.Backend, error) {
		var cfg Config
		if err := params.Decode(&cfg); err != nil {
			return nil, err
		}

		client, err := NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		return New(client, cfg.Region), nil
	})
}

// NewClient creates a MinIO client from config
func NewClient(cfg Config) (*minio.Client, error) {
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
}
