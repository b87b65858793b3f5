package blobpath

import (
	"github.com/gobeaver/beaver-kit/config"
)

type Config struct {
	// Cache root for ToLocal; empty uses a temporary directory
	CacheDir string `env:"BLOBPATH_CACHE_DIR"`

	// When set, every scheme is served from this local directory
	LocalRoot string `env:"BLOBPATH_LOCAL_ROOT"`

	// Wrap every configured backend in the read-only decorator
	ReadOnly bool `env:"BLOBPATH_READ_ONLY,default:false"`

	// Local (fs://) driver configuration
	FSRoot string `env:"BLOBPATH_FS_ROOT,default:./storage"`

	// S3 driver configuration
	S3Region          string `env:"BLOBPATH_S3_REGION,default:us-east-1"`
	S3Endpoint        string `env:"BLOBPATH_S3_ENDPOINT"`
	S3AccessKeyID     string `env:"BLOBPATH_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"BLOBPATH_S3_SECRET_ACCESS_KEY"`
	S3ForcePathStyle  bool   `env:"BLOBPATH_S3_FORCE_PATH_STYLE,default:false"`

	// GCS (Google Cloud Storage) driver configuration
	GCSCredentialsFile string `env:"BLOBPATH_GCS_CREDENTIALS_FILE"` // Path to service account JSON
	GCSProjectID       string `env:"BLOBPATH_GCS_PROJECT_ID"`
	GCSEndpoint        string `env:"BLOBPATH_GCS_ENDPOINT"` // Emulator endpoint, disables auth

	// Azure Blob Storage driver configuration
	AzureAccountName      string `env:"BLOBPATH_AZURE_ACCOUNT_NAME"`
	AzureAccountKey       string `env:"BLOBPATH_AZURE_ACCOUNT_KEY"`
	AzureEndpoint         string `env:"BLOBPATH_AZURE_ENDPOINT"` // Optional custom endpoint
	AzureConnectionString string `env:"BLOBPATH_AZURE_CONNECTION_STRING"`

	// MinIO driver configuration
	MinIOEndpoint        string `env:"BLOBPATH_MINIO_ENDPOINT,default:localhost:9000"`
	MinIOAccessKeyID     string `env:"BLOBPATH_MINIO_ACCESS_KEY_ID"`
	MinIOSecretAccessKey string `env:"BLOBPATH_MINIO_SECRET_ACCESS_KEY"`
	MinIORegion          string `env:"BLOBPATH_MINIO_REGION"`
	MinIOSecure          bool   `env:"BLOBPATH_MINIO_SECURE,default:false"`

	// SFTP driver configuration
	SFTPHost           string `env:"BLOBPATH_SFTP_HOST"`
	SFTPPort           int    `env:"BLOBPATH_SFTP_PORT,default:22"`
	SFTPUsername       string `env:"BLOBPATH_SFTP_USERNAME"`
	SFTPPassword       string `env:"BLOBPATH_SFTP_PASSWORD"`
	SFTPPrivateKey     string `env:"BLOBPATH_SFTP_PRIVATE_KEY"` // Path to private key file
	SFTPKnownHostsFile string `env:"BLOBPATH_SFTP_KNOWN_HOSTS_FILE"`
	SFTPBasePath       string `env:"BLOBPATH_SFTP_BASE_PATH"`
}

// GetConfig returns config loaded from environment
func GetConfig() (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig loads config from environment variables carrying prefix
// instead of the default one.
func LoadConfig(prefix string) (*Config, error) {
	cfg := &Config{}
	if err := config.Load(cfg, config.LoadOptions{Prefix: prefix}); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ClientParams translates the config into per-scheme client params. Only
// settings that were given are included, so driver defaults still apply.
func (c *Config) ClientParams() map[string]ClientParams {
	out := map[string]ClientParams{
		"fs": {"root": c.FSRoot},
		"s3": {
			"region":            c.S3Region,
			"endpoint":          c.S3Endpoint,
			"access_key_id":     c.S3AccessKeyID,
			"secret_access_key": c.S3SecretAccessKey,
			"force_path_style":  c.S3ForcePathStyle,
		},
		"gs": {
			"credentials_file": c.GCSCredentialsFile,
			"project_id":       c.GCSProjectID,
			"endpoint":         c.GCSEndpoint,
		},
		"azure": {
			"account_name":      c.AzureAccountName,
			"account_key":       c.AzureAccountKey,
			"endpoint":          c.AzureEndpoint,
			"connection_string": c.AzureConnectionString,
		},
		"minio": {
			"endpoint":          c.MinIOEndpoint,
			"access_key_id":     c.MinIOAccessKeyID,
			"secret_access_key": c.MinIOSecretAccessKey,
			"region":            c.MinIORegion,
			"secure":            c.MinIOSecure,
		},
		"sftp": {
			"host":             c.SFTPHost,
			"port":             c.SFTPPort,
			"username":         c.SFTPUsername,
			"password":         c.SFTPPassword,
			"private_key_file": c.SFTPPrivateKey,
			"known_hosts_file": c.SFTPKnownHostsFile,
			"base_path":        c.SFTPBasePath,
		},
	}
	for _, params := range out {
		for k, v := range params {
			switch v := v.(type) {
			case string:
				if v == "" {
					delete(params, k)
				}
			case bool:
				if !v {
					delete(params, k)
				}
			}
		}
		if c.ReadOnly {
			params[ReadOnlyParam] = true
		}
	}
	return out
}

// Apply stores the config's client params in reg and, when LocalRoot is
// set, routes every scheme to a local backend rooted there.
func (c *Config) Apply(reg *Registry) error {
	for scheme, params := range c.ClientParams() {
		reg.SetClientParams(scheme, params)
	}
	if c.LocalRoot == "" {
		return nil
	}
	params := ClientParams{"root": c.LocalRoot}
	if c.ReadOnly {
		params[ReadOnlyParam] = true
	}
	b, err := CreateDriver("fs", params)
	if err != nil {
		return err
	}
	reg.Override(b)
	return nil
}
