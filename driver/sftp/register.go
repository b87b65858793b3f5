package sftp

import (
	"fmt"
	"os"

	"github.com/gobeaver/blobpath"
)

func init() {
	blobpath.RegisterDriver("sftp", func(params blobpath.ClientParams) (blobpath.Backend, error) {
		var cfg Config
		if err := params.Decode(&cfg); err != nil {
			return nil, err
		}

		// Load private key if specified
		if cfg.PrivateKeyFile != "" {
			keyData, err := os.ReadFile(cfg.PrivateKeyFile)
			if err != nil {
				return nil, fmt.Errorf("failed to read private key: %w", err)
			}
			cfg.PrivateKey = keyData
		}

		return New(cfg)
	})
}
