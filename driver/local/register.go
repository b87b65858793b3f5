package local

import "github.com/gobeaver/blobpath"

func init() {
	blobpath.RegisterDriver("fs", func(params blobpath.ClientParams) (blobpath.Backend, error) {
		var cfg Config
		if err := params.Decode(&cfg); err != nil {
			return nil, err
		}
		return New(cfg.Root)
	})
}
