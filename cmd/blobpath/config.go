package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const envPrefix = "BLOBPATH_"

// cliConfig is the CLI's configuration file.
//
//	log_level: debug
//	cache_dir: /var/cache/blobpath
//	clients:
//	  s3:
//	    region: eu-west-1
//	  fs:
//	    root: /srv/blobs
type cliConfig struct {
	LogLevel  string                    `koanf:"log_level"`
	LogFormat string                    `koanf:"log_format"`
	CacheDir  string                    `koanf:"cache_dir"`
	LocalRoot string                    `koanf:"local_root"`
	Clients   map[string]map[string]any `koanf:"clients"`
}

func defaultCLIConfig() cliConfig {
	return cliConfig{
		LogLevel:  "warn",
		LogFormat: "console",
	}
}

// loadConfig merges, in increasing priority, the defaults, the YAML file
// at path (optional) and BLOBPATH_ environment variables. Nested keys use
// a double underscore: BLOBPATH_CLIENTS__S3__REGION sets clients.s3.region.
func loadConfig(path string) (cliConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultCLIConfig(), "koanf"), nil); err != nil {
		return cliConfig{}, fmt.Errorf("failed to load default config: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return cliConfig{}, fmt.Errorf("config file %s not found: %w", path, err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return cliConfig{}, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return cliConfig{}, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg cliConfig
	if err := k.Unmarshal("", &cfg); err != nil {
		return cliConfig{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
