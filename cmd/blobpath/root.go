package main

import (
	"fmt"
	"strings"

	"github.com/gobeaver/blobpath"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the state shared by every subcommand once the persistent
// pre-run has loaded the configuration.
type app struct {
	configFile string
	logLevel   string
	localRoot  string
	cacheDir   string

	fs     *blobpath.FS
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "blobpath",
		Short: "Path-style access to blob stores",
		Long: `blobpath copies, moves, removes and lists blobs using paths such as
s3://bucket/key, gs://bucket/key or azure://container/key. Arguments
without a scheme, or with file://, refer to the local file system.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	flags.StringVar(&a.localRoot, "local-root", "", "serve every scheme from this local directory")
	flags.StringVar(&a.cacheDir, "cache-dir", "", "local cache directory")

	cmd.AddCommand(
		newCpCmd(a),
		newMvCmd(a),
		newRmCmd(a),
		newLsCmd(a),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configFile)
	if err != nil {
		return err
	}

	// Flags win over file and environment
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("local-root") {
		cfg.LocalRoot = a.localRoot
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir = a.cacheDir
	}

	a.logger, err = initializeLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	fs, err := blobpath.NewFromConfig(&blobpath.Config{
		CacheDir:  cfg.CacheDir,
		LocalRoot: cfg.LocalRoot,
	}, blobpath.WithLogger(a.logger))
	if err != nil {
		return err
	}
	for scheme, params := range cfg.Clients {
		fs.Registry().SetClientParams(strings.ToLower(scheme), blobpath.ClientParams(params))
	}
	a.fs = fs

	a.logger.Debug("Configuration loaded",
		zap.String("config_file", a.configFile),
		zap.String("local_root", cfg.LocalRoot),
		zap.String("cache_dir", cfg.CacheDir),
		zap.Int("clients", len(cfg.Clients)))
	return nil
}

func (a *app) teardown() {
	if a.fs != nil {
		if err := a.fs.Registry().Close(); err != nil {
			a.logger.Warn("Failed to close backends", zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) fluid(s string) (blobpath.FluidPath, error) {
	return blobpath.Fluid(a.fs, s)
}

// sameBackend reports whether src and dst are remote paths of one scheme,
// which lets the FS copy server side.
func sameBackend(src, dst blobpath.FluidPath) (blobpath.Path, blobpath.Path, bool) {
	s, ok := src.(*blobpath.RemotePath)
	if !ok {
		return blobpath.Path{}, blobpath.Path{}, false
	}
	d, ok := dst.(*blobpath.RemotePath)
	if !ok || s.Path().Scheme() != d.Path().Scheme() {
		return blobpath.Path{}, blobpath.Path{}, false
	}
	return s.Path(), d.Path(), true
}

// destination resolves dst for a single-file source: a destination ending
// in a slash, or an existing directory, receives the source's base name.
func (a *app) destination(cmd *cobra.Command, src blobpath.FluidPath, dst string) (blobpath.FluidPath, error) {
	d, err := a.fluid(dst)
	if err != nil {
		return nil, err
	}
	into := strings.HasSuffix(dst, "/")
	if !into {
		if into, err = d.IsDir(cmd.Context()); err != nil {
			return nil, err
		}
	}
	if !into {
		return d, nil
	}
	return d.Join(baseName(src.String()))
}

func baseName(s string) string {
	s = strings.TrimRight(strings.ReplaceAll(s, "\\", "/"), "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		return s[i+1:]
	}
	return s
}
