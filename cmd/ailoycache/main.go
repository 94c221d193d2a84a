// Command ailoycache is the CLI front end for the model artifact
// cache: prefetching, single-entry get/remove, manifest inspection,
// and a dry-run cache audit.
package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ailoy-run/ailoycache/cache"
	"github.com/ailoy-run/ailoycache/internal/logging"
)

var (
	cfg    *cliConfig
	logger *slog.Logger

	// Version information set via ldflags during build.
	version = "dev"
)

func init() {
	// Load .env and then ../.env during local development, so
	// AILOY_CACHE_ROOT/AILOY_REMOTE_CACHE_URL can be set via a dotfile
	// without exporting real env vars. Each file is loaded on its own,
	// so a missing .env does not stop ../.env from loading. Load errors,
	// including those of a malformed file, are discarded; no warning is
	// logged.
	_ = godotenv.Overload(".env")
	_ = godotenv.Overload("../.env")
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "ailoycache",
		Short: "Content-addressed cache for ailoy model artifacts",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadCLIConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg = loaded
			logger = logging.New(cfg.LogLevel)
			return nil
		},
	}

	rootCmd.AddCommand(prefetchCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(rmCmd())
	rootCmd.AddCommand(inspectManifestCmd())
	rootCmd.AddCommand(gcCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newClient builds a cache.Client from the CLI's resolved config,
// falling through to cache.New's own env-var/default resolution for
// any field the config file left unset.
func newClient(extra ...cache.Option) (*cache.Client, error) {
	opts := []cache.Option{cache.WithLogger(logger)}

	if cfg.CacheRoot != "" {
		opts = append(opts, cache.WithRoot(cfg.CacheRoot))
	}
	if cfg.RemoteURL != "" {
		u, err := url.Parse(cfg.RemoteURL)
		if err != nil {
			return nil, fmt.Errorf("parse remote_url from config: %w", err)
		}
		opts = append(opts, cache.WithRemoteURL(u))
	}
	opts = append(opts, extra...)

	return cache.New(opts...)
}

// cacheLibraryVersionDefault is the default shown in --version flag
// help text across subcommands that resolve against a target library
// version.
const cacheLibraryVersionDefault = cache.LibraryVersion

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ailoycache version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the resolved CLI configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("cache_root: %s\n", cfg.CacheRoot)
			fmt.Printf("remote_url: %s\n", cfg.RemoteURL)
			fmt.Printf("parallelism: %d\n", cfg.Parallelism)
			fmt.Printf("log_level: %s\n", cfg.LogLevel)
			fmt.Printf("(config file: %s)\n", configPath())
			return nil
		},
	}
}
