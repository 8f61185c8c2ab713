// cmd/autoinstall-server/main.go
//
// Autoinstall server – HTTP entry point and operator CLI.
//
// Startup sequence (serve)
// ------------------------
//
//  1. Load an optional .env file (never overrides the real environment).
//
//  2. Resolve the configuration snapshot once: defaults → config file →
//     environment.  Secret references go through Vault when VAULT_ADDR
//     is set.  A fatal configuration error exits before anything binds.
//
//  3. Start the logger from the resolved level and directory, then log
//     notes, applied environment overrides, and warnings.
//
//  4. Pick the renderer for the configured variant.
//
//  5. Bind host:port, print the banner, serve until SIGINT or SIGTERM,
//     and shut down gracefully.
//
// `render` and `status` reuse steps 1 and 2 and print to stdout instead
// of serving.
package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yanizio/autoinstall/internal/config"
	"github.com/yanizio/autoinstall/internal/vault"
)

// version is set via -ldflags during build
var version = "dev"

type rootOptions struct {
	configFile string
	envFile    string
}

func main() {
	root := newRootCmd()
	root.SilenceUsage = true

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "autoinstall-server",
		Short: "Serve per-VM cloud-init documents",
		Long: `autoinstall-server renders cloud-init user-data and meta-data for each VM
from one configuration snapshot built at startup.

Configuration layers, lowest to highest precedence:
  - built-in defaults
  - the config file (--config, CONFIG_FILE; JSON or YAML)
  - environment variables (DEFAULT_USERNAME, DEFAULT_PASSWORD_HASH,
    DEFAULT_PASSWORD, SSH_PUBLIC_KEY, SERVER_HOST, SERVER_PORT,
    STORAGE_LAYOUT, RENDER_VARIANT, LOG_LEVEL, LOG_DIR, GEOIP_DB)

Without a subcommand it serves.`,
		Version: version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return prepare(cmd, opts)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", config.DefaultFile,
		"config file path (JSON, or YAML by extension)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env",
		"dotenv file loaded before resolving; missing is fine")

	root.AddCommand(
		newServeCmd(opts),
		newRenderCmd(opts),
		newStatusCmd(opts),
	)
	return root
}

// prepare loads the dotenv file and lets CONFIG_FILE stand in for an
// unset --config flag.
func prepare(cmd *cobra.Command, opts *rootOptions) error {
	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if !cmd.Flags().Changed("config") {
		if p := os.Getenv("CONFIG_FILE"); p != "" {
			opts.configFile = p
		}
	}
	return nil
}

// resolveConfig builds the snapshot, wiring Vault only when configured.
func resolveConfig(ctx context.Context, opts *rootOptions) (config.Snapshot, config.Diagnostics, error) {
	var secrets config.SecretResolver
	if vault.Enabled() {
		cli, err := vault.New(ctx, zap.S().Debugf)
		if err != nil {
			return config.Snapshot{}, config.Diagnostics{}, err
		}
		secrets = cli
	}
	return config.Resolve(ctx, config.Options{File: opts.configFile, Secrets: secrets})
}
