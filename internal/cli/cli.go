// Package cli implements the placeskit command-line interface.
//
// The commands wrap the library packages:
//   - get: build a query, attach an API key and fetch with retries
//   - quota: inspect and initialise the daily request counter
//   - keys: list configured API credentials
//   - config: show the resolved configuration
//
// All commands support --verbose (-v) for debug-level logging and --config
// to point at a specific config file.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/placeskit/pkg/buildinfo"
	"github.com/matzehuels/placeskit/pkg/config"
	"github.com/matzehuels/placeskit/pkg/credentials"
	"github.com/matzehuels/placeskit/pkg/quota"
)

// appName is the application name used for directories and display.
const appName = "placeskit"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configFlag string
	configPath string
	cfg        config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		cfg:    config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "placeskit calls a places API with retries and a daily quota",
		Long:          `placeskit fetches JSON from a places web API, retrying failed requests and counting every request against a persisted daily quota.`,
		Version:       buildinfo.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configFlag, "config", "", "config file (default $XDG_CONFIG_HOME/placeskit/config.toml)")

	root.AddCommand(c.getCommand())
	root.AddCommand(c.quotaCommand())
	root.AddCommand(c.keysCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadConfig resolves settings from .env, the config file and PLACESKIT_*
// variables, in that order.
func (c *CLI) loadConfig() error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	path, err := config.Path(c.configFlag)
	if err != nil {
		return err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	c.configPath = path
	c.cfg = cfg
	c.Logger.Debug("config loaded", "path", path)
	return nil
}

// loadKeys reads the configured credential file.
func (c *CLI) loadKeys() (credentials.Keys, error) {
	path, err := config.ExpandHome(c.cfg.KeysFile)
	if err != nil {
		return nil, err
	}
	return credentials.Load(path)
}

// newTracker opens the configured quota store: Redis when an address is set,
// the tracker file otherwise.
func (c *CLI) newTracker(ctx context.Context) (*quota.Tracker, error) {
	qc := c.cfg.Quota
	opts := []quota.Option{
		quota.WithLimit(qc.Limit),
		quota.WithLogger(c.Logger.WithPrefix("quota")),
	}

	if qc.RedisAddr != "" {
		store, err := quota.NewRedisStore(ctx, quota.RedisOptions{
			Addr:     qc.RedisAddr,
			Password: qc.RedisPassword,
			DB:       qc.RedisDB,
			Prefix:   qc.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		return quota.New(store, opts...), nil
	}

	path, err := config.ExpandHome(qc.File)
	if err != nil {
		return nil, err
	}
	return quota.New(quota.NewFileStore(path), opts...), nil
}
