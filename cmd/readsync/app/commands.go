// Package app provides the commands of the readsync CLI.
package app

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/c0deZ3R0/readsync/config"
	"github.com/c0deZ3R0/readsync/logging"
	"github.com/c0deZ3R0/readsync/storage/sqlite"
)

// Version is set at build time with -ldflags "-X .../app.Version=...".
var Version = "dev"

// NewRootCmd creates the readsync root command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:               "readsync",
		DisableAutoGenTag: true,
		SilenceUsage:      true,
		Short:             "Reconcile reading state between platforms",
		Long: `readsync compares the reading state exported by one platform with the
state kept in a local SQLite target, detects conflicts and applies the
changes with the configured strategy.`,
		Run: func(cmd *cobra.Command, _ []string) {
			if err := cmd.Help(); err != nil {
				slog.Error("Error displaying help", "error", err)
			}
		},
	}

	rootCmd.PersistentFlags().String("config", "", "Path to a YAML or JSON configuration file")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (overrides storage.path)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newPullCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := cmd.Flags().GetString("format")
			if err != nil {
				return err
			}
			if format == "json" {
				return writeJSON(cmd, map[string]string{"version": Version})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "readsync %s\n", Version)
			return err
		},
	}
	cmd.Flags().String("format", "", "Output format (json)")
	return cmd
}

// environment is what every command needs: the resolved configuration, a
// logger and an open store.
type environment struct {
	cfg    *config.Config
	logger *slog.Logger
	store  *sqlite.Store
}

func (e *environment) Close() error {
	return e.store.Close()
}

func setup(cmd *cobra.Command) (*environment, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger, level := logging.Init(cmd.ErrOrStderr(), cfg.Logging)
	if name, _ := cmd.Flags().GetString("log-level"); name != "" && !level.SetFromString(name) {
		return nil, fmt.Errorf("invalid --log-level %q", name)
	}

	store, err := sqlite.New(cfg.StoreConfig(logger.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open store %s: %w", cfg.Storage.Path, err)
	}
	return &environment{cfg: cfg, logger: logger.Logger, store: store}, nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	var cfg *config.Config
	if path != "" {
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	} else {
		cfg = config.Default()
		if err := cfg.ApplyEnv(); err != nil {
			return nil, err
		}
	}

	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Storage.Path = db
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func writeJSON(cmd *cobra.Command, v any) error {
	output, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format output as JSON: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(output))
	return err
}
