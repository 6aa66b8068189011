// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the catalog-harvester CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/catalog-harvester/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the catalog-harvester CLI.
var rootCmd = &cobra.Command{
	Use:   "catalog-harvester",
	Short: "Harvest open-data catalog records into a local store",
	Long: `catalog-harvester pages through a remote open-data catalog, normalizes every
entry into a canonical dataset record, and appends the records it has not
seen before to a SQLite or Postgres datasets table.

Runs are idempotent: the store rejects duplicate source URLs, so a window
can be harvested again after a partial failure without double-inserting.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(viper.GetString("log-level")); err != nil {
			return err
		}

		s, err := secrets.Load(secrets.DefaultDir)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			slog.Debug("loaded secrets", "keys", s.Keys())
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./catalog-harvester.yaml or ~/.config/catalog-harvester/catalog-harvester.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.String("driver", "sqlite", "store backend: sqlite or postgres")
	pf.String("dsn", "", "SQLite path or Postgres URL (default data/catalog.db, or .secrets/database-url)")
	pf.Int("max-conns", 4, "maximum Postgres connections")

	viper.BindPFlag("log-level", pf.Lookup("log-level"))
	viper.BindPFlag("store.driver", pf.Lookup("driver"))
	viper.BindPFlag("store.dsn", pf.Lookup("dsn"))
	viper.BindPFlag("store.max-conns", pf.Lookup("max-conns"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("catalog-harvester")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "catalog-harvester"))
		}
	}

	// CATALOG_HARVESTER_STORE_DSN overrides store.dsn, and so on.
	viper.SetEnvPrefix("CATALOG_HARVESTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setupLogging installs a text handler on stderr at the named level.
func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
