// Package main is the entry point for the syncd CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/unifiedsync/syncd/internal/config"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "syncd",
		Short: "Unified ingestion sync engine",
		Long:  `syncd pulls entity data from third-party providers for every linked account, unifies it into canonical records, stores it and notifies subscribers.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("env-file", "", "Path to .env file (default: .env in current directory)")

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(syncCmd())
	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(versionCmd())

	return cmd
}

// loadConfig loads configuration from .env file and environment variables.
func loadConfig(cmd *cobra.Command) (config.AppConfig, error) {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return config.AppConfig{}, err
	}
	cfg, err := config.LoadConfig(envFile)
	if err != nil {
		return config.AppConfig{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
