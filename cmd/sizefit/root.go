package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stylemetric/sizefit/config"
)

var rootCmd = &cobra.Command{
	Use:   "sizefit",
	Short: "sizefit trains and serves product-sizing models from tabular data",
	Long: `sizefit is a tabular machine-learning pipeline for product sizing.
It cleans and encodes measurement datasets, trains several model families,
and predicts sizes from saved model bundles.`,
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to a YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "log verbosity: debug, info, warn or error")
}

// loadConfig resolves the effective configuration from the --config and
// --log-level flags.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}

	cfg := config.Default()
	if path != "" {
		cfg, err = config.Load(path)
		if err != nil {
			return config.Config{}, err
		}
	}

	level, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return config.Config{}, err
	}
	if level != "" {
		cfg.LogLevel = level
		if err := cfg.Validate(); err != nil {
			return config.Config{}, err
		}
	}
	return cfg, nil
}
