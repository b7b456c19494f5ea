// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the eo-engine CLI.
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/eo-engine/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback when set, else the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// stringSetting resolves a string setting: an explicit flag wins, then the
// config file (or environment) under the viper key.
func stringSetting(cmd *cobra.Command, flag, key string) string {
	if v, _ := cmd.Flags().GetString(flag); v != "" {
		return v
	}
	return viper.GetString(key)
}

// rootCmd is the base command for the eo-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "eo-engine",
	Short: "Pipeline for Earth observation product acquisition and conversion",
	Long: `eo-engine drives an Earth observation data pipeline: it searches a STAC
catalog for satellite products, downloads SAFE archives from an S3-compatible
object store, converts them to cloud-optimized Zarr stores through an external
converter container, and inspects the results.

Each pipeline stage is a subcommand: search, fetch, convert, and inspect.
The products command queries the local inventory of everything fetched so far.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./eo-engine.yaml or ~/.config/eo-engine/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "data", "base directory for local data (contains safe/, zarr/, metadata/, index/)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("eo-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "eo-engine"))
		}
	}

	viper.SetEnvPrefix("EO_ENGINE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
