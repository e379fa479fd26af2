// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the corpus-collector CLI. Each
// pipeline stage is a subcommand: harvest collects bibliographic records
// month by month, annotate scores harvested corpora with the
// machine-generated-text detector, tally reports run outcomes.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the corpus-collector CLI.
var rootCmd = &cobra.Command{
	Use:   "corpus-collector",
	Short: "Harvest bibliographic corpora and annotate them with detector scores",
	Long: `corpus-collector builds and annotates bibliographic corpora. The harvest
stage collects article metadata and citation graphs from the Scopus APIs one
calendar month at a time, with checkpoint/resume and API-key rotation. The
annotate stage streams harvested JSON files through a machine-generated-text
scorer and writes annotated copies alongside the originals.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./corpus-collector.yaml or ~/.config/corpus-collector/config.yaml)")
	rootCmd.PersistentFlags().String("ledger", "", "run-ledger database path (default data/ledger.db)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("corpus-collector")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "corpus-collector"))
		}
	}

	viper.SetEnvPrefix("CORPUS_COLLECTOR")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// Settings resolve flag > config file > built-in default. Flags that the
// user left untouched defer to viper so the YAML config can steer runs.

func stringSetting(cmd *cobra.Command, flag, viperKey, def string) string {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetString(flag)
		return v
	}
	if viper.IsSet(viperKey) {
		return viper.GetString(viperKey)
	}
	return def
}

func intSetting(cmd *cobra.Command, flag, viperKey string, def int) int {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	if viper.IsSet(viperKey) {
		return viper.GetInt(viperKey)
	}
	return def
}

func float64Setting(cmd *cobra.Command, flag, viperKey string, def float64) float64 {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetFloat64(flag)
		return v
	}
	if viper.IsSet(viperKey) {
		return viper.GetFloat64(viperKey)
	}
	return def
}

func durationSetting(cmd *cobra.Command, flag, viperKey string, def time.Duration) time.Duration {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetDuration(flag)
		return v
	}
	if viper.IsSet(viperKey) {
		return viper.GetDuration(viperKey)
	}
	return def
}

func ledgerPath(cmd *cobra.Command) string {
	return stringSetting(cmd, "ledger", "ledger.path", filepath.Join("data", "ledger.db"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
