// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the blob2pdf CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/blob2pdf/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the blob2pdf CLI.
var rootCmd = &cobra.Command{
	Use:   "blob2pdf",
	Short: "Migrate stored documents to PDF",
	Long: `blob2pdf converts documents of mixed formats (office, image, html, email,
pdf) into PDF, either one local file at a time or as a batch over an Azure
Blob Storage container. Files that cannot be converted become placeholder
PDFs carrying the original file as an attachment, so the migration never
loses data.

Each workflow is a subcommand: convert, migrate, failures, folders,
download, and status.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./.env)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile == "" {
		cfgFile = ".env"
	}
	viper.SetConfigFile(cfgFile)
	viper.SetConfigType("env")

	viper.SetDefault("OFFICE_TIMEOUT", "120s")
	viper.SetDefault("BROWSER_TIMEOUT", "60s")
	viper.SetDefault("STORAGE_RETRIES", 3)
	viper.SetDefault("LOG_PATH", "migration.log")
	viper.SetDefault("STATE_DB_PATH", "blob2pdf.db")
	viper.SetDefault("EXCLUDE_PREFIXES", "Logs/,Mapping Tables/")

	viper.SetEnvPrefix("BLOB2PDF")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadConfig materializes the immutable runtime configuration from viper.
func loadConfig() types.Config {
	var exclude []string
	for _, p := range strings.Split(viper.GetString("EXCLUDE_PREFIXES"), ",") {
		if p = strings.TrimSpace(p); p != "" {
			exclude = append(exclude, p)
		}
	}

	return types.Config{
		StorageAccountName: viper.GetString("STORAGE_ACCOUNT_NAME"),
		ContainerName:      viper.GetString("CONTAINER_NAME"),
		InputPrefix:        viper.GetString("INPUT_PREFIX"),
		OutputPrefix:       viper.GetString("OUTPUT_PREFIX"),
		OverwriteOutput:    viper.GetBool("OVERWRITE_OUTPUT"),
		ExcludePrefixes:    exclude,
		OfficeTimeout:      getDuration("OFFICE_TIMEOUT", 2*time.Minute),
		BrowserTimeout:     getDuration("BROWSER_TIMEOUT", time.Minute),
		StorageRetries:     viper.GetInt("STORAGE_RETRIES"),
		LogPath:            viper.GetString("LOG_PATH"),
		StateDBPath:        viper.GetString("STATE_DB_PATH"),
	}
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if d := viper.GetDuration(key); d > 0 {
		return d
	}
	return fallback
}

// newLogger builds the diagnostic logger. The migration log is a separate,
// parseable surface; slog output is for operators only.
func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
