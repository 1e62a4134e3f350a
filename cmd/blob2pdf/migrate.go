// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/blob2pdf/internal/convert"
	"github.com/pdiddy/blob2pdf/internal/migrate"
	"github.com/pdiddy/blob2pdf/internal/state"
	"github.com/pdiddy/blob2pdf/internal/storage"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run the batch migration over the configured container",
	Long: `Migrate lists the blobs under INPUT_PREFIX, converts each one to PDF, and
uploads the result under OUTPUT_PREFIX with the same relative path. Files
whose output already exists are skipped unless --force is given. Every
completed file appends one line to the migration log.

--analyse and --progress are report-only modes: they inspect the container
and exit without converting anything.`,
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().Bool("force", false, "reprocess files whose output already exists")
	migrateCmd.Flags().Int("max-files", 0, "stop after this many files (0 = no limit)")
	migrateCmd.Flags().String("filter-extension", "", "only process files with this extension (e.g. .docx)")
	migrateCmd.Flags().Int("test-all", 0, "process at most N files per category, for smoke runs")
	migrateCmd.Flags().Bool("analyse", false, "report the input inventory and exit")
	migrateCmd.Flags().Bool("progress", false, "report migrated-vs-total and exit")
	migrateCmd.Flags().String("local-output", "", "write PDFs under this directory instead of uploading")
	migrateCmd.Flags().String("file-list", "", "process only the blob keys listed in this file")

	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := newLogger()

	opts := migrate.Options{}
	opts.Force, _ = cmd.Flags().GetBool("force")
	opts.MaxFiles, _ = cmd.Flags().GetInt("max-files")
	opts.FilterExt, _ = cmd.Flags().GetString("filter-extension")
	opts.TestAll, _ = cmd.Flags().GetInt("test-all")
	opts.Analyse, _ = cmd.Flags().GetBool("analyse")
	opts.Progress, _ = cmd.Flags().GetBool("progress")
	opts.LocalOutput, _ = cmd.Flags().GetString("local-output")
	opts.FileList, _ = cmd.Flags().GetString("file-list")

	store, err := storage.NewAzureClient(cfg.StorageAccountName, cfg.ContainerName)
	if err != nil {
		return err
	}

	log, err := migrate.OpenLog(cfg.LogPath)
	if err != nil {
		return err
	}
	defer log.Close()

	var recorder migrate.Recorder
	if !opts.Analyse && !opts.Progress {
		ledger, err := state.Open(cfg.StateDBPath)
		if err != nil {
			logger.Warn("run ledger unavailable", "error", err)
		} else {
			defer ledger.Close()
			recorder = ledger
		}
	}

	convOpts := convert.Options{
		AttachOriginal: true,
		OfficeTimeout:  cfg.OfficeTimeout,
		BrowserTimeout: cfg.BrowserTimeout,
	}
	orch := convert.NewOrchestrator(newRegistry(convOpts), convOpts)

	// SIGINT/SIGTERM stop the run at the next file boundary.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := migrate.NewRunner(cfg, store, orch, log, recorder, os.Stdout, logger)
	sum, err := runner.Run(ctx, opts)
	if err != nil {
		return err
	}
	if opts.Analyse || opts.Progress {
		return nil
	}

	fmt.Printf("\nlisted %d, processed %d: %d ok, %d fallback, %d failed, %d skipped\n",
		sum.Listed, sum.Processed, sum.Succeeded, sum.Fallbacks, sum.Failures, sum.Skipped)
	if sum.Failures > 0 {
		return fmt.Errorf("%d file(s) failed; see %s", sum.Failures, cfg.LogPath)
	}
	return nil
}
