package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/blob2pdf/internal/storage"
)

var downloadCmd = &cobra.Command{
	Use:   "download FILE_LIST OUTPUT_DIR",
	Short: "Fetch the blobs named in a list file",
	Long: `Download fetches every blob key listed in FILE_LIST (one per line, #
comments allowed) into OUTPUT_DIR, preserving the relative path under
INPUT_PREFIX. Typically used with the failed_<category>.txt lists produced
by the failures command, to inspect problem files locally.`,
	Args: cobra.ExactArgs(2),
	RunE: runDownload,
}

func init() {
	rootCmd.AddCommand(downloadCmd)
}

func runDownload(cmd *cobra.Command, args []string) error {
	listPath, outDir := args[0], args[1]

	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	store, err := storage.NewAzureClient(cfg.StorageAccountName, cfg.ContainerName)
	if err != nil {
		return err
	}

	f, err := os.Open(listPath)
	if err != nil {
		return err
	}
	defer f.Close()

	var fetched, failed int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		key := strings.TrimSpace(sc.Text())
		if key == "" || strings.HasPrefix(key, "#") {
			continue
		}

		rel := strings.TrimPrefix(key, cfg.InputPrefix)
		dest := filepath.Join(outDir, filepath.FromSlash(rel))
		err := storage.WithRetry(cmd.Context(), cfg.StorageRetries, func() error {
			return store.Download(cmd.Context(), key, dest)
		})
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "ERROR %s: %v\n", key, err)
			continue
		}
		fetched++
		fmt.Printf("%s -> %s\n", key, dest)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	fmt.Printf("downloaded %d file(s), %d failed\n", fetched, failed)
	if failed > 0 {
		return fmt.Errorf("%d download(s) failed", failed)
	}
	return nil
}
