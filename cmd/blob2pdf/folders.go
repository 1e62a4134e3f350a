package main

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/blob2pdf/internal/storage"
)

// folderSampleLimit caps the per-folder listing; these are spot checks, not
// exports.
const folderSampleLimit = 30

var foldersCmd = &cobra.Command{
	Use:   "folders [NAME]",
	Short: "Inspect the folder layout under the input prefix",
	Long: `Folders without an argument lists the top-level folders under INPUT_PREFIX
with their file counts. With a folder name it lists up to 30 entries inside
that folder with size and extension.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFolders,
}

func init() {
	rootCmd.AddCommand(foldersCmd)
}

func runFolders(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := storage.NewAzureClient(cfg.StorageAccountName, cfg.ContainerName)
	if err != nil {
		return err
	}

	prefix := cfg.InputPrefix
	if len(args) == 1 {
		prefix += strings.TrimSuffix(args[0], "/") + "/"
	}

	objects, err := store.List(cmd.Context(), prefix)
	if err != nil {
		return err
	}
	if len(objects) == 0 {
		fmt.Printf("No blobs under %s\n", prefix)
		return nil
	}

	if len(args) == 1 {
		fmt.Printf("%s (%d blobs)\n", prefix, len(objects))
		for i, obj := range objects {
			if i >= folderSampleLimit {
				fmt.Printf("... and %d more\n", len(objects)-folderSampleLimit)
				break
			}
			ext := strings.ToLower(filepath.Ext(obj.Key))
			if ext == "" {
				ext = "-"
			}
			fmt.Printf("%10d  %-6s  %s\n", obj.Size, ext, strings.TrimPrefix(obj.Key, prefix))
		}
		return nil
	}

	counts := map[string]int{}
	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, prefix)
		if i := strings.IndexByte(rel, '/'); i >= 0 {
			counts[rel[:i]]++
		} else if rel != "" {
			counts["(root)"]++
		}
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("%s (%d blobs)\n", prefix, len(objects))
	for _, name := range names {
		fmt.Printf("%6d  %s\n", counts[name], name)
	}
	return nil
}
