// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/blob2pdf/internal/failures"
)

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "Build and maintain failure recovery lists from the migration log",
	Long: `Failures parses the migration log and groups failed files into one
failed_<category>.txt list per failure category. Files that later migrated
successfully are dropped. Use --update to prune an existing list against a
newer log instead of extracting fresh lists.

Classification patterns can be overridden per category with a YAML file
passed via --rules.`,
	RunE: runFailures,
}

func init() {
	failuresCmd.Flags().String("log", "", "migration log to parse (default: LOG_PATH)")
	failuresCmd.Flags().String("out", ".", "directory for the failed_<category>.txt lists")
	failuresCmd.Flags().String("rules", "", "YAML file overriding classification patterns")
	failuresCmd.Flags().String("update", "", "prune this list file instead of extracting")

	rootCmd.AddCommand(failuresCmd)
}

func runFailures(cmd *cobra.Command, args []string) error {
	logPath, _ := cmd.Flags().GetString("log")
	if logPath == "" {
		logPath = loadConfig().LogPath
	}

	if listPath, _ := cmd.Flags().GetString("update"); listPath != "" {
		remaining, removed, err := failures.Update(listPath, logPath)
		if err != nil {
			return err
		}
		fmt.Printf("%s: removed %d migrated file(s), %d remaining\n", listPath, len(removed), len(remaining))
		return nil
	}

	rules := failures.DefaultRules()
	if rulesPath, _ := cmd.Flags().GetString("rules"); rulesPath != "" {
		var err error
		if rules, err = failures.LoadRules(rulesPath); err != nil {
			return err
		}
	}

	outDir, _ := cmd.Flags().GetString("out")
	written, err := failures.Extract(logPath, outDir, rules)
	if err != nil {
		return err
	}
	if len(written) == 0 {
		fmt.Println("No unresolved failures in the log.")
		return nil
	}
	for _, cat := range failures.Categories {
		if keys := written[cat]; len(keys) > 0 {
			fmt.Printf("failed_%s.txt: %d file(s)\n", cat, len(keys))
		}
	}
	return nil
}
