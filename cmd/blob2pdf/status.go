package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/pdiddy/blob2pdf/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the most recent batch run",
	Long: `Status reads the local run ledger and prints the most recent run's results
by outcome and failure category. The migration log remains the
authoritative record; the ledger is a convenience index over it.`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()

	ledger, err := state.OpenForReading(cfg.StateDBPath)
	if err != nil {
		return err
	}
	defer ledger.Close()

	sum, err := ledger.LastRunSummary()
	if err != nil {
		return err
	}

	fmt.Printf("run %d, started %s, %d file(s)\n", sum.RunID, sum.StartedAt.Format("2006-01-02 15:04:05"), sum.Total)
	for _, outcome := range []string{"success", "fallback", "failure", "skipped"} {
		if n := sum.ByOutcome[outcome]; n > 0 {
			fmt.Printf("  %-8s %d\n", outcome, n)
		}
	}

	if len(sum.ByCategory) > 0 {
		cats := make([]string, 0, len(sum.ByCategory))
		for cat := range sum.ByCategory {
			cats = append(cats, cat)
		}
		sort.Strings(cats)
		fmt.Println("failure categories:")
		for _, cat := range cats {
			fmt.Printf("  %-20s %d\n", cat, sum.ByCategory[cat])
		}
	}
	return nil
}
