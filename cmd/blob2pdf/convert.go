package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/blob2pdf/internal/convert"
	"github.com/pdiddy/blob2pdf/internal/engine"
	"github.com/pdiddy/blob2pdf/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert INPUT",
	Short: "Convert a single local file to PDF",
	Long: `Convert turns one local file into a PDF in the output directory. The
original file is embedded in the PDF as an attachment unless
--no-attach-original is given. Files that cannot be converted become
placeholder PDFs carrying the original.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringP("output-dir", "o", "output", "directory to write the PDF into")
	convertCmd.Flags().Bool("no-attach-original", false, "do not embed the original file in the output PDF")
	convertCmd.Flags().Bool("attach-pdf-original", false, "re-save passthrough PDFs with the original attached")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	outDir, _ := cmd.Flags().GetString("output-dir")
	noAttach, _ := cmd.Flags().GetBool("no-attach-original")
	attachPDF, _ := cmd.Flags().GetBool("attach-pdf-original")

	info, err := os.Stat(input)
	if err != nil {
		return err
	}

	cfg := loadConfig()
	opts := convert.Options{
		AttachOriginal:    !noAttach,
		PDFAttachOriginal: attachPDF,
		OfficeTimeout:     cfg.OfficeTimeout,
		BrowserTimeout:    cfg.BrowserTimeout,
	}
	orch := convert.NewOrchestrator(newRegistry(opts), opts)

	src := types.SourceFile{Key: input, Path: input, Size: info.Size()}
	res := orch.Process(cmd.Context(), src, outDir)
	switch res.Outcome {
	case types.OutcomeSuccess:
		fmt.Printf("OK %s -> %s (%.1fs)\n", input, res.OutputPath, res.Elapsed.Seconds())
	case types.OutcomeFallback:
		fmt.Printf("FALLBACK %s -> %s (%s: %s)\n", input, res.OutputPath, res.Category, res.Message)
	case types.OutcomeSkipped:
		fmt.Printf("SKIPPED %s (empty file)\n", input)
	case types.OutcomeFailure:
		return fmt.Errorf("converting %s: %s", input, res.Message)
	}
	return nil
}

// newRegistry wires the conversion strategies with whatever engines are
// installed. A missing engine is reported once; its categories degrade to
// the fallback path.
func newRegistry(opts convert.Options) *convert.Registry {
	logger := newLogger()

	office, err := engine.DetectOffice()
	if err != nil {
		logger.Warn("office documents will use the fallback path", "error", err)
	} else {
		logger.Debug("office engine", "binary", office.Name())
	}

	browser, err := engine.DetectBrowser()
	if err != nil {
		logger.Warn("html and email will use the fallback path", "error", err)
	} else {
		logger.Debug("browser engine", "binary", browser.Name())
	}

	return convert.NewRegistry(office, browser, opts)
}
