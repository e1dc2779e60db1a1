package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docparse/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "docparse",
	Short: "docparse - extract and score text from office documents",
	Long: `docparse pulls plain text out of DOCX, PDF, TXT and image uploads,
scores the extraction quality, and falls back to OCR when a document
turns out to be a scan without a usable text layer.

Every extraction is scored between 0.0 and 1.0; results below the
acceptance thresholds are reported as degraded rather than silently
returned, so callers always know how much to trust the text.

Configuration is read from docparse.yaml and DOCPARSE_* environment
variables (see docparse parse --help for the most common knobs).`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("docparse executed")

		fmt.Println("docparse - document text extraction")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
