package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"docparse/internal/config"
	"docparse/internal/logger"
	"docparse/internal/ocr"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "Show the extraction backends and OCR engine availability",
	Long: `List the extraction backends and probe each OCR engine for
availability under the current environment.

The Google-backed engines are probed by constructing their clients, so
missing credentials or incomplete configuration show up here instead of
in the middle of a parse run.`,
	Example: `  docparse engines`,
	RunE:    runEngines,
}

func init() {
	rootCmd.AddCommand(enginesCmd)
}

func runEngines(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("engines")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fmt.Printf("Configured OCR engine: %s\n", cfg.OCREngine)
	fmt.Println()

	fmt.Println("Extraction backends:")
	fmt.Printf("  %-12s %s\n", "word", "docconv with direct ZIP fallback")
	fmt.Printf("  %-12s %s\n", "pdf", "pdfcpu preflight, text layer walk")
	fmt.Printf("  %-12s %s\n", "text", "verbatim reader")
	fmt.Println()

	fmt.Println("OCR engines:")
	for _, name := range []string{config.OCREngineTesseract, config.OCREngineVision, config.OCREngineDocumentAI} {
		status := probeOCREngine(ctx, name)
		marker := ""
		if name == cfg.OCREngine {
			marker = "  [configured]"
		}
		fmt.Printf("  %-12s %s%s\n", name, status, marker)

		log.Debug().
			Str("engine", name).
			Str("status", status).
			Msg("Probed OCR engine")
	}

	if cfg.OCREngine == config.OCREngineNone {
		fmt.Println()
		fmt.Println("OCR is disabled; scans and images will be rejected.")
	}

	return nil
}

// probeOCREngine constructs the named engine and reports the outcome.
func probeOCREngine(ctx context.Context, name string) string {
	engine, err := ocr.NewEngine(ctx, name)
	if err != nil {
		switch {
		case errors.Is(err, ocr.ErrMissingCredentials):
			return "unavailable: missing Google Cloud credentials"
		case errors.Is(err, ocr.ErrInvalidConfiguration):
			return "unavailable: incomplete configuration (project, location or processor ID)"
		default:
			return "unavailable: " + err.Error()
		}
	}
	if engine == nil {
		return "disabled"
	}
	defer engine.Close()

	return "available"
}
