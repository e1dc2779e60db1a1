package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"docparse/internal/config"
	"docparse/internal/extract"
	"docparse/internal/logger"
	"docparse/internal/ocr"
	"docparse/internal/report"
	"docparse/pkg/models"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Extract text from a document and score the result",
	Long: `Extract plain text from a DOCX, PDF, TXT or image file and score how
trustworthy the extraction is.

The pipeline sniffs the format, runs the matching backend, and applies an
acceptance policy: results with enough words or a high enough quality score
are accepted, weak results trigger the OCR fallback for scanned documents,
and the best text obtained is returned even when the pipeline times out.

The exit code is 0 when the result was accepted and 1 when extraction
failed; failed reports still carry the best text recovered so far.

Optional environment variables (for the Google-backed OCR engines):
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID
  GOOGLE_CLOUD_LOCATION - Processing location (us, eu, etc.)
  DOCUMENT_AI_PROCESSOR_ID - OCR processor ID for the documentai engine`,
	Example: `  # Extract text and print the report
  docparse parse contract.docx

  # Full JSON report, written to a file
  docparse parse scan.pdf --json -o scan-report.json

  # Disable the OCR fallback and tighten the acceptance thresholds
  docparse parse report.pdf --no-ocr --min-score 0.6 --min-words 100

  # German scan with a longer timeout
  docparse parse rechnung.png --lang deu --timeout 120`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

// maxUploadSizeBytes caps what the CLI loads into memory. The pipeline works
// on in-memory bytes, so a runaway upload would be held in RAM in full.
const maxUploadSizeBytes int64 = 100 << 20

func init() {
	rootCmd.AddCommand(parseCmd)

	parseCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	parseCmd.Flags().Bool("json", false, "Emit the report as JSON instead of the readable summary")
	parseCmd.Flags().Int("timeout", 0, "Parsing timeout in seconds (default: configured timeout)")
	parseCmd.Flags().Int("max-pages", 0, "Maximum number of PDF pages to extract (default: configured limit)")
	parseCmd.Flags().Bool("no-ocr", false, "Disable the OCR fallback for scanned documents")
	parseCmd.Flags().String("lang", "", "OCR language code, e.g. eng or deu (default: configured language)")
	parseCmd.Flags().Float64("min-score", 0, "Quality score at which a result is accepted outright")
	parseCmd.Flags().Int("min-words", 0, "Word count at which a result is accepted outright")
	parseCmd.Flags().Bool("pages", false, "Include per-page text in the JSON report")
}

func runParse(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("parse")

	// Get flags
	outputPath, _ := cmd.Flags().GetString("output")
	asJSON, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	maxPages, _ := cmd.Flags().GetInt("max-pages")
	noOCR, _ := cmd.Flags().GetBool("no-ocr")
	lang, _ := cmd.Flags().GetString("lang")
	minScore, _ := cmd.Flags().GetFloat64("min-score")
	minWords, _ := cmd.Flags().GetInt("min-words")
	includePages, _ := cmd.Flags().GetBool("pages")

	filePath := args[0]

	log.Info().
		Str("file", filePath).
		Str("output", outputPath).
		Bool("json", asJSON).
		Msg("Starting document parsing")

	// Validate and get file info
	fileInfo, err := validateInputFile(filePath, log)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	opts := parseOptionsFromFlags(cfg, timeoutSecs, maxPages, noOCR, lang, minScore, minWords)

	// Create context with timeout and signal handling
	ctx, cancel := createParseContext(opts.Timeout, log)
	defer cancel()

	// Create extraction service
	service, err := createParseService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer service.Close()

	data, err := os.ReadFile(filePath)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", filePath).
			Msg("Failed to read document")
		return fmt.Errorf("failed to read document: %w", err)
	}

	doc := &models.Document{
		Name: filepath.Base(filePath),
		Data: data,
	}

	log.Info().
		Str("file", doc.Name).
		Int64("size", fileInfo.Size()).
		Msg("Parsing document")

	runID := uuid.NewString()
	startTime := time.Now()
	result, parseErr := service.Parse(ctx, doc, opts)
	duration := time.Since(startTime)

	if !includePages {
		result.Pages = nil
	}

	rep := report.New(doc, result, runID, duration)

	log.Info().
		Str("runId", runID).
		Bool("accepted", rep.Accepted).
		Str("source", result.Source).
		Float64("score", result.Score).
		Int("words", result.WordCount()).
		Dur("duration", duration).
		Msg("Document parsing finished")

	if err := writeParseReport(rep, outputPath, asJSON, log); err != nil {
		return err
	}

	if parseErr != nil {
		return handleParseError(parseErr, log)
	}
	return nil
}

// parseOptionsFromFlags overlays non-zero flag values on the configured
// pipeline defaults.
func parseOptionsFromFlags(cfg *config.Config, timeoutSecs, maxPages int, noOCR bool, lang string, minScore float64, minWords int) models.ParseOptions {
	opts := cfg.GetParseOptions()

	if timeoutSecs > 0 {
		opts.Timeout = time.Duration(timeoutSecs) * time.Second
	}
	if maxPages > 0 {
		opts.MaxPages = maxPages
	}
	if noOCR {
		opts.DisableOCR = true
	}
	if lang != "" {
		opts.OCRLanguage = lang
	}
	if minScore > 0 {
		opts.MinQualityScore = minScore
	}
	if minWords > 0 {
		opts.MinWordCount = minWords
	}

	return opts
}

// validateInputFile validates the document file before loading it.
func validateInputFile(filePath string, log zerolog.Logger) (os.FileInfo, error) {
	// Check if file exists and get info
	fileInfo, err := os.Stat(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", filePath).
				Msg("Document file not found")
			return nil, fmt.Errorf("document file not found: %s", filePath)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", filePath).
				Msg("Permission denied accessing document")
			return nil, fmt.Errorf("permission denied accessing document: %s", filePath)
		}
		return nil, fmt.Errorf("error accessing document: %w", err)
	}

	// Check if it's a regular file
	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", filePath).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", filePath)
	}

	// Check file size
	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", filePath).
			Msg("Document file is empty")
		return nil, fmt.Errorf("document file is empty: %s", filePath)
	}

	if fileInfo.Size() > maxUploadSizeBytes {
		log.Error().
			Str("file", filePath).
			Int64("size", fileInfo.Size()).
			Int64("max_size", maxUploadSizeBytes).
			Msg("Document exceeds maximum size limit")
		return nil, fmt.Errorf("document too large (%d bytes). Maximum size is %d bytes (100MB)",
			fileInfo.Size(), maxUploadSizeBytes)
	}

	return fileInfo, nil
}

// createParseContext creates a context with timeout and signal handling.
// The pipeline enforces its own timeout and answers it with a structured
// best-effort result; the outer deadline sits behind it as a safety net.
func createParseContext(timeout time.Duration, log zerolog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout+10*time.Second)

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling document parsing")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// createParseService wires the extraction pipeline from configuration.
func createParseService(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*extract.Service, error) {
	service, err := extract.NewFromConfig(ctx, cfg)
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			log.Error().
				Err(err).
				Msg("Google Cloud credentials not configured")
			return nil, fmt.Errorf("missing Google Cloud credentials for the %s OCR engine. Please set one of:\n"+
				"  GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n"+
				"  GOOGLE_CREDENTIALS='<json-credentials>'\n"+
				"Or switch to the local engine:\n"+
				"  DOCPARSE_OCR_ENGINE=tesseract\n"+
				"Original error: %w", cfg.OCREngine, err)
		}
		if errors.Is(err, ocr.ErrInvalidConfiguration) {
			log.Error().
				Err(err).
				Msg("OCR engine configuration invalid")
			return nil, fmt.Errorf("incomplete OCR engine configuration. Please check your .env file:\n"+
				"  GOOGLE_CLOUD_PROJECT - your Google Cloud project ID\n"+
				"  GOOGLE_CLOUD_LOCATION - processing location (us, eu, etc.)\n"+
				"  DOCUMENT_AI_PROCESSOR_ID - required for the documentai engine\n"+
				"Original error: %w", err)
		}
		log.Error().
			Err(err).
			Msg("Failed to create extraction service")
		return nil, fmt.Errorf("failed to create extraction service: %w", err)
	}

	log.Debug().Msg("Extraction service created successfully")
	return service, nil
}

// writeParseReport renders the report as JSON or readable text and writes it
// to the output path or stdout.
func writeParseReport(rep *report.Report, outputPath string, asJSON bool, log zerolog.Logger) error {
	var data []byte
	if asJSON {
		jsonData, err := rep.JSON()
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal report to JSON")
			return fmt.Errorf("failed to marshal report to JSON: %w", err)
		}
		data = jsonData
	} else {
		data = []byte(rep.Pretty())
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, data, 0644); err != nil {
			log.Error().
				Err(err).
				Str("output", outputPath).
				Msg("Failed to write report file")
			return fmt.Errorf("failed to write report file: %w", err)
		}
		log.Info().
			Str("output", outputPath).
			Msg("Report written to file")
		return nil
	}

	if _, err := os.Stdout.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if asJSON {
		fmt.Println() // Add newline after JSON output
	}
	return nil
}

// handleParseError provides user-friendly error messages for parsing failures
func handleParseError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("Document parsing failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, &models.ParseError{Code: models.CodeParsingTimeout}):
		return fmt.Errorf("parsing timed out. Try increasing --timeout or lowering --max-pages")
	case errors.Is(err, &models.ParseError{Code: models.CodePDFEncrypted}),
		errors.Is(err, &models.ParseError{Code: models.CodeDocxPasswordProtected}):
		return fmt.Errorf("the document is password protected. Remove the protection and try again")
	case errors.Is(err, &models.ParseError{Code: models.CodePDFNoTextLayer}):
		return fmt.Errorf("the PDF has no text layer. Enable the OCR fallback (drop --no-ocr) or configure an engine with DOCPARSE_OCR_ENGINE")
	case errors.Is(err, &models.ParseError{Code: models.CodeLegacyDocFormat}):
		return fmt.Errorf("legacy .doc files are not supported. Re-save the document as .docx and try again")
	case errors.Is(err, &models.ParseError{Code: models.CodeUnsupportedFormat}):
		return fmt.Errorf("unsupported file format. Supported: .docx, .pdf, .txt and common image types")
	case errors.Is(err, &models.ParseError{Code: models.CodeMissingLibrary}):
		return fmt.Errorf("a required extraction backend is unavailable. Check DOCPARSE_OCR_ENGINE and that its engine is installed and configured")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "credentials"):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials:\n\n"+
			"1. Set GOOGLE_APPLICATION_CREDENTIALS to your service account JSON file path\n"+
			"2. Or set GOOGLE_CREDENTIALS with inline JSON credentials\n"+
			"3. Ensure the service account can call the configured OCR API\n\n"+
			"Original error: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return fmt.Errorf("permission denied. Please ensure your service account can call the configured OCR API")
	case strings.Contains(errStr, "QUOTA_EXCEEDED"):
		return fmt.Errorf("OCR API quota exceeded. Check your project quotas in Google Cloud Console")
	default:
		var perr *models.ParseError
		if errors.As(err, &perr) && perr.Actionable && perr.SuggestedAction != "" {
			return fmt.Errorf("%s. %s", perr.Message, perr.SuggestedAction)
		}
		return fmt.Errorf("document parsing failed: %w", err)
	}
}
