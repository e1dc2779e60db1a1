package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"docparse/internal/config"
	"docparse/internal/extract"
	"docparse/internal/logger"
	"docparse/internal/report"
	"docparse/pkg/models"
)

var batchCmd = &cobra.Command{
	Use:   "batch [folder-path]",
	Short: "Parse every supported document in a folder",
	Long: `Parse all supported documents in a folder in parallel and print one
status line per file, followed by a summary.

Files count as ok when the extraction was accepted, degraded when the
pipeline failed but still recovered some text, and failed when nothing
usable came out. Legacy .doc files are picked up on purpose so the report
names them as unsupported instead of silently skipping them.

Optional environment variables:
  DOCPARSE_BATCH_WORKERS - Number of parallel workers (default: 4)`,
	Example: `  # Parse a folder of mixed uploads
  docparse batch ./uploads

  # Write the full JSON report next to the summary
  docparse batch ./uploads --report uploads-report.json

  # Scanned archive without OCR, eight workers
  docparse batch ./archive --no-ocr --workers 8`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

// supportedExtensions are the file types batch picks up while walking.
var supportedExtensions = map[string]bool{
	".docx": true, ".doc": true, ".pdf": true, ".txt": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".webp": true, ".tif": true, ".tiff": true,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().String("report", "", "Write the full JSON report to this file")
	batchCmd.Flags().Int("workers", 0, "Number of parallel workers (default: configured count)")
	batchCmd.Flags().Int("timeout", 0, "Per-document timeout in seconds (default: configured timeout)")
	batchCmd.Flags().Bool("no-ocr", false, "Disable the OCR fallback for scanned documents")
	batchCmd.Flags().String("lang", "", "OCR language code, e.g. eng or deu (default: configured language)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("batch")

	// Get flags
	folderPath := args[0]
	reportPath, _ := cmd.Flags().GetString("report")
	workersFlag, _ := cmd.Flags().GetInt("workers")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	noOCR, _ := cmd.Flags().GetBool("no-ocr")
	lang, _ := cmd.Flags().GetString("lang")

	// Validate folder path
	folderInfo, err := os.Stat(folderPath)
	if err != nil {
		return fmt.Errorf("folder not found: %s", folderPath)
	}
	if !folderInfo.IsDir() {
		return fmt.Errorf("path is not a directory: %s", folderPath)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	opts := parseOptionsFromFlags(cfg, timeoutSecs, 0, noOCR, lang, 0, 0)

	workers := cfg.BatchWorkers
	if workersFlag > 0 {
		workers = workersFlag
	}

	log.Info().
		Str("folder", folderPath).
		Int("workers", workers).
		Bool("ocr", opts.OCREnabled()).
		Msg("Starting batch parsing")

	// Print header
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("                            BATCH DOCUMENT PARSING")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Folder: %s\n", folderPath)
	if !opts.OCREnabled() {
		fmt.Println("OCR: disabled")
	}
	fmt.Println()

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	// Create extraction service
	service, err := createParseService(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer service.Close()

	// Find all supported files
	files, err := findSupportedFiles(folderPath)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(files) == 0 {
		fmt.Println("No supported documents found in folder.")
		return nil
	}

	fmt.Printf("Parsing %d documents with %d parallel workers...\n", len(files), workers)
	fmt.Println()

	// Parse all documents in parallel
	reports := parseDocumentsInParallel(ctx, service, files, opts, workers, log)

	fmt.Println()

	summary := &report.Summary{}
	for _, rep := range reports {
		summary.Add(rep)
	}

	// Print summary
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("                 RESULT")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Accepted: %d\n", summary.OK)
	if summary.Degraded > 0 {
		fmt.Printf("Degraded (text kept, not accepted): %d\n", summary.Degraded)
	}
	if summary.Failed > 0 {
		fmt.Printf("Failed: %d\n", summary.Failed)
	}
	fmt.Println()

	// Write the JSON report if requested
	if reportPath != "" {
		jsonData, err := summary.JSON()
		if err != nil {
			return fmt.Errorf("failed to marshal batch report: %w", err)
		}
		if err := os.WriteFile(reportPath, jsonData, 0644); err != nil {
			return fmt.Errorf("failed to write batch report: %w", err)
		}
		fmt.Printf("Report: %s\n", reportPath)
	}

	fmt.Println(strings.Repeat("=", 80))

	log.Info().
		Int("total", summary.Total()).
		Int("ok", summary.OK).
		Int("degraded", summary.Degraded).
		Int("failed", summary.Failed).
		Msg("Batch parsing completed")

	return nil
}

// findSupportedFiles finds all parseable documents in the specified folder
func findSupportedFiles(folderPath string) ([]string, error) {
	var files []string

	err := filepath.Walk(folderPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if !info.IsDir() && supportedExtensions[strings.ToLower(filepath.Ext(info.Name()))] {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

// parseSingleDocument parses one file and wraps the outcome in a report.
// Read failures become failure reports so the batch keeps going.
func parseSingleDocument(ctx context.Context, service *extract.Service, path string, opts models.ParseOptions) *report.Report {
	runID := uuid.NewString()
	log := logger.WithRunID(runID)
	startTime := time.Now()

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", path).
			Msg("Failed to read document")
		doc := &models.Document{Name: filepath.Base(path)}
		perr := models.NewParseError(models.CodeExtractionError, fmt.Sprintf("reading file: %v", err))
		result := &models.ParseResult{Source: "file-read-failed", Error: perr}
		return report.New(doc, result, runID, time.Since(startTime))
	}

	doc := &models.Document{
		Name: filepath.Base(path),
		Data: data,
	}

	result, _ := service.Parse(ctx, doc, opts)
	result.Pages = nil // per-page text would bloat the batch report

	return report.New(doc, result, runID, time.Since(startTime))
}

// parseDocumentsInParallel runs the pipeline over all files with a bounded
// worker pool. Results keep the input order.
func parseDocumentsInParallel(ctx context.Context, service *extract.Service, files []string, opts models.ParseOptions, workers int, log zerolog.Logger) []*report.Report {
	reports := make([]*report.Report, len(files))

	// Progress output is interleaved across workers, hence the mutex.
	var processedCount int
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range files {
		g.Go(func() error {
			log.Debug().
				Str("file", path).
				Int("index", i+1).
				Msg("Worker parsing document")

			rep := parseSingleDocument(ctx, service, path, opts)
			reports[i] = rep

			mu.Lock()
			processedCount++
			fmt.Printf("[%d/%d] %s\n", processedCount, len(files), rep.StatusLine())
			mu.Unlock()

			return nil
		})
	}

	// Workers report failures through their Report, never as errors.
	_ = g.Wait()

	return reports
}
