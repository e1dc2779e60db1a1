package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"docparse/internal/config"
	"docparse/internal/logger"
	"docparse/internal/ocr"
)

var ocrCmd = &cobra.Command{
	Use:   "ocr [image-file]",
	Short: "Run an image straight through the OCR engine",
	Long: `Send a single image to an OCR engine and print the recognized text,
bypassing the extraction pipeline and its acceptance policy.

Useful for checking an engine before relying on it in parse runs: the
output includes the engine's confidence and the detected languages.

Engines: tesseract (local, default), vision, documentai.

Required environment variables (vision and documentai engines only):
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Your Google Cloud project ID
  GOOGLE_CLOUD_LOCATION - Processing location (us, eu, etc.)
  DOCUMENT_AI_PROCESSOR_ID - OCR processor ID for the documentai engine`,
	Example: `  # Recognize text in a scan using the configured engine
  docparse ocr scan.png

  # Save recognized text to file
  docparse ocr scan.png -o extracted.txt

  # German receipt through Cloud Vision, full JSON output
  docparse ocr beleg.jpg --engine vision --lang deu --json -o result.json

  # Process with custom timeout
  docparse ocr large-scan.tiff --timeout 600`,
	Args: cobra.ExactArgs(1),
	RunE: runOCR,
}

// OCROutput represents the JSON output structure when --json flag is used
type OCROutput struct {
	Text               string    `json:"text"`
	Engine             string    `json:"engine"`
	Confidence         float64   `json:"confidence,omitempty"`
	LanguageCodes      []string  `json:"language_codes,omitempty"`
	ProcessedAt        time.Time `json:"processed_at,omitempty"`
	ProcessingDuration string    `json:"processing_duration,omitempty"`
	FileName           string    `json:"file_name"`
	FileSize           int64     `json:"file_size"`
}

func init() {
	rootCmd.AddCommand(ocrCmd)

	ocrCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	ocrCmd.Flags().BoolP("metadata", "m", false, "Include metadata in output")
	ocrCmd.Flags().Bool("json", false, "Output as JSON")
	ocrCmd.Flags().Int("timeout", 300, "Processing timeout in seconds")
	ocrCmd.Flags().String("engine", "", "OCR engine: tesseract, vision or documentai (default: configured engine)")
	ocrCmd.Flags().String("lang", "", "OCR language code, e.g. eng or deu (default: configured language)")
}

func runOCR(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("ocr")

	// Get flags
	outputPath, _ := cmd.Flags().GetString("output")
	includeMetadata, _ := cmd.Flags().GetBool("metadata")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")
	engineName, _ := cmd.Flags().GetString("engine")
	language, _ := cmd.Flags().GetString("lang")

	imagePath := args[0]

	log.Info().
		Str("file", imagePath).
		Str("output", outputPath).
		Str("engine", engineName).
		Bool("json", jsonOutput).
		Int("timeout", timeoutSecs).
		Msg("Starting OCR recognition")

	// Validate and get file info
	fileInfo, err := validateImageFile(imagePath, log)
	if err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if engineName == "" {
		engineName = cfg.OCREngine
	}
	if language == "" {
		language = cfg.OCRLanguage
	}

	// Create context with timeout and signal handling
	ctx, cancel := createOCRContext(timeoutSecs, log)
	defer cancel()

	// Create OCR engine
	engine, err := createOCREngine(ctx, engineName, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := engine.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("Failed to close OCR engine")
		}
	}()

	image, err := os.ReadFile(imagePath)
	if err != nil {
		log.Error().
			Err(err).
			Str("file", imagePath).
			Msg("Failed to read image file")
		return fmt.Errorf("failed to read image file: %w", err)
	}

	mediaType := ocr.DetectImageType(image)
	if mediaType == "" {
		log.Warn().
			Str("file", imagePath).
			Msg("File content is not a recognized image format")
	}

	log.Info().
		Str("file", imagePath).
		Str("engine", engine.Name()).
		Str("mediaType", mediaType).
		Int64("size", fileInfo.Size()).
		Msg("Recognizing image")

	// Recognize text
	startTime := time.Now()
	recognition, err := engine.Recognize(ctx, image, mediaType, language)
	if err != nil {
		return handleOCRError(err, log)
	}

	processingDuration := time.Since(startTime)
	log.Info().
		Float64("confidence", recognition.Confidence).
		Strs("languages", recognition.Languages).
		Dur("duration", processingDuration).
		Int("text_length", len(recognition.Text)).
		Msg("OCR recognition completed successfully")

	// Format and output results
	return outputOCRResults(recognition, engine.Name(), fileInfo, outputPath, jsonOutput, includeMetadata, log)
}

// validateImageFile checks if the file exists, is readable, and looks like an image
func validateImageFile(imagePath string, log zerolog.Logger) (os.FileInfo, error) {
	// Check if file exists and get info
	fileInfo, err := os.Stat(imagePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Error().
				Str("file", imagePath).
				Msg("Image file not found")
			return nil, fmt.Errorf("image file not found: %s", imagePath)
		}
		if os.IsPermission(err) {
			log.Error().
				Str("file", imagePath).
				Msg("Permission denied accessing image file")
			return nil, fmt.Errorf("permission denied accessing image file: %s", imagePath)
		}
		return nil, fmt.Errorf("error accessing image file: %w", err)
	}

	// Check if it's a regular file
	if !fileInfo.Mode().IsRegular() {
		log.Error().
			Str("file", imagePath).
			Msg("Path is not a regular file")
		return nil, fmt.Errorf("path is not a regular file: %s", imagePath)
	}

	// Check file size
	if fileInfo.Size() == 0 {
		log.Error().
			Str("file", imagePath).
			Msg("Image file is empty")
		return nil, fmt.Errorf("image file is empty: %s", imagePath)
	}

	if fileInfo.Size() > ocr.MaxImageSizeBytes {
		log.Error().
			Str("file", imagePath).
			Int64("size", fileInfo.Size()).
			Int64("max_size", ocr.MaxImageSizeBytes).
			Msg("Image file exceeds maximum size limit")
		return nil, fmt.Errorf("image file too large (%d bytes). Maximum size is %d bytes (20MB)",
			fileInfo.Size(), ocr.MaxImageSizeBytes)
	}

	return fileInfo, nil
}

// createOCRContext creates a context with timeout and signal handling
func createOCRContext(timeoutSecs int, log zerolog.Logger) (context.Context, context.CancelFunc) {
	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)

	// Handle interrupt signals for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().
				Str("signal", sig.String()).
				Msg("Received interrupt signal, canceling OCR recognition")
			cancel()
		case <-ctx.Done():
			// Context completed normally
		}
	}()

	return ctx, cancel
}

// createOCREngine creates and configures the named OCR engine
func createOCREngine(ctx context.Context, engineName string, log zerolog.Logger) (ocr.Engine, error) {
	// The Google-backed engines need credentials; say so before dialing.
	if engineName == config.OCREngineVision || engineName == config.OCREngineDocumentAI {
		hasCredentials := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") != "" || os.Getenv("GOOGLE_CREDENTIALS") != ""

		if !hasCredentials {
			log.Error().Msg("Google Cloud credentials not configured")
			return nil, fmt.Errorf("Google Cloud credentials not configured. Please set one of:\n\n" +
				"1. Export GOOGLE_APPLICATION_CREDENTIALS with path to service account JSON:\n" +
				"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n" +
				"2. Export GOOGLE_CREDENTIALS with inline JSON:\n" +
				"   export GOOGLE_CREDENTIALS='{\"type\":\"service_account\",\"project_id\":\"your-project\",...}'\n\n" +
				"3. Use Application Default Credentials (if gcloud is configured):\n" +
				"   gcloud auth application-default login\n\n" +
				"4. Or switch to the local engine: DOCPARSE_OCR_ENGINE=tesseract")
		}
	}

	engine, err := ocr.NewEngine(ctx, engineName)
	if err != nil {
		if errors.Is(err, ocr.ErrMissingCredentials) {
			log.Error().
				Err(err).
				Msg("Google Cloud credentials validation failed")
			return nil, fmt.Errorf("Google Cloud credentials validation failed. Please verify:\n\n"+
				"1. Credentials file exists and is readable\n"+
				"2. JSON format is valid\n"+
				"3. Service account has proper permissions\n\n"+
				"Original error: %w", err)
		}
		if errors.Is(err, ocr.ErrInvalidConfiguration) {
			log.Error().
				Err(err).
				Msg("OCR engine configuration incomplete")
			return nil, fmt.Errorf("incomplete OCR engine configuration. Please check:\n"+
				"  GOOGLE_CLOUD_PROJECT - your Google Cloud project ID\n"+
				"  GOOGLE_CLOUD_LOCATION - processing location (us, eu, etc.)\n"+
				"  DOCUMENT_AI_PROCESSOR_ID - required for the documentai engine\n"+
				"Original error: %w", err)
		}
		log.Error().
			Err(err).
			Msg("Failed to create OCR engine")
		return nil, fmt.Errorf("failed to create OCR engine: %w", err)
	}

	if engine == nil {
		return nil, fmt.Errorf("OCR is disabled (engine %q). Set DOCPARSE_OCR_ENGINE or pass --engine", engineName)
	}

	log.Debug().Str("engine", engine.Name()).Msg("OCR engine created successfully")
	return engine, nil
}

// handleOCRError provides user-friendly error messages for OCR failures
func handleOCRError(err error, log zerolog.Logger) error {
	log.Error().Err(err).Msg("OCR recognition failed")

	errStr := err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("OCR recognition timed out. Try increasing --timeout or processing a smaller image")
	case errors.Is(err, context.Canceled) || errors.Is(err, ocr.ErrContextCanceled):
		return fmt.Errorf("OCR recognition was canceled")
	case errors.Is(err, ocr.ErrImageTooLarge):
		return fmt.Errorf("image is too large (maximum 20MB). Try scaling it down")
	case errors.Is(err, ocr.ErrUnsupportedImage):
		return fmt.Errorf("the file is not a supported image format. Supported: PNG, JPEG, GIF, WebP, TIFF, BMP")
	case errors.Is(err, ocr.ErrNoTextRecognized):
		return fmt.Errorf("no text recognized in the image. It may be blank, too low-resolution, or not a document scan")
	case strings.Contains(errStr, "Unauthenticated") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "invalid_rapt") ||
		strings.Contains(errStr, "auth:") ||
		strings.Contains(errStr, "transport: per-RPC creds failed"):
		return fmt.Errorf("Google Cloud authentication failed. Please check your credentials:\n\n"+
			"1. Set GOOGLE_APPLICATION_CREDENTIALS to your service account JSON file path:\n"+
			"   export GOOGLE_APPLICATION_CREDENTIALS=/path/to/service-account-key.json\n\n"+
			"2. Or set GOOGLE_CREDENTIALS with inline JSON:\n"+
			"   export GOOGLE_CREDENTIALS='{\"type\":\"service_account\",\"project_id\":\"your-project\",...}'\n\n"+
			"3. Ensure the service account can call the configured OCR API\n\n"+
			"4. If using Application Default Credentials, run:\n"+
			"   gcloud auth application-default login\n\n"+
			"Original error: %v", err)
	case strings.Contains(errStr, "PERMISSION_DENIED") ||
		strings.Contains(errStr, "permission") ||
		strings.Contains(errStr, "forbidden"):
		return fmt.Errorf("permission denied. Please ensure your Google Cloud service account can call the configured OCR API")
	case strings.Contains(errStr, "QUOTA_EXCEEDED") ||
		strings.Contains(errStr, "quota"):
		return fmt.Errorf("OCR API quota exceeded. Check your project quotas in the Google Cloud Console")
	case errors.Is(err, ocr.ErrRecognitionFailed):
		return fmt.Errorf("OCR recognition failed. This may be due to network issues, API quota limits, or service unavailability: %w", err)
	default:
		return fmt.Errorf("OCR recognition failed: %w", err)
	}
}

// outputOCRResults formats and outputs the recognition results
func outputOCRResults(recognition *ocr.Recognition, engineName string, fileInfo os.FileInfo, outputPath string, jsonOutput, includeMetadata bool, log zerolog.Logger) error {
	var output strings.Builder
	var outputData []byte
	var err error

	if jsonOutput {
		// JSON output
		ocrOutput := OCROutput{
			Text:               recognition.Text,
			Engine:             engineName,
			Confidence:         recognition.Confidence,
			LanguageCodes:      recognition.Languages,
			ProcessedAt:        time.Now(),
			ProcessingDuration: recognition.Duration.String(),
			FileName:           filepath.Base(fileInfo.Name()),
			FileSize:           fileInfo.Size(),
		}

		outputData, err = json.MarshalIndent(ocrOutput, "", "  ")
		if err != nil {
			log.Error().Err(err).Msg("Failed to marshal JSON output")
			return fmt.Errorf("failed to create JSON output: %w", err)
		}
	} else {
		// Text output
		if includeMetadata {
			// Add metadata header
			output.WriteString(fmt.Sprintf("=== OCR Results for %s ===\n", filepath.Base(fileInfo.Name())))
			output.WriteString(fmt.Sprintf("Engine: %s\n", engineName))
			output.WriteString(fmt.Sprintf("File size: %d bytes\n", fileInfo.Size()))
			if recognition.Confidence > 0 {
				output.WriteString(fmt.Sprintf("Confidence: %.1f%%\n", recognition.Confidence*100))
			}
			if len(recognition.Languages) > 0 {
				output.WriteString(fmt.Sprintf("Languages: %s\n", strings.Join(recognition.Languages, ", ")))
			}
			output.WriteString(fmt.Sprintf("Recognition time: %v\n", recognition.Duration))
			output.WriteString("\n=== Recognized Text ===\n\n")
		}

		output.WriteString(recognition.Text)
		outputData = []byte(output.String())
	}

	// Write output
	if outputPath != "" {
		// Write to file
		err = os.WriteFile(outputPath, outputData, 0644)
		if err != nil {
			log.Error().
				Err(err).
				Str("output_file", outputPath).
				Msg("Failed to write output file")
			return fmt.Errorf("failed to write output file: %w", err)
		}

		log.Info().
			Str("output_file", outputPath).
			Int("bytes", len(outputData)).
			Msg("OCR results written to file")
	} else {
		// Write to stdout
		_, err = os.Stdout.Write(outputData)
		if err != nil {
			log.Error().Err(err).Msg("Failed to write to stdout")
			return fmt.Errorf("failed to write output: %w", err)
		}

		// Add newline if not JSON (JSON already has proper formatting)
		if !jsonOutput {
			fmt.Println()
		}
	}

	return nil
}
