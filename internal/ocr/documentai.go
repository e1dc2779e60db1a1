package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"docparse/internal/logger"
)

// DocumentAIEngine implements Engine using a Google Document AI OCR processor.
type DocumentAIEngine struct {
	client        *documentai.DocumentProcessorClient
	processorName string
	log           zerolog.Logger
}

// NewDocumentAIEngine creates the engine with credentials from environment.
// Expects: GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS
// Requires: GOOGLE_PROJECT_ID, GOOGLE_PROCESSOR_ID (an OCR processor)
// Optional: GOOGLE_LOCATION (e.g., "us" or "eu")
func NewDocumentAIEngine(ctx context.Context) (*DocumentAIEngine, error) {
	const op = "NewDocumentAIEngine"

	projectID := getEnvVar("GOOGLE_PROJECT_ID", "GOOGLE_CLOUD_PROJECT")
	location := getEnvVar("GOOGLE_LOCATION", "GOOGLE_CLOUD_LOCATION")
	processorID := getEnvVar("GOOGLE_PROCESSOR_ID", "DOCUMENT_AI_PROCESSOR_ID")

	if projectID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "GOOGLE_PROJECT_ID or GOOGLE_CLOUD_PROJECT is required")
	}
	if processorID == "" {
		return nil, WrapOCRError(op, ErrInvalidConfiguration, "GOOGLE_PROCESSOR_ID or DOCUMENT_AI_PROCESSOR_ID is required")
	}
	if location == "" {
		location = "us" // Default location
	}

	var clientOptions []option.ClientOption

	// Set regional endpoint if not us-central1
	if location != "us" {
		endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", location)
		clientOptions = append(clientOptions, option.WithEndpoint(endpoint))
	}

	// Add credentials
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		clientOptions = append(clientOptions, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(credFile))
	}

	client, err := documentai.NewDocumentProcessorClient(ctx, clientOptions...)
	if err != nil {
		if len(clientOptions) == 0 {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
		return nil, WrapOCRError(op, err, fmt.Sprintf("failed to create Document AI client for location: %s", location))
	}

	return &DocumentAIEngine{
		client: client,
		processorName: fmt.Sprintf("projects/%s/locations/%s/processors/%s",
			projectID, location, processorID),
		log: logger.WithComponent("document-ai"),
	}, nil
}

// NewDocumentAIEngineWithClient creates the engine with an explicit client and
// processor name (for testing).
func NewDocumentAIEngineWithClient(client *documentai.DocumentProcessorClient, processorName string) *DocumentAIEngine {
	return &DocumentAIEngine{
		client:        client,
		processorName: processorName,
		log:           logger.WithComponent("document-ai"),
	}
}

// Name identifies the engine in result source tags.
func (d *DocumentAIEngine) Name() string {
	return "documentai-ocr"
}

// Recognize sends the image through the configured OCR processor. The
// language is chosen by the processor itself; the parameter is unused here.
func (d *DocumentAIEngine) Recognize(ctx context.Context, image []byte, mediaType, language string) (*Recognition, error) {
	const op = "DocumentAIEngine.Recognize"
	start := time.Now()

	if len(image) > MaxImageSizeBytes {
		return nil, WrapOCRError(op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(image)))
	}
	if mediaType == "" {
		mediaType = DetectImageType(image)
	}

	req := &documentaipb.ProcessRequest{
		Name: d.processorName,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  image,
				MimeType: mediaType,
			},
		},
	}

	resp, err := d.client.ProcessDocument(ctx, req)
	if err != nil {
		return nil, d.handleRecognitionError(op, err)
	}
	if resp.Document == nil {
		return nil, WrapOCRError(op, ErrRecognitionFailed, "no document in response")
	}
	if strings.TrimSpace(resp.Document.Text) == "" {
		return nil, WrapOCRError(op, ErrNoTextRecognized, "")
	}

	// Average layout confidence across pages.
	var confidenceSum float32
	var confidenceCount int
	for _, page := range resp.Document.Pages {
		if layout := page.GetLayout(); layout != nil && layout.Confidence > 0 {
			confidenceSum += layout.Confidence
			confidenceCount++
		}
	}
	var confidence float64
	if confidenceCount > 0 {
		confidence = float64(confidenceSum) / float64(confidenceCount)
	}

	d.log.Debug().
		Int("pages", len(resp.Document.Pages)).
		Float64("confidence", confidence).
		Msg("Document AI recognition completed")

	return &Recognition{
		Text:       resp.Document.Text,
		Confidence: confidence,
		Duration:   time.Since(start),
	}, nil
}

// handleRecognitionError converts Document AI errors to OCR errors.
func (d *DocumentAIEngine) handleRecognitionError(op string, err error) error {
	errStr := err.Error()

	switch {
	case strings.Contains(errStr, "PERMISSION_DENIED"):
		return WrapOCRError(op, ErrMissingCredentials, "insufficient permissions for Document AI")
	case strings.Contains(errStr, "QUOTA_EXCEEDED"), strings.Contains(errStr, "RESOURCE_EXHAUSTED"):
		return WrapOCRError(op, ErrQuotaExceeded, "Document AI API quota exceeded")
	case strings.Contains(errStr, "NOT_FOUND"):
		return WrapOCRError(op, ErrProcessorNotFound, fmt.Sprintf("processor not found: %s", d.processorName))
	case strings.Contains(errStr, "INVALID_ARGUMENT"):
		return WrapOCRError(op, ErrUnsupportedImage, "image format not supported or corrupted")
	case strings.Contains(errStr, "DeadlineExceeded"), strings.Contains(errStr, "context deadline exceeded"):
		return WrapOCRError(op, context.DeadlineExceeded, "recognition timeout")
	case strings.Contains(errStr, "Canceled"), strings.Contains(errStr, "context canceled"):
		return WrapOCRError(op, ErrContextCanceled, "recognition was canceled")
	default:
		return WrapOCRError(op, ErrRecognitionFailed, fmt.Sprintf("Document AI error: %v", err))
	}
}

// Close closes the underlying Document AI client.
func (d *DocumentAIEngine) Close() error {
	if d.client != nil {
		return d.client.Close()
	}
	return nil
}

// getEnvVar tries multiple environment variable names and returns the first non-empty value
func getEnvVar(names ...string) string {
	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			return value
		}
	}
	return ""
}
