// Package ocr recognizes text in scanned images through pluggable engines.
//
// Three engines are supported, selected with DOCPARSE_OCR_ENGINE:
//   - tesseract (default): local recognition via libtesseract, no network
//   - vision: Google Cloud Vision document text detection
//   - documentai: a Google Document AI OCR processor
//
// Environment variables for the Google-backed engines:
//   - GOOGLE_APPLICATION_CREDENTIALS: path to service account JSON file, OR
//   - GOOGLE_CREDENTIALS: inline JSON credentials string
//   - GOOGLE_PROJECT_ID or GOOGLE_CLOUD_PROJECT: project (documentai only)
//   - GOOGLE_LOCATION or GOOGLE_CLOUD_LOCATION: region, defaults to "us"
//   - GOOGLE_PROCESSOR_ID or DOCUMENT_AI_PROCESSOR_ID: OCR processor (documentai only)
//
// Limitations:
//   - Only single images are recognized here. PDFs never reach an engine;
//     rendering PDF pages to images is not implemented.
//   - The Google-backed engines accept at most 20MB per image.
//   - Tesseract language packs must be installed for any language other
//     than the default "eng".
package ocr

import (
	"context"
	"fmt"
	"time"
)

// Engine recognizes text in a single image.
type Engine interface {
	// Name identifies the engine in result source tags (e.g. "tesseract-ocr").
	Name() string

	// Recognize extracts text from image bytes. mediaType is the sniffed or
	// declared image MIME type, language the engine-specific language code.
	Recognize(ctx context.Context, image []byte, mediaType, language string) (*Recognition, error)

	// Close releases the engine's underlying resources.
	Close() error
}

// Recognition is the outcome of one engine invocation.
type Recognition struct {
	// Text is the recognized text in reading order.
	Text string `json:"text"`

	// Confidence is the engine-reported or estimated confidence (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Languages lists detected language codes, when the engine reports them.
	Languages []string `json:"languages,omitempty"`

	// Duration is how long recognition took.
	Duration time.Duration `json:"duration"`
}

// Engine names accepted by NewEngine.
const (
	EngineTesseract  = "tesseract"
	EngineVision     = "vision"
	EngineDocumentAI = "documentai"
	EngineNone       = "none"
)

// NewEngine constructs the named engine. Each engine reads its own
// credentials from the environment. The name "none" yields a nil engine,
// which downstream code reports as a missing capability.
func NewEngine(ctx context.Context, name string) (Engine, error) {
	switch name {
	case EngineTesseract, "":
		return NewTesseractEngine(), nil
	case EngineVision:
		return NewVisionEngine(ctx)
	case EngineDocumentAI:
		return NewDocumentAIEngine(ctx)
	case EngineNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown OCR engine %q", name)
	}
}
