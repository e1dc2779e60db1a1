package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"docparse/internal/logger"
	"docparse/internal/quality"
	"docparse/pkg/models"
)

// sourceFailed tags results from attempts that produced no usable text.
const sourceFailed = "ocr-failed"

// Extractor is the OCR backend of the extraction pipeline. It only accepts
// single raster images; PDFs must be rendered to images upstream, which is
// not implemented.
type Extractor struct {
	engine Engine
	log    zerolog.Logger
}

// NewExtractor creates the backend around an engine. A nil engine is legal
// and reported as a missing capability on every extraction attempt.
func NewExtractor(engine Engine) *Extractor {
	return &Extractor{
		engine: engine,
		log:    logger.WithComponent("ocr"),
	}
}

// Close releases the engine. Safe to call on an extractor without one.
func (e *Extractor) Close() error {
	if e.engine == nil {
		return nil
	}
	return e.engine.Close()
}

// Extract recognizes text in an image document.
func (e *Extractor) Extract(ctx context.Context, doc *models.Document, opts models.ParseOptions) (*models.ParseResult, error) {
	if doc.MediaType == "application/pdf" || bytes.HasPrefix(doc.Data, []byte("%PDF")) {
		return e.failure(models.CodeOCRPDFNotImplemented,
			"OCR for PDF files is not implemented; PDF pages are not rendered to images", nil)
	}

	sniffed := DetectImageType(doc.Data)
	if !strings.HasPrefix(doc.MediaType, "image/") && sniffed == "" {
		return e.failure(models.CodeOCRUnsupportedType,
			fmt.Sprintf("OCR supports images only, got %q", doc.MediaType), nil)
	}

	if e.engine == nil {
		return e.failure(models.CodeMissingLibrary,
			"no OCR engine is available; configure DOCPARSE_OCR_ENGINE", ErrEngineUnavailable)
	}

	mediaType := sniffed
	if mediaType == "" {
		mediaType = doc.MediaType
	}

	e.log.Debug().
		Str("engine", e.engine.Name()).
		Str("media_type", mediaType).
		Int64("size", doc.Size()).
		Str("language", opts.OCRLanguage).
		Msg("Starting OCR recognition")

	rec, err := e.engine.Recognize(ctx, doc.Data, mediaType, opts.OCRLanguage)
	if err != nil {
		if errors.Is(err, ErrMissingCredentials) || errors.Is(err, ErrInvalidConfiguration) || errors.Is(err, ErrEngineUnavailable) {
			return e.failure(models.CodeMissingLibrary,
				fmt.Sprintf("OCR engine %s is not usable: %v", e.engine.Name(), err), err)
		}
		return e.failure(models.CodeOCRParseError,
			fmt.Sprintf("OCR recognition failed: %v", err), err)
	}

	words := quality.CountWords(rec.Text)
	score := quality.Score(rec.Text)

	e.log.Debug().
		Str("engine", e.engine.Name()).
		Int("words", words).
		Float64("score", score).
		Float64("confidence", rec.Confidence).
		Dur("duration", rec.Duration).
		Msg("OCR recognition completed")

	result := &models.ParseResult{
		Text:   rec.Text,
		Score:  score,
		Source: e.engine.Name(),
		Meta: map[string]any{
			models.MetaWordCount:     words,
			models.MetaOCRConfidence: rec.Confidence,
			models.MetaEngine:        e.engine.Name(),
		},
	}
	if len(rec.Languages) > 0 {
		result.Meta["languages"] = rec.Languages
	}
	return result, nil
}

func (e *Extractor) failure(code models.ErrorCode, message string, cause error) (*models.ParseResult, error) {
	perr := models.WrapParseError(code, message, cause)
	e.log.Debug().Str("code", string(code)).Msg("OCR extraction failed")
	return &models.ParseResult{Source: sourceFailed, Error: perr}, perr
}
