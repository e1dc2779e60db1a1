package docx

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

// Result source tags.
const (
	sourcePrimary  = "docconv"
	sourceFallback = "direct-zip-extraction"
	sourceFailed   = "docx-extraction-failed"
)

// zipSignature is the ZIP local-file-header magic every DOCX starts with.
var zipSignature = []byte{0x50, 0x4B, 0x03, 0x04}

// Extractor is the DOCX backend of the extraction pipeline.
type Extractor struct {
	converter Converter
	log       zerolog.Logger
}

// NewExtractor creates the backend around a converter. A nil converter is
// reported as a missing capability.
func NewExtractor(converter Converter) *Extractor {
	return &Extractor{
		converter: converter,
		log:       logger.WithComponent("docx"),
	}
}

// Extract pulls text out of a DOCX document. Converter errors are hard
// failures: they mean the file is not actually readable as a structured
// office document, and no fallback can compensate. The ZIP fallback runs
// only when the converter returns empty text without erroring.
func (e *Extractor) Extract(ctx context.Context, doc *models.Document, opts models.ParseOptions) (*models.ParseResult, error) {
	if !bytes.HasPrefix(doc.Data, zipSignature) {
		return e.failure(models.CodeInvalidDocxSignature,
			fmt.Sprintf("%s does not start with the ZIP local-file-header signature", doc.Name), nil)
	}

	if e.converter == nil {
		return e.failure(models.CodeMissingLibrary, "no DOCX converter is available", nil)
	}

	text, warnings, err := e.converter.Convert(ctx, doc.Data)
	if err != nil {
		return e.classifyError(err)
	}
	if strings.TrimSpace(text) != "" {
		return e.success(doc, text, sourcePrimary, warnings, false), nil
	}

	e.log.Debug().Str("document", doc.Name).Msg("Primary DOCX extraction empty, trying direct ZIP fallback")

	fallbackText, err := extractFromZip(doc.Data)
	if err != nil {
		if errors.Is(err, ErrMissingDocumentPart) {
			return e.failure(models.CodeDocxParseError,
				"file is a ZIP archive but not a Word document: "+err.Error(), err)
		}
		return e.classifyError(err)
	}
	if strings.TrimSpace(fallbackText) == "" {
		return e.failure(models.CodeDocxNoTextExtracted,
			"no text could be extracted from the document", nil)
	}
	return e.success(doc, fallbackText, sourceFallback, nil, true), nil
}

// classifyError maps converter and archive errors onto the failure codes
// the orchestrator treats as hard.
func (e *Extractor) classifyError(err error) (*models.ParseResult, error) {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "zip"), strings.Contains(msg, "archive"):
		return e.failure(models.CodeDocxNotValidZIP,
			"file could not be read as a ZIP archive: "+err.Error(), err)
	case strings.Contains(msg, "password"), strings.Contains(msg, "protected"):
		return e.failure(models.CodeDocxPasswordProtected,
			"document is password protected: "+err.Error(), err)
	default:
		return e.failure(models.CodeDocxParseError,
			"DOCX parsing failed: "+err.Error(), err)
	}
}

func (e *Extractor) success(doc *models.Document, text, source string, warnings []string, fallback bool) *models.ParseResult {
	score := quality.Score(text)
	words := quality.CountWords(text)

	meta := map[string]any{models.MetaWordCount: words}
	if len(warnings) > 0 {
		meta[models.MetaWarnings] = warnings
	}
	if fallback {
		meta[models.MetaFallbackMethod] = true
	}

	e.log.Debug().
		Str("document", doc.Name).
		Str("source", source).
		Int("words", words).
		Float64("score", score).
		Msg("DOCX extraction completed")

	return &models.ParseResult{
		Text:   text,
		Score:  score,
		Source: source,
		Meta:   meta,
	}
}

func (e *Extractor) failure(code models.ErrorCode, message string, cause error) (*models.ParseResult, error) {
	perr := models.WrapParseError(code, message, cause)
	e.log.Debug().Str("code", string(code)).Msg("DOCX extraction failed")
	return &models.ParseResult{Source: sourceFailed, Error: perr}, perr
}
