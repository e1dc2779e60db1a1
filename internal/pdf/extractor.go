package pdf

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"docparse/internal/logger"
	"docparse/internal/quality"
	"docparse/pkg/models"
)

const (
	sourceName   = "pdf-engine"
	sourceFailed = "pdf-extraction-failed"
)

// Text layer detection samples the first pages and stops counting once the
// document has clearly more than a handful of text items.
const (
	textLayerSamplePages = 3
	textLayerSampleItems = 20
)

// Extractor pulls the text layer out of PDF documents.
type Extractor struct {
	engine Engine

	// preflight is swappable so tests can exercise the encryption and
	// image-stream paths without crafting real encrypted files.
	preflight func(data []byte) (*Preflight, error)

	log zerolog.Logger
}

// NewExtractor creates a PDF extractor on top of engine.
func NewExtractor(engine Engine) *Extractor {
	return &Extractor{
		engine:    engine,
		preflight: preflight,
		log:       logger.WithComponent("pdf"),
	}
}

// Extract validates the document, checks for a text layer and walks the
// pages. Encrypted documents fail with PDF_ENCRYPTED before any page is
// read. A missing text layer is reported as PDF_NO_TEXT_LAYER; that code
// stays actionable (the caller can hand the file to OCR) only while OCR is
// enabled in opts.
func (e *Extractor) Extract(ctx context.Context, doc *models.Document, opts models.ParseOptions) (*models.ParseResult, error) {
	pf, err := e.preflight(doc.Data)
	if err != nil {
		if errors.Is(err, ErrEncrypted) {
			return e.failure(models.CodePDFEncrypted, "document is password protected", err)
		}
		// Validation trouble is advisory. The page reader gets its own
		// chance and reports its own, better classified error.
		e.log.Warn().Err(err).Str("document", doc.Name).Msg("PDF preflight failed, continuing without structural info")
		pf = nil
	}

	document, err := e.engine.Open(doc.Data)
	if err != nil {
		return e.classifyError(err)
	}

	pageCount := document.NumPages()
	if pageCount <= 0 && pf != nil {
		pageCount = pf.PageCount
	}
	if pageCount <= 0 {
		return e.failure(models.CodePDFParseError, "document has no readable pages", nil)
	}

	if !hasTextLayer(document, pageCount) {
		perr := models.NewParseError(models.CodePDFNoTextLayer, "no text layer found in the sampled pages")
		if !opts.OCREnabled() {
			perr.Actionable = false
			perr.SuggestedAction = ""
		}
		e.log.Debug().Str("document", doc.Name).Bool("ocrEnabled", opts.OCREnabled()).Msg("PDF has no text layer")
		return &models.ParseResult{Source: sourceFailed, Error: perr}, perr
	}

	limit := pageCount
	if opts.MaxPages > 0 && opts.MaxPages < limit {
		limit = opts.MaxPages
	}

	pages := make([]models.Page, 0, limit)
	parts := make([]string, 0, limit)
	for n := 1; n <= limit; n++ {
		items, err := document.PageTextItems(n)
		if err != nil {
			e.log.Debug().Err(err).Int("page", n).Msg("Skipping unreadable PDF page")
			continue
		}
		text := strings.Join(items, " ")
		pages = append(pages, models.Page{N: n, Text: text})
		parts = append(parts, text)
	}

	text := strings.Join(parts, "\n\n")
	result := &models.ParseResult{
		Text:   text,
		Score:  quality.Score(text),
		Source: sourceName,
		Pages:  pages,
		Meta: map[string]any{
			models.MetaWordCount:      quality.CountWords(text),
			models.MetaTotalPages:     pageCount,
			models.MetaExtractedPages: len(pages),
		},
	}
	if pf != nil {
		result.Meta[models.MetaImageStreams] = pf.HasImageStreams
	}

	e.log.Debug().
		Str("document", doc.Name).
		Int("totalPages", pageCount).
		Int("extractedPages", len(pages)).
		Float64("score", result.Score).
		Msg("PDF extraction finished")
	return result, nil
}

// hasTextLayer samples the first pages for extractable text items.
func hasTextLayer(document Document, pageCount int) bool {
	sample := textLayerSamplePages
	if pageCount < sample {
		sample = pageCount
	}

	items := 0
	for n := 1; n <= sample; n++ {
		pageItems, err := document.PageTextItems(n)
		if err != nil {
			continue
		}
		items += len(pageItems)
		if items > textLayerSampleItems {
			return true
		}
	}
	return items > 0
}

// classifyError maps reader errors onto the failure codes. Password and
// encryption wording means the document is protected, everything else is a
// generic parse failure carrying the diagnostic text.
func (e *Extractor) classifyError(err error) (*models.ParseResult, error) {
	if isPasswordError(err) {
		return e.failure(models.CodePDFEncrypted, "document is password protected: "+err.Error(), err)
	}
	return e.failure(models.CodePDFParseError, "PDF parsing failed: "+err.Error(), err)
}

func (e *Extractor) failure(code models.ErrorCode, message string, cause error) (*models.ParseResult, error) {
	perr := models.WrapParseError(code, message, cause)
	e.log.Debug().Str("code", string(code)).Msg("PDF extraction failed")
	return &models.ParseResult{Source: sourceFailed, Error: perr}, perr
}
