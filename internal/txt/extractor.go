// Package txt reads plain-text documents verbatim.
package txt

import (
	"context"

	"github.com/rs/zerolog"

	"docparse/internal/logger"
	"docparse/internal/quality"
	"docparse/pkg/models"
)

const (
	sourceName   = "text-reader"
	sourceFailed = "txt-extraction-failed"
)

// Extractor scores plain-text content as-is. Invalid UTF-8 sequences are
// kept verbatim; they surface as replacement runes during scoring and
// lower the quality estimate on their own.
type Extractor struct {
	log zerolog.Logger
}

func NewExtractor() *Extractor {
	return &Extractor{log: logger.WithComponent("txt")}
}

// Extract returns the document content with score and word count attached.
func (e *Extractor) Extract(ctx context.Context, doc *models.Document, opts models.ParseOptions) (*models.ParseResult, error) {
	if doc.Data == nil {
		perr := models.NewParseError(models.CodeTxtParseError, "document has no content loaded")
		return &models.ParseResult{Source: sourceFailed, Error: perr}, perr
	}

	text := doc.Text()
	result := &models.ParseResult{
		Text:   text,
		Score:  quality.Score(text),
		Source: sourceName,
		Meta:   map[string]any{models.MetaWordCount: quality.CountWords(text)},
	}

	e.log.Debug().
		Str("document", doc.Name).
		Int("bytes", len(doc.Data)).
		Float64("score", result.Score).
		Msg("Text extraction finished")
	return result, nil
}
