// Package extract orchestrates the format-specific extraction backends.
//
// A document is sniffed, routed to its backend, and the returned text runs
// through an acceptance policy: enough words or a good enough quality score
// accept immediately, weak results are kept as best-so-far, and OCR serves
// as the last resort for image content. The whole pipeline races the
// configured timeout; on expiry the caller still receives the best text
// obtained up to that point.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"docparse/internal/config"
	"docparse/internal/docx"
	"docparse/internal/logger"
	"docparse/internal/ocr"
	"docparse/internal/pdf"
	"docparse/internal/quality"
	"docparse/internal/txt"
	"docparse/pkg/models"
)

const (
	sourceSniffFailed      = "sniff-failed"
	sourceTimeout          = "parsing-timeout"
	sourceExtractionFailed = "extraction-failed"
)

// Acceptance policy thresholds. MinWordCount and MinQualityScore come from
// ParseOptions; these two are fixed service policy.
const (
	// defaultLowBarWords accepts a weak result over a "no text" failure.
	defaultLowBarWords = 10

	// defaultOCRTriggerScore sends a poorly scored text to the OCR fallback.
	defaultOCRTriggerScore = 0.2
)

// Parser is one format-specific extraction backend. The returned result is
// always non-nil; on failure it carries the structured error that is also
// returned as err.
type Parser interface {
	Extract(ctx context.Context, doc *models.Document, opts models.ParseOptions) (*models.ParseResult, error)
}

// Deps are the backends the service orchestrates. A nil backend means the
// capability is absent; documents routed to it fail with MISSING_LIBRARY.
type Deps struct {
	Docx Parser
	PDF  Parser
	Txt  Parser
	OCR  Parser
}

// Service routes documents to backends and applies the acceptance policy.
// Stateless across calls and safe for concurrent use.
type Service struct {
	docx Parser
	pdf  Parser
	txt  Parser
	ocr  Parser

	lowBarWords     int
	ocrTriggerScore float64

	log zerolog.Logger
}

// New creates a Service with explicit backends. Tests inject fakes here.
func New(deps Deps) *Service {
	return &Service{
		docx:            deps.Docx,
		pdf:             deps.PDF,
		txt:             deps.Txt,
		ocr:             deps.OCR,
		lowBarWords:     defaultLowBarWords,
		ocrTriggerScore: defaultOCRTriggerScore,
		log:             logger.WithComponent("extract"),
	}
}

// NewFromConfig wires the production backends: docconv for Word documents,
// pdfcpu plus the page-walk engine for PDF, the verbatim reader for text,
// and the OCR engine named in cfg.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*Service, error) {
	engine, err := ocr.NewEngine(ctx, cfg.OCREngine)
	if err != nil {
		return nil, fmt.Errorf("creating OCR engine: %w", err)
	}

	return New(Deps{
		Docx: docx.NewExtractor(docx.NewDocconvConverter()),
		PDF:  pdf.NewExtractor(pdf.NewEngine()),
		Txt:  txt.NewExtractor(),
		OCR:  ocr.NewExtractor(engine),
	}), nil
}

// Close releases backend resources, currently the OCR engine's client.
// Backends that hold nothing to release are skipped.
func (s *Service) Close() error {
	if c, ok := s.ocr.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Parse runs the pipeline on doc. The result is never nil; on failure it
// carries the best text obtained so far together with the structured error,
// and the same *models.ParseError is returned as err for errors.Is callers.
func (s *Service) Parse(ctx context.Context, doc *models.Document, opts models.ParseOptions) (*models.ParseResult, error) {
	opts = opts.Normalized()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	best := &bestTracker{}
	done := make(chan *models.ParseResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Str("document", doc.Name).Msg("Extraction pipeline panicked")
				perr := models.NewParseError(models.CodeExtractionError,
					fmt.Sprintf("unexpected extraction failure: %v", r))
				done <- s.failed(best.snapshot(), sourceExtractionFailed, perr)
			}
		}()
		done <- s.run(ctx, doc, opts, best)
	}()

	select {
	case result := <-done:
		if result.Failed() {
			return result, result.Error
		}
		return result, nil
	case <-ctx.Done():
		// In-flight backend work is abandoned, not awaited. The goroutine
		// drains into the buffered channel and gets collected.
		msg := fmt.Sprintf("parsing did not finish within %s", opts.Timeout)
		if errors.Is(ctx.Err(), context.Canceled) {
			msg = "parsing was canceled"
		}
		s.log.Warn().Str("document", doc.Name).Dur("timeout", opts.Timeout).Msg("Extraction timed out, returning best effort")
		perr := models.NewParseError(models.CodeParsingTimeout, msg)
		return s.failed(best.snapshot(), sourceTimeout, perr), perr
	}
}

func (s *Service) run(ctx context.Context, doc *models.Document, opts models.ParseOptions, best *bestTracker) *models.ParseResult {
	format := Sniff(doc.Name, doc.MediaType, doc.Data)
	s.log.Debug().
		Str("document", doc.Name).
		Str("mediaType", doc.MediaType).
		Str("format", string(format)).
		Msg("Sniffed document format")

	switch format {
	case FormatLegacy:
		return s.failed(nil, sourceSniffFailed,
			models.NewParseError(models.CodeLegacyDocFormat, "legacy .doc format is not supported"))
	case FormatUnknown:
		return s.failed(nil, sourceSniffFailed,
			models.NewParseError(models.CodeUnsupportedFormat, "unsupported format: "+describeUpload(doc)))
	case FormatImage:
		if !opts.OCREnabled() {
			perr := models.NewParseError(models.CodeUnsupportedFormat,
				"image uploads require OCR, which is disabled")
			perr.SuggestedAction = "Enable OCR to parse images, or upload a text-based document."
			return s.failed(nil, sourceSniffFailed, perr)
		}
	}

	primary := s.backendFor(format)
	if primary == nil {
		return s.failed(nil, sourceExtractionFailed,
			models.NewParseError(models.CodeMissingLibrary,
				fmt.Sprintf("no backend available for %s documents", format)))
	}

	// Image uploads go straight to OCR, so the primary attempt already
	// counts as the OCR attempt.
	ocrAttempted := format == FormatImage
	ocrFailed := false

	result, _ := primary.Extract(ctx, doc, opts)
	if result.Failed() {
		if format == FormatImage || s.isHardFailure(result.Error.Code, opts) {
			return result
		}
		s.log.Debug().
			Str("document", doc.Name).
			Str("code", string(result.Error.Code)).
			Msg("Primary extraction failed, evaluating fallbacks")
	} else {
		words := resultWords(result)
		if words >= opts.MinWordCount || result.Score >= opts.MinQualityScore {
			s.logAccept(doc, result, "primary")
			return result
		}
		best.offer(result)
	}

	if b := best.snapshot(); b != nil && resultWords(b) >= s.lowBarWords {
		s.logAccept(doc, b, "low-bar")
		return b
	}

	b := best.snapshot()
	if s.ocr != nil && format != FormatImage && opts.OCREnabled() && (b == nil || b.Score < s.ocrTriggerScore) {
		ocrAttempted = true
		ocrResult, _ := s.ocr.Extract(ctx, doc, opts)
		switch {
		case ocrResult.Failed():
			ocrFailed = true
			s.log.Debug().
				Str("document", doc.Name).
				Str("code", string(ocrResult.Error.Code)).
				Msg("OCR fallback failed")
		case resultWords(ocrResult) >= s.ocrFinalWords(opts):
			s.logAccept(doc, ocrResult, "ocr")
			return ocrResult
		default:
			best.offer(ocrResult)
		}
	}

	code := models.CodeNoTextExtracted
	if format == FormatWord {
		code = models.CodeDocxNoTextExtracted
	}
	perr := models.NewParseError(code, "no usable text could be extracted from "+doc.Name)
	if ocrAttempted && ocrFailed {
		perr.Actionable = false
		perr.SuggestedAction = ""
	}
	if result.Failed() {
		// Keep the backend diagnosis reachable for errors.Is callers.
		perr.Err = result.Error
	}
	return s.failed(best.snapshot(), sourceExtractionFailed, perr)
}

func (s *Service) backendFor(format Format) Parser {
	switch format {
	case FormatWord:
		return s.docx
	case FormatPDF:
		return s.pdf
	case FormatText:
		return s.txt
	case FormatImage:
		return s.ocr
	}
	return nil
}

// isHardFailure reports codes no fallback can recover from: the document
// itself is unreadable, protected, or a required capability is missing.
func (s *Service) isHardFailure(code models.ErrorCode, opts models.ParseOptions) bool {
	switch code {
	case models.CodePDFEncrypted,
		models.CodeInvalidDocxSignature,
		models.CodeDocxNotValidZIP,
		models.CodeDocxPasswordProtected,
		models.CodeDocxParseError,
		models.CodeMissingLibrary:
		return true
	case models.CodePDFNoTextLayer:
		return !opts.OCREnabled()
	}
	return false
}

// ocrFinalWords is the word count at which an OCR result is taken as final
// instead of merely updating best-so-far.
func (s *Service) ocrFinalWords(opts models.ParseOptions) int {
	n := opts.MinWordCount / 2
	if n < s.lowBarWords {
		n = s.lowBarWords
	}
	return n
}

// failed builds a failure result. When best-so-far text exists it is carried
// along and the source keeps naming the backend that produced the text.
func (s *Service) failed(best *models.ParseResult, source string, perr *models.ParseError) *models.ParseResult {
	if best == nil {
		return &models.ParseResult{Source: source, Error: perr}
	}
	result := *best
	result.Error = perr
	return &result
}

func (s *Service) logAccept(doc *models.Document, r *models.ParseResult, path string) {
	s.log.Info().
		Str("document", doc.Name).
		Str("source", r.Source).
		Str("path", path).
		Float64("score", r.Score).
		Int("words", resultWords(r)).
		Msg("Extraction accepted")
}

func resultWords(r *models.ParseResult) int {
	if n := r.WordCount(); n > 0 {
		return n
	}
	return quality.CountWords(r.Text)
}

func describeUpload(doc *models.Document) string {
	if doc.MediaType == "" {
		return doc.Name
	}
	return doc.Name + " (" + doc.MediaType + ")"
}

// bestTracker keeps the highest scoring non-empty result seen so far. The
// timeout path reads it from another goroutine, hence the mutex.
type bestTracker struct {
	mu   sync.Mutex
	best *models.ParseResult
}

func (b *bestTracker) offer(r *models.ParseResult) {
	if r == nil || strings.TrimSpace(r.Text) == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.best == nil || r.Score > b.best.Score {
		b.best = r
	}
}

func (b *bestTracker) snapshot() *models.ParseResult {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.best
}
