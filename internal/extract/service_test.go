package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docparse/pkg/models"
)

type stubParser struct {
	result *models.ParseResult
	calls  int
	block  bool
	panics bool
}

func (p *stubParser) Extract(ctx context.Context, doc *models.Document, opts models.ParseOptions) (*models.ParseResult, error) {
	p.calls++
	if p.panics {
		panic("backend exploded")
	}
	if p.block {
		<-ctx.Done()
		perr := models.NewParseError(models.CodeExtractionError, "interrupted")
		return &models.ParseResult{Source: "stub-failed", Error: perr}, perr
	}
	if p.result.Failed() {
		return p.result, p.result.Error
	}
	return p.result, nil
}

func textOfWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("word%d", i)
	}
	return strings.Join(words, " ")
}

func okStub(source string, words int, score float64) *stubParser {
	return &stubParser{result: &models.ParseResult{
		Text:   textOfWords(words),
		Score:  score,
		Source: source,
		Meta:   map[string]any{models.MetaWordCount: words},
	}}
}

func failStub(source string, code models.ErrorCode) *stubParser {
	return &stubParser{result: &models.ParseResult{
		Source: source,
		Error:  models.NewParseError(code, "stub: "+string(code)),
	}}
}

func pdfUpload() *models.Document {
	return &models.Document{Name: "scan.pdf", MediaType: "application/pdf", Data: []byte("%PDF-1.4")}
}

func docxUpload() *models.Document {
	return &models.Document{Name: "report.docx", Data: []byte{0x50, 0x4B, 0x03, 0x04}}
}

func imageUpload() *models.Document {
	return &models.Document{Name: "photo.png", MediaType: "image/png", Data: []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}}
}

func TestParse_AcceptsOnWordCount(t *testing.T) {
	pdf := okStub("pdf-engine", 30, 0.1)
	ocr := okStub("tesseract-ocr", 99, 0.99)
	svc := New(Deps{PDF: pdf, OCR: ocr})

	result, err := svc.Parse(context.Background(), pdfUpload(), models.DefaultParseOptions())

	require.NoError(t, err)
	assert.Same(t, pdf.result, result, "quantity overrides quality")
	assert.Equal(t, 0, ocr.calls)
}

func TestParse_AcceptsOnScore(t *testing.T) {
	pdf := okStub("pdf-engine", 5, 0.9)
	svc := New(Deps{PDF: pdf})

	result, err := svc.Parse(context.Background(), pdfUpload(), models.DefaultParseOptions())

	require.NoError(t, err)
	assert.Same(t, pdf.result, result)
}

func TestParse_WeakResultWithoutOCRKeepsBestSoFar(t *testing.T) {
	pdf := okStub("pdf-engine", 5, 0.1)
	svc := New(Deps{PDF: pdf})

	opts := models.DefaultParseOptions()
	opts.DisableOCR = true
	result, err := svc.Parse(context.Background(), pdfUpload(), opts)

	require.Error(t, err)
	assert.Equal(t, models.CodeNoTextExtracted, result.Error.Code)
	assert.True(t, result.Error.Actionable, "no OCR attempt happened, the user can still act")
	assert.Equal(t, textOfWords(5), result.Text, "failure carries the best text seen")
	assert.Equal(t, "pdf-engine", result.Source)
}

func TestParse_LowBarAcceptance(t *testing.T) {
	pdf := okStub("pdf-engine", 12, 0.05)
	ocr := okStub("tesseract-ocr", 99, 0.99)
	svc := New(Deps{PDF: pdf, OCR: ocr})

	result, err := svc.Parse(context.Background(), pdfUpload(), models.DefaultParseOptions())

	require.NoError(t, err)
	assert.Equal(t, textOfWords(12), result.Text)
	assert.Equal(t, 0, ocr.calls, "low-bar acceptance runs before the OCR fallback")
}

func TestParse_OCRFallbackBecomesFinal(t *testing.T) {
	pdf := failStub("pdf-extraction-failed", models.CodePDFNoTextLayer)
	ocr := okStub("tesseract-ocr", 50, 0.8)
	svc := New(Deps{PDF: pdf, OCR: ocr})

	result, err := svc.Parse(context.Background(), pdfUpload(), models.DefaultParseOptions())

	require.NoError(t, err)
	assert.Same(t, ocr.result, result)
	assert.Equal(t, 1, ocr.calls)
}

func TestParse_OCRImprovesBestButNotFinal(t *testing.T) {
	pdf := okStub("pdf-engine", 3, 0.1)
	ocr := okStub("tesseract-ocr", 8, 0.15)
	svc := New(Deps{PDF: pdf, OCR: ocr})

	result, err := svc.Parse(context.Background(), pdfUpload(), models.DefaultParseOptions())

	require.Error(t, err)
	assert.Equal(t, models.CodeNoTextExtracted, result.Error.Code)
	assert.True(t, result.Error.Actionable, "OCR ran but did not fail")
	assert.Equal(t, textOfWords(8), result.Text, "higher scoring OCR text replaces the best so far")
	assert.Equal(t, "tesseract-ocr", result.Source)
}

func TestParse_HardFailureReturnsImmediately(t *testing.T) {
	docx := failStub("docx-extraction-failed", models.CodeDocxPasswordProtected)
	ocr := okStub("tesseract-ocr", 99, 0.99)
	svc := New(Deps{Docx: docx, OCR: ocr})

	result, err := svc.Parse(context.Background(), docxUpload(), models.DefaultParseOptions())

	require.Error(t, err)
	assert.Equal(t, models.CodeDocxPasswordProtected, result.Error.Code)
	assert.Equal(t, 0, ocr.calls, "hard failures skip every fallback")
}

func TestParse_NoTextLayerTerminalWhenOCRDisabled(t *testing.T) {
	pdf := failStub("pdf-extraction-failed", models.CodePDFNoTextLayer)
	ocr := okStub("tesseract-ocr", 99, 0.99)
	svc := New(Deps{PDF: pdf, OCR: ocr})

	opts := models.DefaultParseOptions()
	opts.DisableOCR = true
	result, err := svc.Parse(context.Background(), pdfUpload(), opts)

	require.Error(t, err)
	assert.Equal(t, models.CodePDFNoTextLayer, result.Error.Code)
	assert.Equal(t, 0, ocr.calls)
}

func TestParse_FailedOCRAttemptMakesFailureNonActionable(t *testing.T) {
	pdf := failStub("pdf-extraction-failed", models.CodePDFNoTextLayer)
	ocr := failStub("ocr-failed", models.CodeOCRPDFNotImplemented)
	svc := New(Deps{PDF: pdf, OCR: ocr})

	result, err := svc.Parse(context.Background(), pdfUpload(), models.DefaultParseOptions())

	require.Error(t, err)
	assert.Equal(t, models.CodeNoTextExtracted, result.Error.Code)
	assert.False(t, result.Error.Actionable)
	assert.Empty(t, result.Error.SuggestedAction)
	assert.True(t, errors.Is(err, &models.ParseError{Code: models.CodePDFNoTextLayer}),
		"the backend diagnosis stays reachable through the error chain")
}

func TestParse_WordFamilyFailureCode(t *testing.T) {
	docx := okStub("docconv", 2, 0.1)
	svc := New(Deps{Docx: docx})

	opts := models.DefaultParseOptions()
	opts.DisableOCR = true
	result, err := svc.Parse(context.Background(), docxUpload(), opts)

	require.Error(t, err)
	assert.Equal(t, models.CodeDocxNoTextExtracted, result.Error.Code)
}

func TestParse_LegacyDocRejected(t *testing.T) {
	docx := okStub("docconv", 99, 0.99)
	svc := New(Deps{Docx: docx})

	result, err := svc.Parse(context.Background(), &models.Document{Name: "old.doc"}, models.DefaultParseOptions())

	require.Error(t, err)
	assert.Equal(t, models.CodeLegacyDocFormat, result.Error.Code)
	assert.Equal(t, sourceSniffFailed, result.Source)
	assert.Equal(t, 0, docx.calls)
}

func TestParse_UnsupportedFormat(t *testing.T) {
	svc := New(Deps{})

	result, err := svc.Parse(context.Background(),
		&models.Document{Name: "archive.xyz", Data: []byte("junk")}, models.DefaultParseOptions())

	require.Error(t, err)
	assert.Equal(t, models.CodeUnsupportedFormat, result.Error.Code)
	assert.True(t, result.Error.Actionable)
}

func TestParse_ImageRoutesDirectlyToOCR(t *testing.T) {
	pdf := okStub("pdf-engine", 99, 0.99)
	ocr := okStub("tesseract-ocr", 40, 0.9)
	svc := New(Deps{PDF: pdf, OCR: ocr})

	result, err := svc.Parse(context.Background(), imageUpload(), models.DefaultParseOptions())

	require.NoError(t, err)
	assert.Same(t, ocr.result, result)
	assert.Equal(t, 1, ocr.calls)
	assert.Equal(t, 0, pdf.calls)
}

func TestParse_ImageWithOCRDisabled(t *testing.T) {
	ocr := okStub("tesseract-ocr", 40, 0.9)
	svc := New(Deps{OCR: ocr})

	opts := models.DefaultParseOptions()
	opts.DisableOCR = true
	result, err := svc.Parse(context.Background(), imageUpload(), opts)

	require.Error(t, err)
	assert.Equal(t, models.CodeUnsupportedFormat, result.Error.Code)
	assert.Contains(t, result.Error.SuggestedAction, "OCR")
	assert.Equal(t, 0, ocr.calls)
}

func TestParse_ImageOCRFailureIsTerminal(t *testing.T) {
	ocr := failStub("ocr-failed", models.CodeMissingLibrary)
	svc := New(Deps{OCR: ocr})

	result, err := svc.Parse(context.Background(), imageUpload(), models.DefaultParseOptions())

	require.Error(t, err)
	assert.Equal(t, models.CodeMissingLibrary, result.Error.Code)
	assert.Equal(t, 1, ocr.calls, "the direct OCR attempt is not retried")
}

func TestParse_NilBackendIsMissingLibrary(t *testing.T) {
	svc := New(Deps{})

	result, err := svc.Parse(context.Background(), docxUpload(), models.DefaultParseOptions())

	require.Error(t, err)
	assert.Equal(t, models.CodeMissingLibrary, result.Error.Code)
	assert.Equal(t, sourceExtractionFailed, result.Source)
}

func TestParse_Timeout(t *testing.T) {
	pdf := &stubParser{block: true}
	svc := New(Deps{PDF: pdf})

	opts := models.DefaultParseOptions()
	opts.Timeout = 50 * time.Millisecond
	result, err := svc.Parse(context.Background(), pdfUpload(), opts)

	require.Error(t, err)
	assert.Equal(t, models.CodeParsingTimeout, result.Error.Code)
	assert.False(t, result.Error.Actionable)
	assert.Equal(t, sourceTimeout, result.Source)
	assert.Empty(t, result.Text)
}

func TestParse_TimeoutKeepsBestSoFar(t *testing.T) {
	pdf := okStub("pdf-engine", 5, 0.1)
	ocr := &stubParser{block: true}
	svc := New(Deps{PDF: pdf, OCR: ocr})

	opts := models.DefaultParseOptions()
	opts.Timeout = 80 * time.Millisecond
	result, err := svc.Parse(context.Background(), pdfUpload(), opts)

	require.Error(t, err)
	assert.Equal(t, models.CodeParsingTimeout, result.Error.Code)
	assert.Equal(t, textOfWords(5), result.Text, "timeout still surfaces the best text")
	assert.Equal(t, "pdf-engine", result.Source)
}

func TestParse_CallerCancellation(t *testing.T) {
	pdf := &stubParser{block: true}
	svc := New(Deps{PDF: pdf})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	result, err := svc.Parse(ctx, pdfUpload(), models.DefaultParseOptions())

	require.Error(t, err)
	assert.Equal(t, models.CodeParsingTimeout, result.Error.Code)
	assert.Contains(t, result.Error.Message, "canceled")
}

func TestParse_PanicRecovered(t *testing.T) {
	pdf := &stubParser{panics: true}
	svc := New(Deps{PDF: pdf})

	result, err := svc.Parse(context.Background(), pdfUpload(), models.DefaultParseOptions())

	require.Error(t, err)
	assert.Equal(t, models.CodeExtractionError, result.Error.Code)
	assert.Contains(t, result.Error.Message, "backend exploded")
	assert.Equal(t, sourceExtractionFailed, result.Source)
}

func TestParse_EmptySuccessIsNotRetained(t *testing.T) {
	txt := &stubParser{result: &models.ParseResult{Text: "", Score: 0, Source: "text-reader"}}
	svc := New(Deps{Txt: txt})

	opts := models.DefaultParseOptions()
	opts.DisableOCR = true
	doc := &models.Document{Name: "empty.txt", MediaType: "text/plain", Data: []byte{}}
	result, err := svc.Parse(context.Background(), doc, opts)

	require.Error(t, err)
	assert.Equal(t, models.CodeNoTextExtracted, result.Error.Code)
	assert.Empty(t, result.Text)
	assert.Equal(t, sourceExtractionFailed, result.Source)
}

func TestBestTracker_HigherScoreWins(t *testing.T) {
	tracker := &bestTracker{}

	tracker.offer(&models.ParseResult{Text: "low", Score: 0.2})
	tracker.offer(&models.ParseResult{Text: "high", Score: 0.6})
	tracker.offer(&models.ParseResult{Text: "middle", Score: 0.4})
	tracker.offer(&models.ParseResult{Text: "   ", Score: 0.99})

	require.NotNil(t, tracker.snapshot())
	assert.Equal(t, "high", tracker.snapshot().Text)
}

type closableStub struct {
	stubParser
	closed bool
}

func (p *closableStub) Close() error {
	p.closed = true
	return nil
}

func TestClose_ReleasesOCRBackend(t *testing.T) {
	ocr := &closableStub{stubParser: *okStub("tesseract-ocr", 5, 0.5)}
	svc := New(Deps{PDF: okStub("pdf-engine", 30, 0.9), OCR: ocr})

	require.NoError(t, svc.Close())
	assert.True(t, ocr.closed)
}

func TestClose_WithoutClosableBackends(t *testing.T) {
	svc := New(Deps{Txt: okStub("text-reader", 30, 0.9)})

	require.NoError(t, svc.Close())
}
