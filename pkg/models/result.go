package models

// Meta keys used by the backends. Kept as constants so the diagnostic contract
// with the frontend stays typo-free.
const (
	MetaWordCount      = "wordCount"
	MetaWarnings       = "warnings"
	MetaOCRConfidence  = "ocrConfidence"
	MetaEngine         = "engine"
	MetaTotalPages     = "totalPages"
	MetaExtractedPages = "extractedPages"
	MetaImageStreams   = "hasImageStreams"
	MetaFallbackMethod = "fallbackMethod"
)

// Page is the per-page breakdown entry of a PDF extraction.
type Page struct {
	N    int    `json:"n"`    // 1-based page number
	Text string `json:"text"` // text items of the page joined by single spaces
}

// ParseResult is the single structure crossing the pipeline boundary. It is
// JSON-serializable and carries no binary payloads.
type ParseResult struct {
	// Text is the extracted content; empty string on total failure.
	Text string `json:"text"`

	// Score is the heuristic quality estimate in [0,1]; 0 means unusable.
	Score float64 `json:"score"`

	// Source tags the backend/path that produced the result, e.g. "docconv",
	// "direct-zip-extraction", "pdf-engine", "text-reader", "tesseract-ocr",
	// or a failure tag such as "docx-extraction-failed".
	Source string `json:"source"`

	// Meta holds backend-specific diagnostics (see the Meta* keys).
	Meta map[string]any `json:"meta,omitempty"`

	// Pages is the per-page breakdown; PDF extractions only.
	Pages []Page `json:"pages,omitempty"`

	// Error is the structured failure, present when the pipeline could not
	// produce an acceptable result.
	Error *ParseError `json:"error,omitempty"`
}

// Failed reports whether the result carries a structured error.
func (r *ParseResult) Failed() bool {
	return r.Error != nil
}

// WordCount returns the backend-reported word count from Meta, or 0.
func (r *ParseResult) WordCount() int {
	if r.Meta == nil {
		return 0
	}
	if n, ok := r.Meta[MetaWordCount].(int); ok {
		return n
	}
	return 0
}
