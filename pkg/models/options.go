package models

import "time"

// ParseOptions configures a single extraction run. The zero value of every
// field means "use the default"; DisableOCR is inverted so that the zero value
// keeps the OCR fallback enabled, which is the default policy.
type ParseOptions struct {
	// Timeout is the wall-clock budget for the whole pipeline. Default: 30s.
	Timeout time.Duration

	// MaxPages caps how many PDF pages are walked. Default: 50.
	MaxPages int

	// DisableOCR turns the OCR fallback off. OCR is enabled by default.
	DisableOCR bool

	// OCRLanguage is the recognition language passed to the OCR engine.
	// Default: "eng".
	OCRLanguage string

	// MinQualityScore is the quality threshold for early acceptance.
	// Default: 0.35.
	MinQualityScore float64

	// MinWordCount is the word-count threshold that overrides a low quality
	// score. Default: 30.
	MinWordCount int
}

// DefaultParseOptions returns the standard pipeline configuration.
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		Timeout:         30 * time.Second,
		MaxPages:        50,
		OCRLanguage:     "eng",
		MinQualityScore: 0.35,
		MinWordCount:    30,
	}
}

// Normalized returns a copy with zero-valued fields replaced by defaults.
func (o ParseOptions) Normalized() ParseOptions {
	d := DefaultParseOptions()
	if o.Timeout <= 0 {
		o.Timeout = d.Timeout
	}
	if o.MaxPages <= 0 {
		o.MaxPages = d.MaxPages
	}
	if o.OCRLanguage == "" {
		o.OCRLanguage = d.OCRLanguage
	}
	if o.MinQualityScore <= 0 {
		o.MinQualityScore = d.MinQualityScore
	}
	if o.MinWordCount <= 0 {
		o.MinWordCount = d.MinWordCount
	}
	return o
}

// OCREnabled reports whether the OCR fallback may run.
func (o ParseOptions) OCREnabled() bool {
	return !o.DisableOCR
}
