// Package quality rates extracted text with a fixed penalty heuristic.
//
// The score is not a classifier. It measures how much of the text looks
// like decoding damage (replacement characters, control bytes, leaked PDF
// stream tokens) and how much looks like prose (letters, whitespace,
// reasonable token lengths). Thresholds and weights are part of the
// contract: downstream acceptance decisions depend on them.
package quality

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Penalty weights. Ratio penalties scale with incidence, fixed penalties
// apply once when the condition holds.
const (
	replacementWeight   = 0.6
	controlWeight       = 0.2
	pdfArtifactPenalty  = 0.25
	longTokenPenalty    = 0.2
	fewLettersPenalty   = 0.2
	noWhitespacePenalty = 0.1

	longTokenMeanLength = 40
	minLetterRatio      = 0.2
	minWhitespaceRatio  = 0.05
)

// pdfArtifacts are internal PDF tokens. Their presence in extracted text
// means the extractor dumped raw object streams instead of page content.
var pdfArtifacts = []string{"/Obj", "/stream", "/FlateDecode", "/endobj"}

// Score rates text usability in [0,1]. Empty text scores 0.
func Score(text string) float64 {
	if text == "" {
		return 0
	}

	var total, replacement, control, letters, whitespace int
	for _, r := range text {
		total++
		if r == '�' {
			replacement++
		} else if r < 0x20 && r != '\t' && r != '\n' && r != '\r' {
			control++
		}
		if unicode.IsLetter(r) {
			letters++
		}
		if unicode.IsSpace(r) {
			whitespace++
		}
	}

	size := float64(total)
	penalty := float64(replacement)/size*replacementWeight +
		float64(control)/size*controlWeight

	if hasPDFArtifacts(text) {
		penalty += pdfArtifactPenalty
	}
	if meanTokenLength(text) > longTokenMeanLength {
		penalty += longTokenPenalty
	}
	if float64(letters)/size < minLetterRatio {
		penalty += fewLettersPenalty
	}
	if float64(whitespace)/size < minWhitespaceRatio {
		penalty += noWhitespacePenalty
	}

	score := 1 - penalty
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// CountWords counts whitespace-separated tokens. Empty text counts 0.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// Label maps a score to a human-readable rating.
func Label(score float64) string {
	switch {
	case score >= 0.9:
		return "excellent"
	case score >= 0.75:
		return "good"
	case score >= 0.5:
		return "fair"
	case score >= 0.25:
		return "poor"
	default:
		return "very poor"
	}
}

func hasPDFArtifacts(text string) bool {
	for _, token := range pdfArtifacts {
		if strings.Contains(text, token) {
			return true
		}
	}
	return false
}

func meanTokenLength(text string) float64 {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return 0
	}
	runes := 0
	for _, f := range fields {
		runes += utf8.RuneCountInString(f)
	}
	return float64(runes) / float64(len(fields))
}
