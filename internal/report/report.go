// Package report renders extraction results for the CLI: a pretty console
// block for humans and an indented JSON document for pipelines. Writing the
// bytes anywhere is the caller's business.
package report

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"docparse/internal/quality"
	"docparse/pkg/models"
)

// Report wraps one extraction result with the request context the CLI knows
// about. This is the JSON wire shape of the parse and batch commands.
type Report struct {
	File         string              `json:"file"`
	MediaType    string              `json:"mediaType,omitempty"`
	SizeBytes    int64               `json:"sizeBytes"`
	RunID        string              `json:"runId,omitempty"`
	DurationMS   int64               `json:"durationMs"`
	Accepted     bool                `json:"accepted"`
	QualityLabel string              `json:"qualityLabel"`
	Result       *models.ParseResult `json:"result"`
	GeneratedAt  time.Time           `json:"generatedAt"`
}

// New builds a report for one parsed document.
func New(doc *models.Document, result *models.ParseResult, runID string, duration time.Duration) *Report {
	return &Report{
		File:         doc.Name,
		MediaType:    doc.MediaType,
		SizeBytes:    doc.Size(),
		RunID:        runID,
		DurationMS:   duration.Milliseconds(),
		Accepted:     !result.Failed(),
		QualityLabel: quality.Label(result.Score),
		Result:       result,
		GeneratedAt:  time.Now().UTC(),
	}
}

// JSON renders the report with indentation for terminals and report files.
func (r *Report) JSON() ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return data, nil
}

// Pretty renders the human-readable header block. The extracted text itself
// is not included; callers print it separately when they want it.
func (r *Report) Pretty() string {
	var b strings.Builder

	fmt.Fprintf(&b, "File:     %s", r.File)
	if r.MediaType != "" {
		fmt.Fprintf(&b, " (%s)", r.MediaType)
	}
	fmt.Fprintf(&b, "\nSize:     %s\n", formatBytes(r.SizeBytes))

	if r.Accepted {
		b.WriteString("Status:   accepted\n")
	} else {
		b.WriteString("Status:   failed\n")
	}

	if r.Result.Source != "" {
		fmt.Fprintf(&b, "Source:   %s\n", r.Result.Source)
	}
	fmt.Fprintf(&b, "Quality:  %.2f (%s)\n", r.Result.Score, r.QualityLabel)
	fmt.Fprintf(&b, "Words:    %d\n", r.Result.WordCount())

	if total, ok := r.Result.Meta[models.MetaTotalPages].(int); ok {
		extracted, _ := r.Result.Meta[models.MetaExtractedPages].(int)
		fmt.Fprintf(&b, "Pages:    %d of %d extracted\n", extracted, total)
	}
	if conf, ok := r.Result.Meta[models.MetaOCRConfidence].(float64); ok {
		fmt.Fprintf(&b, "OCR:      confidence %.2f\n", conf)
	}

	if err := r.Result.Error; err != nil {
		fmt.Fprintf(&b, "Error:    %s: %s\n", err.Code, err.Message)
		if err.Actionable && err.SuggestedAction != "" {
			fmt.Fprintf(&b, "Action:   %s\n", err.SuggestedAction)
		}
	}

	fmt.Fprintf(&b, "Duration: %dms\n", r.DurationMS)
	return b.String()
}

// StatusLine is the one-line form used per file in batch output.
func (r *Report) StatusLine() string {
	switch {
	case r.Accepted:
		return fmt.Sprintf("ok       %-40s %s score=%.2f words=%d",
			r.File, r.Result.Source, r.Result.Score, r.Result.WordCount())
	case r.Result.Text != "":
		return fmt.Sprintf("degraded %-40s %s %s", r.File, r.Result.Error.Code, r.Result.Source)
	default:
		return fmt.Sprintf("failed   %-40s %s", r.File, r.Result.Error.Code)
	}
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	}
	return fmt.Sprintf("%d B", n)
}
