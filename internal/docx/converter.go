// Package docx extracts text from OOXML Word documents.
//
// Extraction runs two strategies. The primary delegates to docconv, which
// understands the full document structure (tables, headers, footers). When
// docconv returns empty text without erroring, a deliberately simpler ZIP
// fallback reads word/document.xml directly; it loses layout but tolerates
// archives written by non-Word tools that stricter readers reject.
package docx

import (
	"bytes"
	"context"

	"code.sajari.com/docconv"
)

// wordMediaType is the OOXML Word MIME type docconv dispatches on.
const wordMediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Converter is the rich-document-extraction capability behind the primary
// strategy. Implementations return raw text plus non-fatal warnings.
type Converter interface {
	Convert(ctx context.Context, data []byte) (text string, warnings []string, err error)
}

// DocconvConverter implements Converter with code.sajari.com/docconv.
type DocconvConverter struct{}

// NewDocconvConverter creates the docconv-backed converter.
func NewDocconvConverter() *DocconvConverter {
	return &DocconvConverter{}
}

// Convert extracts text from DOCX bytes.
func (c *DocconvConverter) Convert(ctx context.Context, data []byte) (string, []string, error) {
	if err := ctx.Err(); err != nil {
		return "", nil, err
	}

	res, err := docconv.Convert(bytes.NewReader(data), wordMediaType, false)
	if err != nil {
		return "", nil, err
	}
	return res.Body, nil, nil
}
