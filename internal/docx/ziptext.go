package docx

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrMissingDocumentPart is returned when a valid ZIP archive carries no
// word/document.xml. Such a file is a ZIP but not a Word document.
var ErrMissingDocumentPart = errors.New("word/document.xml not found in archive")

const documentPart = "word/document.xml"

var (
	// textRunPattern matches <w:t> runs, the only elements holding visible text.
	textRunPattern = regexp.MustCompile(`(?s)<w:t[^>]*>(.*?)</w:t>`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// extractFromZip reads the main document part straight out of the ZIP
// archive and strips it down to visible text. Tables, headers and footers
// are lost; that is the accepted cost of tolerating archives the primary
// reader rejects.
func extractFromZip(data []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}

	var part *zip.File
	for _, f := range reader.File {
		if f.Name == documentPart {
			part = f
			break
		}
	}
	if part == nil {
		return "", ErrMissingDocumentPart
	}

	rc, err := part.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", documentPart, err)
	}
	defer rc.Close()

	content, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", documentPart, err)
	}

	matches := textRunPattern.FindAllSubmatch(content, -1)
	runs := make([]string, 0, len(matches))
	for _, m := range matches {
		runs = append(runs, decodeEntities(string(m[1])))
	}

	text := strings.Join(runs, " ")
	text = whitespaceRuns.ReplaceAllString(text, " ")
	return strings.TrimSpace(text), nil
}

// decodeEntities decodes the five standard XML entities. The ampersand is
// decoded last so "&amp;lt;" yields a literal "&lt;".
func decodeEntities(s string) string {
	s = strings.ReplaceAll(s, "&lt;", "<")
	s = strings.ReplaceAll(s, "&gt;", ">")
	s = strings.ReplaceAll(s, "&quot;", "\"")
	s = strings.ReplaceAll(s, "&apos;", "'")
	s = strings.ReplaceAll(s, "&amp;", "&")
	return s
}
