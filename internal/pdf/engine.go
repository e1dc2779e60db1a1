// Package pdf extracts the text layer of PDF documents.
//
// Structural checks (validation, encryption, page count, embedded image
// streams) run through pdfcpu before any page is touched. Page text comes
// from the ledongthuc/pdf reader, which is known to panic on malformed
// files; every call into it is wrapped in a recover so a broken page
// degrades to an error instead of taking the process down.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	ledongthuc "github.com/ledongthuc/pdf"
)

// Engine opens PDF documents for text extraction.
type Engine interface {
	Open(data []byte) (Document, error)
}

// Document is an open PDF exposing a page count and per-page text items.
type Document interface {
	NumPages() int

	// PageTextItems returns the extractable text items of page n (1-based)
	// in reading order, one item per text row.
	PageTextItems(n int) ([]string, error)
}

// LedongthucEngine implements Engine with github.com/ledongthuc/pdf.
type LedongthucEngine struct{}

// NewEngine creates the default PDF engine.
func NewEngine() *LedongthucEngine {
	return &LedongthucEngine{}
}

// Open parses the cross-reference table and returns a page reader.
func (e *LedongthucEngine) Open(data []byte) (doc Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc = nil
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	reader, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &ledongthucDocument{reader: reader}, nil
}

type ledongthucDocument struct {
	reader *ledongthuc.Reader
}

func (d *ledongthucDocument) NumPages() (n int) {
	defer func() { _ = recover() }()
	n = d.reader.NumPage()
	return n
}

func (d *ledongthucDocument) PageTextItems(n int) (items []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			items = nil
			err = fmt.Errorf("page %d panic: %v", n, r)
		}
	}()

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d is null", n)
	}

	// Rows keep the glyphs of one visual line together, so the caller can
	// join items with plain spaces without shredding words.
	rows, err := page.GetTextByRow()
	if err == nil && len(rows) > 0 {
		items = make([]string, 0, len(rows))
		for _, row := range rows {
			var b strings.Builder
			for _, word := range row.Content {
				b.WriteString(word.S)
			}
			if s := b.String(); s != "" {
				items = append(items, s)
			}
		}
		return items, nil
	}

	// Raw content fallback. Glyph-level items are concatenated into a
	// single item because they already carry their own spacing.
	content := page.Content()
	var b strings.Builder
	for _, item := range content.Text {
		b.WriteString(item.S)
	}
	if b.Len() == 0 {
		return nil, nil
	}
	return []string{b.String()}, nil
}
