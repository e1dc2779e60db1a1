package extract

import (
	"bytes"
	"path/filepath"
	"strings"

	"docparse/internal/ocr"
)

// Format is the backend family a document routes to.
type Format string

const (
	FormatWord  Format = "word"
	FormatPDF   Format = "pdf"
	FormatText  Format = "text"
	FormatImage Format = "image"

	// FormatLegacy and FormatUnknown are terminal; no backend handles them.
	FormatLegacy  Format = "legacy-doc"
	FormatUnknown Format = "unknown"
)

const (
	mediaTypeWord   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mediaTypeLegacy = "application/msword"
	mediaTypePDF    = "application/pdf"
	mediaTypeText   = "text/plain"
)

var (
	zipMagic = []byte{0x50, 0x4B, 0x03, 0x04}
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	pdfMagic = []byte("%PDF")
)

var imageExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true,
	"bmp": true, "webp": true, "tif": true, "tiff": true,
}

// Sniff decides the format family from the filename, the declared media type
// and the leading bytes. The magic-byte probe only runs when the declared
// media type is missing or generic; an explicit media type is never
// overridden. Extension beats media type for the Word and PDF families
// because browsers routinely upload those as octet-stream.
func Sniff(name, mediaType string, data []byte) Format {
	media := normalizeMediaType(mediaType)
	ext := extensionOf(name)

	if isGenericMediaType(media) {
		if probed := probeMagicBytes(data); probed != "" {
			media = probed
		}
	}

	// Word family. Legacy formats fail fast before the modern check.
	if media == mediaTypeLegacy || ext == "doc" {
		return FormatLegacy
	}
	if media == mediaTypeWord || ext == "docx" {
		return FormatWord
	}

	if media == mediaTypePDF || ext == "pdf" {
		return FormatPDF
	}

	if media == mediaTypeText || ext == "txt" {
		return FormatText
	}

	if strings.HasPrefix(media, "image/") || (isGenericMediaType(media) && imageExtensions[ext]) {
		return FormatImage
	}

	return FormatUnknown
}

// normalizeMediaType lowercases the type and strips parameters such as
// "; charset=utf-8".
func normalizeMediaType(mediaType string) string {
	media, _, _ := strings.Cut(mediaType, ";")
	return strings.ToLower(strings.TrimSpace(media))
}

func extensionOf(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

func isGenericMediaType(media string) bool {
	switch media {
	case "", "application/octet-stream", "binary/octet-stream":
		return true
	}
	return false
}

// probeMagicBytes maps leading bytes onto a media type. A bare ZIP signature
// is read as a Word document; the DOCX backend sorts out ZIP files that are
// not actually Word documents. OLE compound files are the legacy Office
// container.
func probeMagicBytes(data []byte) string {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return mediaTypePDF
	case bytes.HasPrefix(data, zipMagic):
		return mediaTypeWord
	case bytes.HasPrefix(data, oleMagic):
		return mediaTypeLegacy
	}
	return ocr.DetectImageType(data)
}
