package pdf

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreflight_ValidTextPDF(t *testing.T) {
	pf, err := preflight(buildTextPDF("Hello World from the preflight test"))

	require.NoError(t, err)
	assert.Equal(t, 1, pf.PageCount)
	assert.False(t, pf.HasImageStreams)
}

func TestPreflight_ImagePDFDetectsImageStreams(t *testing.T) {
	pf, err := preflight(buildImagePDF())
	if err != nil {
		t.Skipf("minimal image-only PDF rejected by validation: %v", err)
	}

	assert.Equal(t, 1, pf.PageCount)
	assert.True(t, pf.HasImageStreams)
}

func TestPreflight_GarbageFails(t *testing.T) {
	_, err := preflight([]byte("definitely not a pdf"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrEncrypted)
}

func TestLedongthucEngine_OpensRealPDF(t *testing.T) {
	engine := NewEngine()

	doc, err := engine.Open(buildTextPDF("Hello World from the engine test"))
	require.NoError(t, err)
	assert.Equal(t, 1, doc.NumPages())

	items, err := doc.PageTextItems(1)
	if err != nil {
		t.Logf("note: minimal PDF text not extractable: %v", err)
		return
	}
	if joined := strings.Join(items, " "); !strings.Contains(joined, "Hello") {
		t.Logf("note: minimal PDF text came back as %q", joined)
	}
}

func TestLedongthucEngine_RejectsGarbage(t *testing.T) {
	engine := NewEngine()

	_, err := engine.Open([]byte("garbage bytes, no xref table"))
	assert.Error(t, err)
}

// buildTextPDF creates a valid single-page PDF with correct xref offsets
// carrying text in a Helvetica show-text operation.
func buildTextPDF(text string) []byte {
	escaped := strings.ReplaceAll(text, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "(", `\(`)
	escaped = strings.ReplaceAll(escaped, ")", `\)`)

	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, 6)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")

	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Length ")
	b.WriteString(strconv.Itoa(len(stream)))
	b.WriteString(" >>\nstream\n")
	b.WriteString(stream)
	b.WriteString("\nendstream\nendobj\n")

	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	writeXref(&b, offsets)
	return []byte(b.String())
}

// buildImagePDF creates a valid single-page PDF whose only content is a
// tiny image XObject, the shape of a scanned document.
func buildImagePDF() []byte {
	imgData := "\xff\xd8\xff\xe0"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, 6)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /XObject << /Im1 4 0 R >> >> /Contents 5 0 R >>\nendobj\n")

	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Length ")
	b.WriteString(strconv.Itoa(len(imgData)))
	b.WriteString(" >>\nstream\n")
	b.WriteString(imgData)
	b.WriteString("\nendstream\nendobj\n")

	drawStream := "q 100 0 0 100 72 692 cm /Im1 Do Q"
	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Length ")
	b.WriteString(strconv.Itoa(len(drawStream)))
	b.WriteString(" >>\nstream\n")
	b.WriteString(drawStream)
	b.WriteString("\nendstream\nendobj\n")

	writeXref(&b, offsets)
	return []byte(b.String())
}

func writeXref(b *strings.Builder, offsets []int) {
	xrefOffset := b.Len()
	b.WriteString("xref\n0 6\n")
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(b, "%010d 00000 n \n", offsets[i])
	}
	b.WriteString("trailer\n<< /Size 6 /Root 1 0 R >>\nstartxref\n")
	b.WriteString(strconv.Itoa(xrefOffset))
	b.WriteString("\n%%EOF\n")
}
