package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docparse/pkg/models"
)

type fakeEngine struct {
	name string
	rec  *Recognition
	err  error
}

func (f *fakeEngine) Name() string {
	if f.name == "" {
		return "fake-ocr"
	}
	return f.name
}

func (f *fakeEngine) Recognize(ctx context.Context, image []byte, mediaType, language string) (*Recognition, error) {
	return f.rec, f.err
}

func (f *fakeEngine) Close() error { return nil }

func pngImage() []byte {
	header := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	return append(header, make([]byte, 32)...)
}

func TestExtract_RejectsPDF(t *testing.T) {
	e := NewExtractor(&fakeEngine{})
	doc := &models.Document{Name: "scan.pdf", MediaType: "application/pdf", Data: []byte("%PDF-1.4 rest")}

	result, err := e.Extract(context.Background(), doc, models.DefaultParseOptions())
	require.Error(t, err)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.CodeOCRPDFNotImplemented, result.Error.Code)
	assert.False(t, result.Error.Actionable)
	assert.Equal(t, "ocr-failed", result.Source)
}

func TestExtract_RejectsNonImage(t *testing.T) {
	e := NewExtractor(&fakeEngine{})
	doc := &models.Document{Name: "notes.txt", MediaType: "text/plain", Data: []byte("just words")}

	result, err := e.Extract(context.Background(), doc, models.DefaultParseOptions())
	require.Error(t, err)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.CodeOCRUnsupportedType, result.Error.Code)
}

func TestExtract_MissingEngine(t *testing.T) {
	e := NewExtractor(nil)
	doc := &models.Document{Name: "receipt.png", MediaType: "image/png", Data: pngImage()}

	result, err := e.Extract(context.Background(), doc, models.DefaultParseOptions())
	require.Error(t, err)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.CodeMissingLibrary, result.Error.Code)
	assert.False(t, result.Error.Actionable)
}

func TestExtract_Success(t *testing.T) {
	engine := &fakeEngine{rec: &Recognition{
		Text:       "Total amount due thirty four euros and fifty cents thank you",
		Confidence: 0.81,
	}}
	e := NewExtractor(engine)
	doc := &models.Document{Name: "receipt.png", MediaType: "image/png", Data: pngImage()}

	result, err := e.Extract(context.Background(), doc, models.DefaultParseOptions())
	require.NoError(t, err)
	require.Nil(t, result.Error)

	assert.Equal(t, "fake-ocr", result.Source)
	assert.Greater(t, result.Score, 0.5)
	assert.Equal(t, 11, result.Meta[models.MetaWordCount])
	assert.Equal(t, 0.81, result.Meta[models.MetaOCRConfidence])
	assert.Equal(t, "fake-ocr", result.Meta[models.MetaEngine])
}

func TestExtract_SniffedImageWithGenericMediaType(t *testing.T) {
	// Upload sources often declare octet-stream; magic bytes decide.
	engine := &fakeEngine{rec: &Recognition{Text: "words on a scan", Confidence: 0.7}}
	e := NewExtractor(engine)
	doc := &models.Document{Name: "scan", MediaType: "application/octet-stream", Data: pngImage()}

	result, err := e.Extract(context.Background(), doc, models.DefaultParseOptions())
	require.NoError(t, err)
	assert.Equal(t, "fake-ocr", result.Source)
}

func TestExtract_CredentialErrorBecomesMissingLibrary(t *testing.T) {
	engine := &fakeEngine{err: NewOCRError("Recognize", ErrMissingCredentials, "")}
	e := NewExtractor(engine)
	doc := &models.Document{Name: "receipt.jpg", MediaType: "image/jpeg", Data: pngImage()}

	result, err := e.Extract(context.Background(), doc, models.DefaultParseOptions())
	require.Error(t, err)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.CodeMissingLibrary, result.Error.Code)
}

func TestExtract_EngineFailure(t *testing.T) {
	engine := &fakeEngine{err: NewOCRError("Recognize", ErrRecognitionFailed, "blurred input")}
	e := NewExtractor(engine)
	doc := &models.Document{Name: "receipt.jpg", MediaType: "image/jpeg", Data: pngImage()}

	result, err := e.Extract(context.Background(), doc, models.DefaultParseOptions())
	require.Error(t, err)
	require.NotNil(t, result.Error)
	assert.Equal(t, models.CodeOCRParseError, result.Error.Code)
	assert.True(t, errors.Is(err, ErrRecognitionFailed))
}

func TestDetectImageType(t *testing.T) {
	cases := []struct {
		name string
		data []byte
		want string
	}{
		{"png", pngImage(), "image/png"},
		{"jpeg", []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}, "image/jpeg"},
		{"gif", []byte("GIF89a trailer"), "image/gif"},
		{"tiff little endian", []byte{0x49, 0x49, 0x2A, 0x00, 0x08}, "image/tiff"},
		{"tiff big endian", []byte{0x4D, 0x4D, 0x00, 0x2A, 0x08}, "image/tiff"},
		{"bmp", []byte("BM/////"), "image/bmp"},
		{"webp", append([]byte("RIFF\x00\x00\x00\x00WEBP"), make([]byte, 8)...), "image/webp"},
		{"pdf is not an image", []byte("%PDF-1.7"), ""},
		{"plain text", []byte("hello there"), ""},
		{"too short", []byte{0xFF, 0xD8}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DetectImageType(tc.data))
		})
	}
}

func TestTesseractConfidence(t *testing.T) {
	// Short garbage stays at base confidence, long prose climbs toward the cap.
	low := tesseractConfidence("x")
	assert.InDelta(t, 0.5, low, 0.11)

	long := make([]byte, 0, 6000)
	for i := 0; i < 600; i++ {
		long = append(long, []byte("scanned word here ")...)
	}
	high := tesseractConfidence(string(long))
	assert.Greater(t, high, low)
	assert.LessOrEqual(t, high, 0.85)
}
