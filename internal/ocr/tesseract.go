package ocr

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// TesseractEngine implements Engine using a local libtesseract installation.
// It needs no network and no credentials, which makes it the default.
type TesseractEngine struct{}

// NewTesseractEngine creates the local Tesseract engine.
func NewTesseractEngine() *TesseractEngine {
	return &TesseractEngine{}
}

// Name identifies the engine in result source tags.
func (t *TesseractEngine) Name() string {
	return "tesseract-ocr"
}

// Recognize runs Tesseract over the image. A fresh client is created per
// call and released on every exit path.
func (t *TesseractEngine) Recognize(ctx context.Context, image []byte, mediaType, language string) (*Recognition, error) {
	const op = "TesseractEngine.Recognize"
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, WrapOCRError(op, ErrContextCanceled, err.Error())
	}

	client := gosseract.NewClient()
	defer client.Close()

	if language != "" {
		// Tesseract takes multiple languages joined with "+".
		if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
			return nil, WrapOCRError(op, err, fmt.Sprintf("unsupported language %q", language))
		}
	}

	if err := client.SetImageFromBytes(image); err != nil {
		return nil, WrapOCRError(op, ErrUnsupportedImage, err.Error())
	}

	text, err := client.Text()
	if err != nil {
		return nil, WrapOCRError(op, ErrRecognitionFailed, err.Error())
	}
	if strings.TrimSpace(text) == "" {
		return nil, WrapOCRError(op, ErrNoTextRecognized, "")
	}

	return &Recognition{
		Text:       text,
		Confidence: tesseractConfidence(text),
		Duration:   time.Since(start),
	}, nil
}

// Close is a no-op; clients are per call.
func (t *TesseractEngine) Close() error {
	return nil
}

// tesseractConfidence estimates confidence from text quality indicators,
// since Tesseract's plain text API reports none.
func tesseractConfidence(text string) float64 {
	confidence := 0.5 // Base confidence

	if len(text) > 1000 {
		confidence += 0.1
	}
	if len(text) > 5000 {
		confidence += 0.1
	}

	words := strings.Fields(text)
	if len(words) > 100 {
		confidence += 0.1
	}

	alphaCount := 0
	for _, r := range text {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			alphaCount++
		}
	}
	if len(text) > 0 {
		alphaRatio := float64(alphaCount) / float64(len(text))
		if alphaRatio > 0.5 && alphaRatio < 0.9 {
			confidence += 0.1
		}
	}

	// Cap at reasonable maximum for Tesseract
	if confidence > 0.85 {
		confidence = 0.85
	}

	return confidence
}
