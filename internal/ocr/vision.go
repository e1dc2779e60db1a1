package ocr

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// MaxImageSizeBytes is the maximum image size for synchronous processing (20MB)
const MaxImageSizeBytes = 20 * 1024 * 1024

// VisionEngine implements Engine using Google Cloud Vision document text detection.
type VisionEngine struct {
	client *vision.ImageAnnotatorClient
}

// NewVisionEngine creates the engine with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS JSON in env.
func NewVisionEngine(ctx context.Context) (*VisionEngine, error) {
	const op = "NewVisionEngine"

	var client *vision.ImageAnnotatorClient
	var err error

	// Check for inline credentials first
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsJSON([]byte(credJSON)))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_CREDENTIALS")
		}
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		// Use credentials file
		client, err = vision.NewImageAnnotatorClient(ctx, option.WithCredentialsFile(credFile))
		if err != nil {
			return nil, WrapOCRError(op, err, "failed to create client with GOOGLE_APPLICATION_CREDENTIALS")
		}
	} else {
		// Try default credentials as fallback
		client, err = vision.NewImageAnnotatorClient(ctx)
		if err != nil {
			return nil, WrapOCRError(op, ErrMissingCredentials, "no credentials found in environment")
		}
	}

	return &VisionEngine{client: client}, nil
}

// NewVisionEngineWithClient creates the engine with an explicit client (for testing).
func NewVisionEngineWithClient(client *vision.ImageAnnotatorClient) *VisionEngine {
	return &VisionEngine{client: client}
}

// Name identifies the engine in result source tags.
func (v *VisionEngine) Name() string {
	return "vision-ocr"
}

// Recognize sends the image through document text detection.
func (v *VisionEngine) Recognize(ctx context.Context, image []byte, mediaType, language string) (*Recognition, error) {
	const op = "VisionEngine.Recognize"
	start := time.Now()

	if len(image) > MaxImageSizeBytes {
		return nil, WrapOCRError(op, ErrImageTooLarge, fmt.Sprintf("image size: %d bytes", len(image)))
	}

	var imageCtx *visionpb.ImageContext
	if hint := visionLanguageHint(language); hint != "" {
		imageCtx = &visionpb.ImageContext{LanguageHints: []string{hint}}
	}

	annotation, err := v.client.DetectDocumentText(ctx, &visionpb.Image{Content: image}, imageCtx)
	if err != nil {
		return nil, WrapOCRError(op, ErrRecognitionFailed, fmt.Sprintf("Vision API call failed: %v", err))
	}
	if annotation == nil || strings.TrimSpace(annotation.Text) == "" {
		return nil, WrapOCRError(op, ErrNoTextRecognized, "")
	}

	// Average page-level confidence and collect detected languages.
	var confidenceSum float32
	var confidenceCount int
	languageSet := make(map[string]bool)
	for _, page := range annotation.Pages {
		if page.Confidence > 0 {
			confidenceSum += page.Confidence
			confidenceCount++
		}
		for _, lang := range page.GetProperty().GetDetectedLanguages() {
			if lang.LanguageCode != "" {
				languageSet[lang.LanguageCode] = true
			}
		}
	}

	var confidence float64
	if confidenceCount > 0 {
		confidence = float64(confidenceSum) / float64(confidenceCount)
	}

	var languages []string
	for lang := range languageSet {
		languages = append(languages, lang)
	}

	return &Recognition{
		Text:       annotation.Text,
		Confidence: confidence,
		Languages:  languages,
		Duration:   time.Since(start),
	}, nil
}

// Close closes the underlying Vision client.
func (v *VisionEngine) Close() error {
	if v.client != nil {
		return v.client.Close()
	}
	return nil
}

// visionLanguageHint maps Tesseract-style language codes to the BCP-47
// hints Vision expects. Unknown codes pass through unchanged.
func visionLanguageHint(language string) string {
	// Only the first language of a "deu+eng" chain is used as a hint.
	code := strings.SplitN(language, "+", 2)[0]
	switch code {
	case "":
		return ""
	case "eng":
		return "en"
	case "deu":
		return "de"
	case "fra":
		return "fr"
	case "spa":
		return "es"
	case "ita":
		return "it"
	case "por":
		return "pt"
	case "nld":
		return "nl"
	case "rus":
		return "ru"
	default:
		return code
	}
}
