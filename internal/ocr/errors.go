package ocr

import (
	"errors"
	"fmt"
)

// Common OCR errors
var (
	// ErrEngineUnavailable is returned when no OCR engine is configured.
	// Set DOCPARSE_OCR_ENGINE to tesseract, vision or documentai.
	ErrEngineUnavailable = errors.New("no OCR engine is configured")

	// ErrImageTooLarge is returned when the image exceeds the maximum size
	// for synchronous processing (20MB for the Google-backed engines).
	ErrImageTooLarge = errors.New("image exceeds the maximum size limit (20MB)")

	// ErrUnsupportedImage is returned when the data is not a recognized image format.
	ErrUnsupportedImage = errors.New("data is not a supported image format")

	// ErrNoTextRecognized is returned when recognition succeeds but finds no text.
	ErrNoTextRecognized = errors.New("no text recognized in image")

	// ErrRecognitionFailed is returned when the OCR engine fails to process the image.
	ErrRecognitionFailed = errors.New("OCR recognition failed")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS environment variables are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrInvalidConfiguration is returned when a cloud engine is selected but its
	// required project or processor settings are absent.
	ErrInvalidConfiguration = errors.New("incomplete OCR engine configuration")

	// ErrProcessorNotFound is returned when the configured Document AI processor does not exist.
	ErrProcessorNotFound = errors.New("Document AI processor not found")

	// ErrQuotaExceeded is returned when the cloud OCR API quota is exhausted.
	ErrQuotaExceeded = errors.New("OCR API quota exceeded")

	// ErrContextCanceled is returned when the context is canceled during recognition.
	ErrContextCanceled = errors.New("OCR recognition was canceled")
)

// OCRError wraps errors with additional context about the recognition failure.
type OCRError struct {
	// Op is the operation that failed (e.g., "Recognize", "NewVisionEngine").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *OCRError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("ocr: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *OCRError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *OCRError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewOCRError creates a new OCRError with the specified operation and underlying error.
func NewOCRError(op string, err error, details string) *OCRError {
	return &OCRError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapOCRError wraps an error as an OCRError if it isn't already one.
func WrapOCRError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return err // Already wrapped
	}

	return NewOCRError(op, err, details)
}
