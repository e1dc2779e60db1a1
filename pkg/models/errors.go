package models

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a structured extraction failure. Codes are part of the
// wire contract consumed by the editor frontend and must stay stable.
type ErrorCode string

const (
	// Format rejection (terminal, no retry).
	CodeUnsupportedFormat    ErrorCode = "UNSUPPORTED_FORMAT"
	CodeLegacyDocFormat      ErrorCode = "LEGACY_DOC_FORMAT"
	CodeInvalidDocxSignature ErrorCode = "INVALID_DOCX_SIGNATURE"

	// Protection / security (terminal).
	CodePDFEncrypted          ErrorCode = "PDF_ENCRYPTED"
	CodeDocxPasswordProtected ErrorCode = "DOCX_PASSWORD_PROTECTED"

	// Structural corruption (terminal).
	CodeDocxNotValidZIP ErrorCode = "DOCX_NOT_VALID_ZIP"

	// Missing capability (terminal, non-actionable).
	CodeMissingLibrary ErrorCode = "MISSING_LIBRARY"

	// No usable content (terminal once all fallbacks are exhausted).
	CodeDocxNoTextExtracted  ErrorCode = "DOCX_NO_TEXT_EXTRACTED"
	CodeNoTextExtracted      ErrorCode = "NO_TEXT_EXTRACTED"
	CodePDFNoTextLayer       ErrorCode = "PDF_NO_TEXT_LAYER"
	CodeOCRUnsupportedType   ErrorCode = "OCR_UNSUPPORTED_TYPE"
	CodeOCRPDFNotImplemented ErrorCode = "OCR_PDF_NOT_IMPLEMENTED"

	// Transient / environmental.
	CodeParsingTimeout ErrorCode = "PARSING_TIMEOUT"

	// Unclassified per-backend failures; Message carries the diagnostic text.
	CodeDocxParseError  ErrorCode = "DOCX_PARSE_ERROR"
	CodePDFParseError   ErrorCode = "PDF_PARSE_ERROR"
	CodeTxtParseError   ErrorCode = "TXT_PARSE_ERROR"
	CodeOCRParseError   ErrorCode = "OCR_PARSE_ERROR"
	CodeExtractionError ErrorCode = "EXTRACTION_ERROR"
)

// codeDefaults fixes the actionable flag and the default user suggestion per
// code, so the taxonomy is defined in one place instead of at each call site.
var codeDefaults = map[ErrorCode]struct {
	actionable bool
	suggestion string
}{
	CodeUnsupportedFormat:    {true, "Upload a PDF, a Word document (.docx) or a plain-text file."},
	CodeLegacyDocFormat:      {true, "Convert the document to .docx and upload it again."},
	CodeInvalidDocxSignature: {true, "The file is not a valid .docx archive. Re-save it from your editor and try again."},

	CodePDFEncrypted:          {true, "Remove the password protection and upload the PDF again."},
	CodeDocxPasswordProtected: {true, "Remove the password protection and upload the document again."},

	CodeDocxNotValidZIP: {true, "The document archive is damaged. Re-export the file and upload it again."},

	CodeMissingLibrary: {false, ""},

	CodeDocxNoTextExtracted:  {true, "No text could be read from the document. Export it as PDF and upload that instead."},
	CodeNoTextExtracted:      {true, "No readable text was found. Export the document as PDF or plain text and try again."},
	CodePDFNoTextLayer:       {true, "The PDF looks like a scanned document without a text layer. Run it through OCR to recover the text."},
	CodeOCRUnsupportedType:   {false, ""},
	CodeOCRPDFNotImplemented: {false, ""},

	CodeParsingTimeout: {false, ""},

	CodeDocxParseError:  {false, ""},
	CodePDFParseError:   {false, ""},
	CodeTxtParseError:   {false, ""},
	CodeOCRParseError:   {false, ""},
	CodeExtractionError: {false, ""},
}

// ParseError is the structured failure object embedded in a ParseResult and
// returned as the error value of a failed pipeline run.
type ParseError struct {
	// Code classifies the failure.
	Code ErrorCode `json:"code"`

	// Message is a human-readable description; for unclassified codes it
	// includes the underlying diagnostic text.
	Message string `json:"message"`

	// Actionable reports whether the user can fix the problem themselves.
	Actionable bool `json:"actionable"`

	// SuggestedAction tells an actionable user what to do.
	SuggestedAction string `json:"suggestedAction,omitempty"`

	// Err is the underlying cause, if any. Not serialized.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is matches two ParseErrors by code, so callers can test against
// &ParseError{Code: ...} sentinels with errors.Is.
func (e *ParseError) Is(target error) bool {
	var pe *ParseError
	if errors.As(target, &pe) {
		return e.Code == pe.Code
	}
	return false
}

// NewParseError builds a ParseError for code, filling the actionable flag and
// suggested action from the taxonomy defaults.
func NewParseError(code ErrorCode, message string) *ParseError {
	d := codeDefaults[code]
	return &ParseError{
		Code:            code,
		Message:         message,
		Actionable:      d.actionable,
		SuggestedAction: d.suggestion,
	}
}

// WrapParseError builds a ParseError for code with err attached as the cause.
// If err already is a ParseError it is returned unchanged, keeping the original
// classification.
func WrapParseError(code ErrorCode, message string, err error) *ParseError {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe
	}
	e := NewParseError(code, message)
	e.Err = err
	return e
}

// CodeOf extracts the ErrorCode from err, unwrapping as needed. The second
// return value is false when err carries no ParseError.
func CodeOf(err error) (ErrorCode, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe.Code, true
	}
	return "", false
}
