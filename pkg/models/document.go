package models

// Document is the file-like input crossing the pipeline boundary: the uploaded
// file's name, its declared media type (may be empty or a generic binary type),
// and the full byte content.
type Document struct {
	Name      string // original filename, used for extension sniffing
	MediaType string // declared content type, e.g. "application/pdf"; "" if unknown
	Data      []byte // full file content
}

// Size returns the byte length of the document content.
func (d Document) Size() int64 {
	return int64(len(d.Data))
}

// Text returns the document content decoded as UTF-8 text.
func (d Document) Text() string {
	return string(d.Data)
}
