package model

import (
	"io"
	"path/filepath"
	"slices"
	"strings"
)

// allowedDocumentExtensions lists the file types accepted as risk evidence
var allowedDocumentExtensions = []string{"pdf", "doc", "docx", "txt", "jpg", "jpeg", "png"}

// Document is an uploaded file attached to a risk report
type Document struct {
	FileName    string
	ContentType string
	Body        io.Reader
}

// Extension returns the lower-cased file extension without the leading dot
func (d *Document) Extension() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(d.FileName)), ".")
}

// IsAllowed reports whether the document type is accepted
func (d *Document) IsAllowed() bool {
	return slices.Contains(allowedDocumentExtensions, d.Extension())
}
