// Package extract provides plain-text extraction from document formats.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// UnsupportedFormatError reports a file extension no extractor handles.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file type: %s", e.Ext)
}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content. Plain text
// files (.txt, .md, .csv) are returned as-is after UTF-8 validation; PDF,
// DOCX, Excel, OpenDocument, and RTF files are parsed. Unknown extensions
// return an UnsupportedFormatError.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on the given extension.
// ext should include the leading dot (e.g. ".pdf").
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch ext {
	case ".pdf":
		return extractPDF(content)
	case ".docx", ".doc":
		return extractDOCX(content)
	case ".odt", ".rtf":
		return extractODT(content, ext)
	case ".xlsx", ".xlsm":
		return extractExcel(content)
	case ".txt", ".md", ".csv", "":
		return extractPlain(content)
	default:
		return "", &UnsupportedFormatError{Ext: ext}
	}
}
