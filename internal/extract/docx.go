package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
)

const docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"

// wtTag matches <w:t>text</w:t> including tags with attributes such as
// xml:space="preserve".
var wtTag = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)

// partNameRes locate the main document part in [Content_Types].xml; both
// attribute orders occur in the wild.
var partNameRes = []*regexp.Regexp{
	regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`),
	regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`),
}

// extractDOCX extracts text from .docx bytes. A DOCX file is a ZIP holding
// the document body as OOXML; all <w:t> text nodes are collected so content
// survives regardless of paragraph and run attributes.
func extractDOCX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract DOCX: not a zip: %w", err)
	}

	docPath := mainDocumentPath(zr)
	docXML, err := zipFileContent(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}

	parts := wtTag.FindAllStringSubmatch(string(docXML), -1)
	var b strings.Builder
	for _, p := range parts {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strings.TrimSpace(p[1]))
	}
	return strings.TrimSpace(b.String()), nil
}

// mainDocumentPath resolves the document body path from [Content_Types].xml,
// defaulting to word/document.xml when the package does not declare one.
func mainDocumentPath(zr *zip.Reader) string {
	data, err := zipFileContent(zr, "[Content_Types].xml")
	if err != nil {
		return "word/document.xml"
	}
	for _, re := range partNameRes {
		if m := re.FindStringSubmatch(string(data)); len(m) > 1 {
			return strings.TrimPrefix(m[1], "/")
		}
	}
	return "word/document.xml"
}

func zipFileContent(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, fmt.Errorf("%s not found", name)
}
