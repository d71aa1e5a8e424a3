package e2e

import (
	"archive/zip"
	"bytes"

	"github.com/xuri/excelize/v2"
)

// SupportedFileExtensions is the set of extensions exercised by the
// file-based tests: plain text (.txt, .md, .csv), OOXML (.docx, .xlsx), and
// OpenDocument (.odt). The extractor also handles .pdf, .doc, .rtf, and
// .xlsm; PDF is not generated here (no minimal PDF carries extractable
// text), and .doc/.rtf/.xlsm share the .docx/.odt/.xlsx code paths.
var SupportedFileExtensions = []string{
	".txt", ".md", ".csv",
	".docx", ".odt", ".xlsx",
}

// WriteMinimalFile returns the bytes of a minimal file of the given
// extension carrying the given text. Plain types return the raw text;
// binary types return a generated container.
func WriteMinimalFile(ext, text string) ([]byte, error) {
	switch ext {
	case ".txt", ".md", ".csv":
		return []byte(text), nil
	case ".docx":
		return minimalDocx(text), nil
	case ".odt":
		return minimalOdt(text), nil
	case ".xlsx":
		return minimalXlsx(text)
	default:
		return []byte(text), nil
	}
}

func minimalDocx(text string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body><w:p><w:r><w:t>` + text + `</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func minimalOdt(text string) []byte {
	contentXML := `<?xml version="1.0" encoding="UTF-8"?>
<office:document-content xmlns:office="urn:oasis:names:tc:opendocument:xmlns:office:1.0" xmlns:text="urn:oasis:names:tc:opendocument:xmlns:text:1.0" office:version="1.2"><office:body><office:text><text:p>` + text + `</text:p></office:text></office:body></office:document-content>`
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("content.xml")
	_, _ = fw.Write([]byte(contentXML))
	_ = w.Close()
	return buf.Bytes()
}

func minimalXlsx(text string) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetCellValue("Sheet1", "A1", text); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
