package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/lu4p/cat"
)

// extractODT extracts text from OpenDocument and RTF files. The parser
// works on file paths, so in-memory content is staged to a temporary file.
func extractODT(content []byte, ext string) (string, error) {
	tmp, err := os.CreateTemp("", "extract-*"+ext)
	if err != nil {
		return "", fmt.Errorf("stage %s: %w", ext, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("stage %s: %w", ext, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("stage %s: %w", ext, err)
	}

	text, err := cat.File(tmp.Name())
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", strings.TrimPrefix(ext, "."), err)
	}
	return strings.TrimSpace(text), nil
}
