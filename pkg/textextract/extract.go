package textextract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ExtractedText holds the text of a document split into its pages, in order.
type ExtractedText struct {
	Pages    []string
	Metadata map[string]string
}

// Content joins all pages with newlines.
func (e *ExtractedText) Content() string {
	return strings.Join(e.Pages, "\n")
}

// FileType normalises a file name, extension or MIME type into a lookup key.
func FileType(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "application/pdf":
		return "pdf"
	case "text/plain":
		return "txt"
	}
	if ext := filepath.Ext(name); ext != "" {
		return strings.TrimPrefix(ext, ".")
	}
	return name
}

func Extract(data io.ReaderAt, size int64, fileType string) (*ExtractedText, error) {
	switch FileType(fileType) {
	case "pdf":
		return extractPDF(data, size)
	case "txt":
		return extractTXT(data, size)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", fileType)
	}
}

func extractPDF(data io.ReaderAt, size int64) (result *ExtractedText, err error) {
	// the pdf reader panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			result, err = nil, fmt.Errorf("open PDF: malformed document: %v", r)
		}
	}()

	reader, err := pdf.NewReader(data, size)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read PDF page %d: %w", i, err)
		}
		pages = append(pages, validUTF8(text))
	}

	return &ExtractedText{
		Pages: pages,
		Metadata: map[string]string{
			"type": "pdf",
		},
	}, nil
}

// extractTXT treats form feeds as page breaks.
func extractTXT(data io.ReaderAt, size int64) (*ExtractedText, error) {
	buf := make([]byte, size)
	_, err := data.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read TXT: %w", err)
	}

	var pages []string
	for _, p := range bytes.Split(buf, []byte{'\f'}) {
		pages = append(pages, validUTF8(string(p)))
	}

	return &ExtractedText{
		Pages: pages,
		Metadata: map[string]string{
			"type": "txt",
		},
	}, nil
}

// validUTF8 replaces each run of invalid bytes with U+FFFD so page text can be
// split on rune offsets without changing it.
func validUTF8(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}
