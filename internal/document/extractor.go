package document

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nikhilbhutani/docqa/pkg/textextract"
)

// TextExtractor turns stored file bytes into ordered page texts.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, fileName string) ([]string, error)
}

type extractor struct{}

func NewTextExtractor() TextExtractor {
	return &extractor{}
}

func (e *extractor) Extract(_ context.Context, data []byte, fileName string) ([]string, error) {
	result, err := textextract.Extract(bytes.NewReader(data), int64(len(data)), fileName)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	return result.Pages, nil
}
