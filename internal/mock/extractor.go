package mock

import (
	"context"
	"strings"
)

// Extractor treats input bytes as UTF-8 text with pages separated by form
// feeds unless ExtractFunc is set.
type Extractor struct {
	ExtractFunc func(ctx context.Context, data []byte, fileName string) ([]string, error)
}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, data []byte, fileName string) ([]string, error) {
	if e.ExtractFunc != nil {
		return e.ExtractFunc(ctx, data, fileName)
	}
	return strings.Split(string(data), "\f"), nil
}
