package vectorstore

import (
	"context"
	"fmt"

	"github.com/nikhilbhutani/docqa/internal/models"
)

// Record is a chunk ready to be indexed.
type Record struct {
	Content   string
	Metadata  models.ChunkMetadata
	Embedding []float32
}

// MetadataField names a chunk metadata key usable in filters.
type MetadataField string

const (
	FieldDocID    MetadataField = "docId"
	FieldSource   MetadataField = "source"
	FieldBookName MetadataField = "bookName"
)

// Filter is an equality match on one metadata key.
type Filter struct {
	Field MetadataField
	Value string
}

type SearchOptions struct {
	TopK   int
	Filter *Filter
}

type SearchResult struct {
	ID       int64                `json:"id"`
	Content  string               `json:"content"`
	Metadata models.ChunkMetadata `json:"metadata"`
	Score    float64              `json:"score"`
}

// Index stores embedded chunks. Filters on SimilaritySearch narrow the
// candidate set before ranking. Delete with a filter that matches nothing is
// not an error. List takes an inclusive [start, end] range and also returns
// the total number of stored records.
type Index interface {
	Insert(ctx context.Context, records []Record) error
	SimilaritySearch(ctx context.Context, query []float32, opts SearchOptions) ([]SearchResult, error)
	Delete(ctx context.Context, filter Filter) error
	List(ctx context.Context, start, end int) ([]models.VectorRecord, int, error)
}

func (f MetadataField) valid() error {
	switch f {
	case FieldDocID, FieldSource, FieldBookName:
		return nil
	}
	return fmt.Errorf("unknown metadata field %q", f)
}

func (f MetadataField) value(m models.ChunkMetadata) string {
	switch f {
	case FieldDocID:
		return m.DocID
	case FieldSource:
		return m.Source
	case FieldBookName:
		return m.BookName
	}
	return ""
}
