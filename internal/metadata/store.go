package metadata

import (
	"context"
	"fmt"

	"github.com/nikhilbhutani/docqa/internal/models"
)

// Field names a DocumentRecord attribute that can be filtered or sorted on.
type Field string

const (
	FieldID           Field = "id"
	FieldFileName     Field = "fileName"
	FieldOriginalName Field = "originalName"
	FieldUploadDate   Field = "uploadDate"
)

// Filter is an equality match on a single field.
type Filter struct {
	Field Field
	Value string
}

func Eq(field Field, value string) *Filter {
	return &Filter{Field: field, Value: value}
}

// Query selects records. A zero Limit means no limit.
type Query struct {
	Filter     *Filter
	OrderBy    Field
	Descending bool
	Offset     int
	Limit      int
}

// Store persists DocumentRecords. Delete with a filter that matches nothing is not an error.
type Store interface {
	Insert(ctx context.Context, rec *models.DocumentRecord) (string, error)
	Query(ctx context.Context, q Query) ([]models.DocumentRecord, error)
	Delete(ctx context.Context, f Filter) error
}

var columns = map[Field]string{
	FieldID:           "id",
	FieldFileName:     "file_name",
	FieldOriginalName: "original_name",
	FieldUploadDate:   "upload_date",
}

func column(f Field) (string, error) {
	c, ok := columns[f]
	if !ok {
		return "", fmt.Errorf("unknown field %q", f)
	}
	return c, nil
}
