package storage

import (
	"context"
	"errors"
	"path"
	"strings"

	"github.com/nikhilbhutani/docqa/internal/models"
)

// ErrNotFound is returned by Get when no object exists at the path.
var ErrNotFound = errors.New("object not found")

// BlobStore holds raw uploaded files. Paths are bucket-relative, e.g. "uploads/<fileName>".
// Delete must treat missing objects as already deleted.
type BlobStore interface {
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, paths ...string) error
	List(ctx context.Context, prefix string) ([]models.FileObject, error)
}

// ObjectPath joins the upload prefix and a file name.
func ObjectPath(prefix, fileName string) string {
	return path.Join(strings.Trim(prefix, "/"), fileName)
}

// ContentType guesses the MIME type from a file name.
func ContentType(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".txt":
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
