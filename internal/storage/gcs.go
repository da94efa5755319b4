package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/nikhilbhutani/docqa/internal/models"
)

// GCSStore keeps uploads in a Google Cloud Storage bucket.
type GCSStore struct {
	client *gcs.Client
	bucket string
}

func NewGCSStore(ctx context.Context, bucket string) (*GCSStore, error) {
	opts := append(clientOptionsFromEnv(), option.WithScopes(gcs.ScopeReadWrite))
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket}, nil
}

// clientOptionsFromEnv accepts either inline JSON or a file path in
// GOOGLE_APPLICATION_CREDENTIALS; empty means application default credentials.
func clientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func (s *GCSStore) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("write object %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("close object writer %s: %w", path, err)
	}
	return path, nil
}

func (s *GCSStore) Get(ctx context.Context, path string) ([]byte, error) {
	r, err := s.client.Bucket(s.bucket).Object(path).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("read object %s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open object reader %s: %w", path, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", path, err)
	}
	return data, nil
}

func (s *GCSStore) Delete(ctx context.Context, paths ...string) error {
	for _, p := range paths {
		err := s.client.Bucket(s.bucket).Object(p).Delete(ctx)
		if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
			return fmt.Errorf("delete object %s: %w", p, err)
		}
	}
	return nil
}

func (s *GCSStore) List(ctx context.Context, prefix string) ([]models.FileObject, error) {
	query := &gcs.Query{Prefix: strings.TrimSuffix(prefix, "/") + "/"}
	it := s.client.Bucket(s.bucket).Objects(ctx, query)

	var files []models.FileObject
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		files = append(files, models.FileObject{
			Name:        strings.TrimPrefix(attrs.Name, query.Prefix),
			ID:          attrs.Name,
			BucketID:    attrs.Bucket,
			Size:        attrs.Size,
			ContentType: attrs.ContentType,
			CreatedAt:   attrs.Created,
			UpdatedAt:   attrs.Updated,
		})
	}
	return files, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
