package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nikhilbhutani/docqa/internal/models"
)

// SupabaseStorage talks to the Supabase Storage REST API for a single bucket.
type SupabaseStorage struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

func NewSupabaseStorage(supabaseURL, serviceKey, bucket string) *SupabaseStorage {
	return &SupabaseStorage{
		baseURL:    strings.TrimRight(supabaseURL, "/") + "/storage/v1",
		serviceKey: serviceKey,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

func (s *SupabaseStorage) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, s.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload failed (%d): %s", resp.StatusCode, string(body))
	}

	return path, nil
}

func (s *SupabaseStorage) Get(ctx context.Context, path string) ([]byte, error) {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, s.bucket, path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	s.authorize(req)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("download %s: %w", path, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("download failed (%d)", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download body: %w", err)
	}
	return data, nil
}

// Delete removes objects in one bulk request. Supabase answers 200 with the
// subset actually removed, so absent paths are not an error.
func (s *SupabaseStorage) Delete(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	url := fmt.Sprintf("%s/object/%s", s.baseURL, s.bucket)

	body, err := json.Marshal(map[string][]string{"prefixes": paths})
	if err != nil {
		return fmt.Errorf("marshal delete request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	s.authorize(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("delete files: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("delete failed (%d): %s", resp.StatusCode, string(msg))
	}

	return nil
}

type supabaseListRequest struct {
	Prefix string            `json:"prefix"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	SortBy map[string]string `json:"sortBy"`
}

type supabaseObject struct {
	Name      string                 `json:"name"`
	ID        string                 `json:"id"`
	BucketID  string                 `json:"bucket_id"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
	Metadata  map[string]interface{} `json:"metadata"`
}

const supabaseListPage = 100

func (s *SupabaseStorage) List(ctx context.Context, prefix string) ([]models.FileObject, error) {
	url := fmt.Sprintf("%s/object/list/%s", s.baseURL, s.bucket)

	var files []models.FileObject
	for offset := 0; ; offset += supabaseListPage {
		body, err := json.Marshal(supabaseListRequest{
			Prefix: prefix,
			Limit:  supabaseListPage,
			Offset: offset,
			SortBy: map[string]string{"column": "name", "order": "asc"},
		})
		if err != nil {
			return nil, fmt.Errorf("marshal list request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create list request: %w", err)
		}
		s.authorize(req)
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("list files: %w", err)
		}

		var page []supabaseObject
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return nil, fmt.Errorf("list failed (%d)", resp.StatusCode)
		}
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("decode list response: %w", err)
		}

		for _, o := range page {
			files = append(files, toFileObject(o))
		}
		if len(page) < supabaseListPage {
			return files, nil
		}
	}
}

func toFileObject(o supabaseObject) models.FileObject {
	f := models.FileObject{
		Name:      o.Name,
		ID:        o.ID,
		BucketID:  o.BucketID,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		Metadata:  o.Metadata,
	}
	if size, ok := o.Metadata["size"].(float64); ok {
		f.Size = int64(size)
	}
	if ct, ok := o.Metadata["mimetype"].(string); ok {
		f.ContentType = ct
	}
	return f
}

func (s *SupabaseStorage) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("apikey", s.serviceKey)
}
