package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/nikhilbhutani/docqa/internal/models"
)

type memoryObject struct {
	data        []byte
	contentType string
	createdAt   time.Time
}

// MemoryStore is a process-local BlobStore for development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memoryObject)}
}

func (s *MemoryStore) Put(_ context.Context, path string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]byte, len(data))
	copy(cp, data)
	s.objects[path] = memoryObject{data: cp, contentType: contentType, createdAt: time.Now().UTC()}
	return path, nil
}

func (s *MemoryStore) Get(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.objects[path]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", path, ErrNotFound)
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return cp, nil
}

func (s *MemoryStore) Delete(_ context.Context, paths ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range paths {
		delete(s.objects, p)
	}
	return nil
}

func (s *MemoryStore) List(_ context.Context, prefix string) ([]models.FileObject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dir := strings.TrimSuffix(prefix, "/") + "/"
	var files []models.FileObject
	for p, obj := range s.objects {
		if !strings.HasPrefix(p, dir) {
			continue
		}
		files = append(files, models.FileObject{
			Name:        strings.TrimPrefix(p, dir),
			ID:          p,
			Size:        int64(len(obj.data)),
			ContentType: obj.contentType,
			CreatedAt:   obj.createdAt,
			UpdatedAt:   obj.createdAt,
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Exists reports whether an object is stored at path.
func (s *MemoryStore) Exists(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[path]
	return ok
}
