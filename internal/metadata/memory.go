package metadata

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/nikhilbhutani/docqa/internal/models"
)

// MemoryStore is a process-local Store. Records are kept in insertion order.
type MemoryStore struct {
	mu      sync.RWMutex
	records []models.DocumentRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Insert(_ context.Context, rec *models.DocumentRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := *rec
	r.ID = uuid.NewString()
	s.records = append(s.records, r)
	return r.ID, nil
}

func (s *MemoryStore) Query(_ context.Context, q Query) ([]models.DocumentRecord, error) {
	if q.Filter != nil {
		if _, err := column(q.Filter.Field); err != nil {
			return nil, err
		}
	}
	if q.OrderBy != "" {
		if _, err := column(q.OrderBy); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	var out []models.DocumentRecord
	for _, r := range s.records {
		if q.Filter == nil || fieldValue(r, q.Filter.Field) == q.Filter.Value {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	if q.OrderBy != "" {
		sort.SliceStable(out, func(i, j int) bool {
			if q.Descending {
				return compare(out[j], out[i], q.OrderBy)
			}
			return compare(out[i], out[j], q.OrderBy)
		})
	}

	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return nil, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(out) {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, f Filter) error {
	if _, err := column(f.Field); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, r := range s.records {
		if fieldValue(r, f.Field) != f.Value {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return nil
}

func fieldValue(r models.DocumentRecord, f Field) string {
	switch f {
	case FieldID:
		return r.ID
	case FieldFileName:
		return r.FileName
	case FieldOriginalName:
		return r.OriginalName
	case FieldUploadDate:
		return r.UploadDate.Format("2006-01-02T15:04:05.999999999Z07:00")
	}
	return ""
}

func compare(a, b models.DocumentRecord, f Field) bool {
	if f == FieldUploadDate {
		return a.UploadDate.Before(b.UploadDate)
	}
	return fieldValue(a, f) < fieldValue(b, f)
}
