package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/nikhilbhutani/docqa/internal/models"
)

type memoryRecord struct {
	id        int64
	content   string
	metadata  models.ChunkMetadata
	embedding []float32
}

// MemoryStore is a brute-force cosine index held in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  int64
	records []memoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (s *MemoryStore) Insert(_ context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range records {
		emb := make([]float32, len(r.Embedding))
		copy(emb, r.Embedding)
		s.records = append(s.records, memoryRecord{
			id:        s.nextID,
			content:   r.Content,
			metadata:  r.Metadata,
			embedding: emb,
		})
		s.nextID++
	}
	return nil
}

func (s *MemoryStore) SimilaritySearch(_ context.Context, query []float32, opts SearchOptions) ([]SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = 2
	}
	if opts.Filter != nil {
		if err := opts.Filter.Field.valid(); err != nil {
			return nil, err
		}
	}

	s.mu.RLock()
	var results []SearchResult
	for _, r := range s.records {
		if opts.Filter != nil && opts.Filter.Field.value(r.metadata) != opts.Filter.Value {
			continue
		}
		if len(r.embedding) != len(query) {
			s.mu.RUnlock()
			return nil, fmt.Errorf("dimension mismatch: index has %d, query has %d", len(r.embedding), len(query))
		}
		results = append(results, SearchResult{
			ID:       r.id,
			Content:  r.content,
			Metadata: r.metadata,
			Score:    cosine(query, r.embedding),
		})
	}
	s.mu.RUnlock()

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

func (s *MemoryStore) Delete(_ context.Context, filter Filter) error {
	if err := filter.Field.valid(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	for _, r := range s.records {
		if filter.Field.value(r.metadata) != filter.Value {
			kept = append(kept, r)
		}
	}
	s.records = kept
	return nil
}

func (s *MemoryStore) List(_ context.Context, start, end int) ([]models.VectorRecord, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := len(s.records)
	if start < 0 {
		start = 0
	}
	if end >= total {
		end = total - 1
	}
	if start > end {
		return nil, total, nil
	}

	out := make([]models.VectorRecord, 0, end-start+1)
	for _, r := range s.records[start : end+1] {
		out = append(out, models.VectorRecord{ID: r.id, Content: r.content, Metadata: r.metadata})
	}
	return out, total, nil
}

// Len reports how many chunks are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
