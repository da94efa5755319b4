package document

import (
	"context"

	"github.com/nikhilbhutani/docqa/internal/metadata"
	"github.com/nikhilbhutani/docqa/internal/mock"
	"github.com/nikhilbhutani/docqa/internal/models"
	"github.com/nikhilbhutani/docqa/internal/progress"
	"github.com/nikhilbhutani/docqa/internal/storage"
	"github.com/nikhilbhutani/docqa/internal/vectorstore"
	"github.com/nikhilbhutani/docqa/pkg/chunker"
)

type flakyBlobs struct {
	*storage.MemoryStore
	putErr, getErr, deleteErr error
}

func (f *flakyBlobs) Put(ctx context.Context, path string, data []byte, ct string) (string, error) {
	if f.putErr != nil {
		return "", f.putErr
	}
	return f.MemoryStore.Put(ctx, path, data, ct)
}

func (f *flakyBlobs) Get(ctx context.Context, path string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.MemoryStore.Get(ctx, path)
}

func (f *flakyBlobs) Delete(ctx context.Context, paths ...string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStore.Delete(ctx, paths...)
}

type flakyMeta struct {
	*metadata.MemoryStore
	insertErr, deleteErr error
}

func (f *flakyMeta) Insert(ctx context.Context, rec *models.DocumentRecord) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	return f.MemoryStore.Insert(ctx, rec)
}

func (f *flakyMeta) Delete(ctx context.Context, filter metadata.Filter) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStore.Delete(ctx, filter)
}

type flakyIndex struct {
	*vectorstore.MemoryStore
	insertErr, deleteErr error
}

func (f *flakyIndex) Insert(ctx context.Context, records []vectorstore.Record) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	return f.MemoryStore.Insert(ctx, records)
}

func (f *flakyIndex) Delete(ctx context.Context, filter vectorstore.Filter) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.MemoryStore.Delete(ctx, filter)
}

type fixture struct {
	blobs     *flakyBlobs
	meta      *flakyMeta
	index     *flakyIndex
	embedder  *mock.Embedder
	extractor *mock.Extractor
	tracker   *progress.Tracker
	svc       *Service
	remover   *Remover
}

func newFixture(opts ...Option) *fixture {
	f := &fixture{
		blobs:     &flakyBlobs{MemoryStore: storage.NewMemoryStore()},
		meta:      &flakyMeta{MemoryStore: metadata.NewMemoryStore()},
		index:     &flakyIndex{MemoryStore: vectorstore.NewMemoryStore()},
		embedder:  mock.NewEmbedder(),
		extractor: mock.NewExtractor(),
		tracker:   progress.NewTracker(),
	}
	opts = append([]Option{
		WithProgress(f.tracker),
		WithChunkOptions(chunker.ChunkOptions{ChunkSize: 40, ChunkOverlap: 10}),
	}, opts...)
	f.svc = NewService(f.blobs, f.meta, f.index, f.embedder, f.extractor, opts...)
	f.remover = NewRemover(f.blobs, f.meta, f.index, DefaultPrefix)
	return f
}

func (f *fixture) records(ctx context.Context) []models.DocumentRecord {
	recs, _ := f.meta.Query(ctx, metadata.Query{})
	return recs
}
