package document

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nikhilbhutani/docqa/internal/apperr"
	"github.com/nikhilbhutani/docqa/internal/embedding"
	"github.com/nikhilbhutani/docqa/internal/metadata"
	"github.com/nikhilbhutani/docqa/internal/models"
	"github.com/nikhilbhutani/docqa/internal/progress"
	"github.com/nikhilbhutani/docqa/internal/storage"
	"github.com/nikhilbhutani/docqa/internal/vectorstore"
	"github.com/nikhilbhutani/docqa/pkg/chunker"
)

const DefaultPrefix = "uploads"

var validName = regexp.MustCompile(`^[a-zA-Z0-9\-.]+$`)

// ValidName reports whether name is acceptable as an upload's original name.
func ValidName(name string) bool {
	return validName.MatchString(name)
}

// Service ingests uploaded files and serves listings over the three stores.
type Service struct {
	blobs     storage.BlobStore
	meta      metadata.Store
	index     vectorstore.Index
	embedder  embedding.Embedder
	extractor TextExtractor
	chunker   chunker.Chunker
	chunkOpts chunker.ChunkOptions
	prefix    string
	progress  progress.Observer
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithProgress(o progress.Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.progress = o
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithChunkOptions(opts chunker.ChunkOptions) Option {
	return func(s *Service) { s.chunkOpts = opts }
}

func WithPrefix(prefix string) Option {
	return func(s *Service) {
		if prefix != "" {
			s.prefix = strings.Trim(prefix, "/")
		}
	}
}

func NewService(
	blobs storage.BlobStore,
	meta metadata.Store,
	index vectorstore.Index,
	embedder embedding.Embedder,
	extractor TextExtractor,
	opts ...Option,
) *Service {
	s := &Service{
		blobs:     blobs,
		meta:      meta,
		index:     index,
		embedder:  embedder,
		extractor: extractor,
		chunker:   chunker.New(),
		chunkOpts: chunker.DefaultOptions(),
		prefix:    DefaultPrefix,
		progress:  progress.Nop{},
		logger:    slog.Default().With("component", "document"),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload stores data under a fresh unique file name, records it, and indexes
// its text. The returned name is the one later used by RemoveFile and
// RemoveDocFileVectors. Nothing already persisted is undone on failure.
func (s *Service) Upload(ctx context.Context, data []byte, originalName string) (string, error) {
	if !ValidName(originalName) {
		return "", apperr.New(apperr.KindValidation, "invalid file name: only letters, digits, '-' and '.' are allowed")
	}

	fileName := uuid.NewString() + "-" + originalName
	log := s.logger.With("file", fileName)

	fail := func(err *apperr.Error, stage string) (string, error) {
		s.progress.OnProgress(ctx, fileName, 0, models.ProgressFailed)
		log.Error("upload failed", "stage", stage, "kind", err.Kind, "error", err.Err)
		return "", &apperr.Error{
			Kind:    err.Kind,
			Stage:   stage,
			Message: "failed to upload document",
			Err:     err,
		}
	}

	path, err := s.blobs.Put(ctx, storage.ObjectPath(s.prefix, fileName), data, storage.ContentType(originalName))
	if err != nil {
		return fail(apperr.Wrap(apperr.KindStorageWrite, "store file", err), "blob")
	}
	s.progress.OnProgress(ctx, fileName, progress.Stored, models.ProgressProcessing)

	rec := &models.DocumentRecord{
		FileName:     fileName,
		OriginalName: originalName,
		FileSize:     int64(len(data)),
		UploadDate:   s.now(),
		StoragePath:  path,
	}
	rec.ID, err = s.meta.Insert(ctx, rec)
	if err != nil {
		return fail(apperr.Wrap(apperr.KindMetadataWrite, "record document", err), "metadata")
	}
	s.progress.OnProgress(ctx, fileName, progress.Recorded, models.ProgressProcessing)

	n, stage, aerr := s.ingest(ctx, rec)
	if aerr != nil {
		return fail(aerr, stage)
	}

	s.progress.OnProgress(ctx, fileName, progress.Indexed, models.ProgressCompleted)
	log.Info("document ingested", "doc_id", rec.ID, "chunks", n, "bytes", rec.FileSize)
	return fileName, nil
}

// Reprocess rebuilds the vectors of an existing document from its stored blob.
func (s *Service) Reprocess(ctx context.Context, docID string) (int, error) {
	if docID == "" {
		return 0, apperr.New(apperr.KindValidation, "document id is required")
	}

	recs, err := s.meta.Query(ctx, metadata.Query{Filter: metadata.Eq(metadata.FieldID, docID)})
	if err != nil {
		return 0, apperr.Wrap(apperr.KindMetadataRead, "look up document", err)
	}
	if len(recs) == 0 {
		return 0, apperr.New(apperr.KindNotFound, "document not found: "+docID)
	}
	rec := recs[0]

	if err := s.index.Delete(ctx, vectorstore.Filter{Field: vectorstore.FieldDocID, Value: rec.ID}); err != nil {
		return 0, apperr.Wrap(apperr.KindIndexWrite, "clear previous vectors", err).WithStage("vectors")
	}

	n, stage, aerr := s.ingest(ctx, &rec)
	if aerr != nil {
		return 0, aerr.WithStage(stage)
	}
	s.logger.Info("document reprocessed", "doc_id", rec.ID, "file", rec.FileName, "chunks", n)
	return n, nil
}

// ingest reads the durable copy of rec, chunks it and writes its vectors.
func (s *Service) ingest(ctx context.Context, rec *models.DocumentRecord) (int, string, *apperr.Error) {
	data, err := s.blobs.Get(ctx, rec.StoragePath)
	if err != nil {
		return 0, "read", apperr.Wrap(apperr.KindStorageRead, "read stored file", err)
	}

	pages, err := s.extractor.Extract(ctx, data, rec.OriginalName)
	if err != nil {
		return 0, "extract", apperr.Wrap(apperr.KindExtraction, "extract text", err)
	}
	s.progress.OnProgress(ctx, rec.FileName, progress.Extracted, models.ProgressProcessing)

	chunks := s.split(rec, pages)
	if len(chunks) == 0 {
		return 0, "extract", apperr.New(apperr.KindExtraction, "document contains no text")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, "embed", apperr.Wrap(apperr.KindEmbedding, "embed chunks", err)
	}
	if len(vectors) != len(chunks) {
		return 0, "embed", apperr.New(apperr.KindEmbedding, "embedding count does not match chunk count")
	}
	s.progress.OnProgress(ctx, rec.FileName, progress.Embedded, models.ProgressProcessing)

	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.Record{Content: c.Content, Metadata: c.Metadata, Embedding: vectors[i]}
	}
	if err := s.index.Insert(ctx, records); err != nil {
		return 0, "index", apperr.Wrap(apperr.KindIndexWrite, "index chunks", err)
	}
	return len(records), "", nil
}

// split chunks every non-blank page. Page numbers run 1..n over the chunks of
// the whole document.
func (s *Service) split(rec *models.DocumentRecord, pages []string) []models.Chunk {
	var chunks []models.Chunk
	for _, page := range pages {
		if strings.TrimSpace(page) == "" {
			continue
		}
		for _, tc := range s.chunker.Chunk(page, s.chunkOpts) {
			chunks = append(chunks, models.Chunk{
				Content: tc.Content,
				Metadata: models.ChunkMetadata{
					DocID:       rec.ID,
					Source:      rec.OriginalName,
					Page:        len(chunks) + 1,
					BookName:    rec.OriginalName,
					FileSize:    rec.FileSize,
					UploadDate:  rec.UploadDate,
					StoragePath: rec.StoragePath,
				},
			})
		}
	}
	return chunks
}

// ListDocuments returns every record, newest first.
func (s *Service) ListDocuments(ctx context.Context) ([]models.DocumentRecord, error) {
	recs, err := s.meta.Query(ctx, metadata.Query{OrderBy: metadata.FieldUploadDate, Descending: true})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindMetadataRead, "list documents", err)
	}
	if recs == nil {
		recs = []models.DocumentRecord{}
	}
	return recs, nil
}

// VectorPage is one inclusive range of the index plus its total size.
type VectorPage struct {
	Data      []models.VectorRecord `json:"data"`
	TotalSize int                   `json:"totalSize"`
}

func (s *Service) ListVectors(ctx context.Context, start, end int) (*VectorPage, error) {
	if start < 0 || end < start {
		return nil, apperr.New(apperr.KindValidation, "invalid range: need 0 <= start <= end")
	}
	data, total, err := s.index.List(ctx, start, end)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIndexRead, "list vectors", err)
	}
	if data == nil {
		data = []models.VectorRecord{}
	}
	return &VectorPage{Data: data, TotalSize: total}, nil
}

func (s *Service) ListFiles(ctx context.Context) ([]models.FileObject, error) {
	files, err := s.blobs.List(ctx, s.prefix)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorageRead, "list files", err)
	}
	if files == nil {
		files = []models.FileObject{}
	}
	return files, nil
}
