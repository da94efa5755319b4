package document

import (
	"context"
	"log/slog"

	"github.com/nikhilbhutani/docqa/internal/apperr"
	"github.com/nikhilbhutani/docqa/internal/metadata"
	"github.com/nikhilbhutani/docqa/internal/models"
	"github.com/nikhilbhutani/docqa/internal/storage"
	"github.com/nikhilbhutani/docqa/internal/vectorstore"
)

// Stages of RemoveDocFileVectors, in execution order.
const (
	StageBlob     = "blob"
	StageMetadata = "metadata"
	StageVectors  = "vectors"
)

// Remover deletes the three representations of a document. Every operation
// succeeds when the target is already gone.
type Remover struct {
	blobs  storage.BlobStore
	meta   metadata.Store
	index  vectorstore.Index
	prefix string
	logger *slog.Logger
}

func NewRemover(blobs storage.BlobStore, meta metadata.Store, index vectorstore.Index, prefix string) *Remover {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Remover{
		blobs:  blobs,
		meta:   meta,
		index:  index,
		prefix: prefix,
		logger: slog.Default().With("component", "remover"),
	}
}

// RemoveDocument deletes the metadata records uploaded under originalName.
func (r *Remover) RemoveDocument(ctx context.Context, originalName string) error {
	if originalName == "" {
		return apperr.New(apperr.KindValidation, "file name is required")
	}
	if err := r.meta.Delete(ctx, metadata.Filter{Field: metadata.FieldOriginalName, Value: originalName}); err != nil {
		return apperr.Wrap(apperr.KindMetadataWrite, "delete document records", err)
	}
	r.logger.Info("document records removed", "original_name", originalName)
	return nil
}

// RemoveFile deletes the stored blob of fileName.
func (r *Remover) RemoveFile(ctx context.Context, fileName string) error {
	if fileName == "" {
		return apperr.New(apperr.KindValidation, "file name is required")
	}
	if err := r.blobs.Delete(ctx, storage.ObjectPath(r.prefix, fileName)); err != nil {
		return apperr.Wrap(apperr.KindStorageWrite, "delete file", err)
	}
	r.logger.Info("file removed", "file", fileName)
	return nil
}

// RemoveVector deletes the indexed chunks of one document.
func (r *Remover) RemoveVector(ctx context.Context, docID string) error {
	if docID == "" {
		return apperr.New(apperr.KindValidation, "document id is required")
	}
	if err := r.index.Delete(ctx, vectorstore.Filter{Field: vectorstore.FieldDocID, Value: docID}); err != nil {
		return apperr.Wrap(apperr.KindIndexWrite, "delete vectors", err)
	}
	r.logger.Info("vectors removed", "doc_id", docID)
	return nil
}

// RemoveDocFileVectors deletes the blob, then the metadata records, then the
// vectors for name, stopping at the first failure. name may be either the
// generated file name or the original name; the records it resolves to supply
// the blob paths and document ids. The returned error's stage names the step
// that failed; earlier steps stay done.
func (r *Remover) RemoveDocFileVectors(ctx context.Context, name string) error {
	if name == "" {
		return apperr.New(apperr.KindValidation, "file name is required")
	}
	log := r.logger.With("name", name)

	recs, aerr := r.findRecords(ctx, name)
	if aerr != nil {
		log.Error("remove failed", "stage", StageBlob, "error", aerr)
		return aerr.WithStage(StageBlob)
	}

	paths := []string{storage.ObjectPath(r.prefix, name)}
	seen := map[string]bool{paths[0]: true}
	for _, rec := range recs {
		p := rec.StoragePath
		if p == "" {
			p = storage.ObjectPath(r.prefix, rec.FileName)
		}
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	if err := r.blobs.Delete(ctx, paths...); err != nil {
		log.Error("remove failed", "stage", StageBlob, "error", err)
		return apperr.Wrap(apperr.KindStorageWrite, "delete file", err).WithStage(StageBlob)
	}

	for _, rec := range recs {
		if err := r.meta.Delete(ctx, metadata.Filter{Field: metadata.FieldID, Value: rec.ID}); err != nil {
			log.Error("remove failed", "stage", StageMetadata, "error", err)
			return apperr.Wrap(apperr.KindMetadataWrite, "delete document records", err).WithStage(StageMetadata)
		}
	}

	filters := []vectorstore.Filter{{Field: vectorstore.FieldSource, Value: name}}
	for _, rec := range recs {
		filters = append(filters, vectorstore.Filter{Field: vectorstore.FieldDocID, Value: rec.ID})
	}
	for _, f := range filters {
		if err := r.index.Delete(ctx, f); err != nil {
			log.Error("remove failed", "stage", StageVectors, "error", err)
			return apperr.Wrap(apperr.KindIndexWrite, "delete vectors", err).WithStage(StageVectors)
		}
	}

	log.Info("document removed", "records", len(recs), "blobs", len(paths))
	return nil
}

// findRecords returns the records whose fileName or originalName is name.
func (r *Remover) findRecords(ctx context.Context, name string) ([]models.DocumentRecord, *apperr.Error) {
	seen := make(map[string]bool)
	var out []models.DocumentRecord
	for _, field := range []metadata.Field{metadata.FieldFileName, metadata.FieldOriginalName} {
		recs, err := r.meta.Query(ctx, metadata.Query{Filter: metadata.Eq(field, name)})
		if err != nil {
			return nil, apperr.Wrap(apperr.KindMetadataRead, "look up document records", err)
		}
		for _, rec := range recs {
			if !seen[rec.ID] {
				seen[rec.ID] = true
				out = append(out, rec)
			}
		}
	}
	return out, nil
}
