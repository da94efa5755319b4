package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/docqa/internal/apperr"
	"github.com/nikhilbhutani/docqa/internal/queue"
)

// Reprocessor rebuilds the vectors of one stored document.
type Reprocessor interface {
	Reprocess(ctx context.Context, docID string) (int, error)
}

type DocumentWorker struct {
	docs   Reprocessor
	logger *slog.Logger
}

func NewDocumentWorker(docs Reprocessor) *DocumentWorker {
	return &DocumentWorker{
		docs:   docs,
		logger: slog.Default().With("component", "document_worker"),
	}
}

func (w *DocumentWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload queue.DocumentReprocessPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	w.logger.Info("reprocessing document", "doc_id", payload.DocID)

	n, err := w.docs.Reprocess(ctx, payload.DocID)
	if err != nil {
		w.logger.Error("reprocess failed", "doc_id", payload.DocID, "kind", apperr.KindOf(err), "error", err)
		switch apperr.KindOf(err) {
		case apperr.KindValidation, apperr.KindNotFound, apperr.KindExtraction:
			return fmt.Errorf("reprocess %s: %w: %w", payload.DocID, err, asynq.SkipRetry)
		}
		return fmt.Errorf("reprocess %s: %w", payload.DocID, err)
	}

	w.logger.Info("document reprocessed", "doc_id", payload.DocID, "chunks", n)
	return nil
}
