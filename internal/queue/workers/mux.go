package workers

import (
	"github.com/hibiken/asynq"

	"github.com/nikhilbhutani/docqa/internal/queue"
)

// NewMux routes every task type the worker binary handles.
func NewMux(docs Reprocessor) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(queue.TypeDocumentReprocess, NewDocumentWorker(docs))
	return mux
}
