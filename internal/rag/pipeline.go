package rag

import (
	"context"
	"log/slog"
	"strings"

	"github.com/nikhilbhutani/docqa/internal/apperr"
	"github.com/nikhilbhutani/docqa/internal/embedding"
	"github.com/nikhilbhutani/docqa/internal/llm"
	"github.com/nikhilbhutani/docqa/internal/models"
	"github.com/nikhilbhutani/docqa/internal/vectorstore"
)

const (
	DefaultTopK = 2
	// UnknownSource is reported when no passage was retrieved.
	UnknownSource = "Unknown"
)

type QueryRequest struct {
	Query    string `json:"query"`
	BookName string `json:"bookName,omitempty"`
}

type QueryResponse struct {
	Answer  string         `json:"answer"`
	Source  string         `json:"source"`
	Context []models.Chunk `json:"context"`
}

// Pipeline answers a question with one retrieval and one completion.
type Pipeline struct {
	retriever *Retriever
	generator *Generator
	logger    *slog.Logger
}

func NewPipeline(index vectorstore.Index, embedder embedding.Embedder, completer llm.Completer, topK int) *Pipeline {
	return &Pipeline{
		retriever: NewRetriever(index, embedder, topK),
		generator: NewGenerator(completer),
		logger:    slog.Default().With("component", "rag"),
	}
}

func (p *Pipeline) Query(ctx context.Context, req QueryRequest) (*QueryResponse, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, apperr.New(apperr.KindValidation, "query is required")
	}

	passages, err := p.retriever.Retrieve(ctx, req.Query, req.BookName)
	if err != nil {
		p.logger.Error("retrieval failed", "book", req.BookName, "error", err)
		return nil, err
	}

	answer, err := p.generator.Generate(ctx, req.Query, passages)
	if err != nil {
		p.logger.Error("completion failed", "passages", len(passages), "error", err)
		return nil, err
	}

	resp := &QueryResponse{
		Answer:  answer,
		Source:  UnknownSource,
		Context: make([]models.Chunk, len(passages)),
	}
	if len(passages) > 0 && passages[0].Metadata.BookName != "" {
		resp.Source = passages[0].Metadata.BookName
	}
	for i, r := range passages {
		resp.Context[i] = models.Chunk{Content: r.Content, Metadata: r.Metadata}
	}

	p.logger.Debug("query answered", "book", req.BookName, "passages", len(passages), "source", resp.Source)
	return resp, nil
}
