package rag

import (
	"context"

	"github.com/nikhilbhutani/docqa/internal/apperr"
	"github.com/nikhilbhutani/docqa/internal/embedding"
	"github.com/nikhilbhutani/docqa/internal/vectorstore"
)

type Retriever struct {
	index    vectorstore.Index
	embedder embedding.Embedder
	topK     int
}

func NewRetriever(index vectorstore.Index, embedder embedding.Embedder, topK int) *Retriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &Retriever{index: index, embedder: embedder, topK: topK}
}

// Retrieve returns the topK passages closest to query, restricted to bookName
// when it is not empty.
func (r *Retriever) Retrieve(ctx context.Context, query, bookName string) ([]vectorstore.SearchResult, error) {
	vecs, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindEmbedding, "embed query", err)
	}
	if len(vecs) != 1 {
		return nil, apperr.New(apperr.KindEmbedding, "embed query: no vector returned")
	}

	opts := vectorstore.SearchOptions{TopK: r.topK}
	if bookName != "" {
		opts.Filter = &vectorstore.Filter{Field: vectorstore.FieldBookName, Value: bookName}
	}

	results, err := r.index.SimilaritySearch(ctx, vecs[0], opts)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindIndexRead, "search passages", err)
	}
	return results, nil
}
