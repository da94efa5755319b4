package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/nikhilbhutani/docqa/internal/apperr"
	"github.com/nikhilbhutani/docqa/internal/llm"
	"github.com/nikhilbhutani/docqa/internal/vectorstore"
)

const SystemPrompt = "You are a helpful assistant that answers questions based only on the provided context."

type Generator struct {
	completer llm.Completer
}

func NewGenerator(c llm.Completer) *Generator {
	return &Generator{completer: c}
}

// Generate answers query from the given passages. An empty passage list is
// a valid context.
func (g *Generator) Generate(ctx context.Context, query string, passages []vectorstore.SearchResult) (string, error) {
	answer, err := g.completer.Complete(ctx, SystemPrompt, UserPrompt(query, BuildContext(passages)))
	if err != nil {
		return "", apperr.Wrap(apperr.KindCompletion, "generate answer", err)
	}
	return answer, nil
}

// BuildContext joins passage contents with newlines, in the order given.
func BuildContext(passages []vectorstore.SearchResult) string {
	parts := make([]string, len(passages))
	for i, p := range passages {
		parts[i] = p.Content
	}
	return strings.Join(parts, "\n")
}

func UserPrompt(query, context string) string {
	return fmt.Sprintf("Context: %s\n\nQuestion: %s", context, query)
}
