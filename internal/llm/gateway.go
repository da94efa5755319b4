package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nikhilbhutani/docqa/internal/config"
)

type gateway struct {
	providers         map[string]Provider
	chatProvider      string
	embeddingProvider string
}

func NewGateway(cfg config.LLMConfig) Gateway {
	var providers []Provider
	if cfg.OpenAIKey != "" {
		providers = append(providers, NewOpenAIProvider(cfg.OpenAIKey))
	}
	if cfg.AnthropicKey != "" {
		providers = append(providers, NewAnthropicProvider(cfg.AnthropicKey))
	}
	if cfg.OllamaURL != "" {
		providers = append(providers, NewOllamaProvider(cfg.OllamaURL))
	}
	return NewGatewayWith(cfg.ChatProvider, cfg.EmbeddingProvider, providers...)
}

// NewGatewayWith builds a gateway over an explicit provider set.
func NewGatewayWith(chatProvider, embeddingProvider string, providers ...Provider) Gateway {
	g := &gateway{
		providers:         make(map[string]Provider, len(providers)),
		chatProvider:      chatProvider,
		embeddingProvider: embeddingProvider,
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
	}
	return g
}

func (g *gateway) Provider(name string) (Provider, error) {
	p, ok := g.providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %q not configured", name)
	}
	return p, nil
}

func (g *gateway) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	name := req.Provider
	if name == "" {
		name = g.chatProvider
	}
	p, err := g.Provider(name)
	if err != nil {
		return nil, err
	}

	resp, err := p.ChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}
	slog.Debug("chat completion",
		"provider", resp.Provider,
		"model", resp.Model,
		"input_tokens", resp.InputTokens,
		"output_tokens", resp.OutputTokens,
		"cost_usd", resp.CostUSD,
		"latency_ms", resp.LatencyMs,
	)
	return resp, nil
}

func (g *gateway) Embed(ctx context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	name := req.Provider
	if name == "" {
		name = g.embeddingProvider
	}
	p, err := g.Provider(name)
	if err != nil {
		return nil, err
	}

	resp, err := p.GenerateEmbedding(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(req.Input) {
		return nil, fmt.Errorf("%s returned %d embeddings for %d inputs", name, len(resp.Embeddings), len(req.Input))
	}
	return resp, nil
}
