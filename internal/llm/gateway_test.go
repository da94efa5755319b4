package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name    string
	chatErr error
	lastReq ChatRequest
	dims    int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) ChatCompletion(_ context.Context, req ChatRequest) (*ChatResponse, error) {
	f.lastReq = req
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &ChatResponse{Provider: f.name, Model: req.Model, Content: "ok from " + f.name}, nil
}

func (f *fakeProvider) GenerateEmbedding(_ context.Context, req EmbeddingRequest) (*EmbeddingResponse, error) {
	out := make([][]float32, len(req.Input))
	for i := range out {
		out[i] = make([]float32, f.dims)
	}
	return &EmbeddingResponse{Provider: f.name, Embeddings: out}, nil
}

func TestGateway_RoutesToDefaults(t *testing.T) {
	chat := &fakeProvider{name: "anthropic"}
	emb := &fakeProvider{name: "ollama", dims: 3}
	gw := NewGatewayWith("anthropic", "ollama", chat, emb)

	resp, err := gw.Chat(context.Background(), ChatRequest{Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "ok from anthropic", resp.Content)

	eresp, err := gw.Embed(context.Background(), EmbeddingRequest{Input: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "ollama", eresp.Provider)
	assert.Len(t, eresp.Embeddings, 2)

	_, err = gw.Chat(context.Background(), ChatRequest{Provider: "openai"})
	assert.ErrorContains(t, err, `provider "openai" not configured`)
}

func TestCompleter_BuildsMessagesAndWrapsErrors(t *testing.T) {
	p := &fakeProvider{name: "openai"}
	c := NewCompleter(NewGatewayWith("openai", "openai", p), "", "gpt-3.5-turbo")

	out, err := c.Complete(context.Background(), "be brief", "hello")
	require.NoError(t, err)
	assert.Equal(t, "ok from openai", out)
	require.Len(t, p.lastReq.Messages, 2)
	assert.Equal(t, Message{Role: "system", Content: "be brief"}, p.lastReq.Messages[0])
	assert.Equal(t, Message{Role: "user", Content: "hello"}, p.lastReq.Messages[1])
	assert.Equal(t, "gpt-3.5-turbo", p.lastReq.Model)

	boom := errors.New("rate limited")
	p.chatErr = boom
	_, err = c.Complete(context.Background(), "", "hello")
	assert.ErrorIs(t, err, boom)
	assert.Len(t, p.lastReq.Messages, 1)
}

func TestOllamaProvider_ChatAndEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/chat":
			var req ollamaChatReq
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.False(t, req.Stream)
			_ = json.NewEncoder(w).Encode(ollamaChatResp{
				Message:         ollamaMessage{Role: "assistant", Content: "Paris"},
				PromptEvalCount: 12,
				EvalCount:       1,
			})
		case "/api/embed":
			var req ollamaEmbedReq
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			out := ollamaEmbedResp{}
			for range req.Input {
				out.Embeddings = append(out.Embeddings, []float32{0.1, 0.2})
			}
			_ = json.NewEncoder(w).Encode(out)
		default:
			http.Error(w, "model not found", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL + "/")
	chat, err := p.ChatCompletion(context.Background(), ChatRequest{Model: "llama3", Messages: []Message{{Role: "user", Content: "capital?"}}})
	require.NoError(t, err)
	assert.Equal(t, "Paris", chat.Content)
	assert.Equal(t, 12, chat.InputTokens)

	emb, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Input: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", emb.Model)
	assert.Len(t, emb.Embeddings, 2)
	assert.Equal(t, 2, emb.Tokens)
}

func TestOllamaProvider_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL).ChatCompletion(context.Background(), ChatRequest{Model: "nope"})
	assert.ErrorContains(t, err, "status 404")
}

func TestOpenAIProvider_EmbeddingOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small",
			"data":[{"object":"embedding","index":1,"embedding":[0,1]},{"object":"embedding","index":0,"embedding":[1,0]}],
			"usage":{"prompt_tokens":4,"total_tokens":4}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProviderWithBaseURL("test-key", srv.URL)
	resp, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{Input: []string{"first", "second"}})
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0}, resp.Embeddings[0])
	assert.Equal(t, []float32{0, 1}, resp.Embeddings[1])
	assert.Equal(t, 4, resp.Tokens)
}

func TestCalculateCost(t *testing.T) {
	assert.InDelta(t, 0.002, CalculateCost("gpt-3.5-turbo", 1000, 1000), 1e-9)
	assert.Zero(t, CalculateCost("llama3", 1000, 1000))
}
