package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"SERVER_PORT", "DATABASE_URL", "SUPABASE_URL", "SUPABASE_SERVICE_KEY", "SUPABASE_ANON_KEY",
		"STORAGE_BACKEND", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "OLLAMA_URL", "LLM_CHAT_PROVIDER",
		"LLM_EMBEDDING_PROVIDER", "CHUNK_SIZE", "CORS_ALLOWED_ORIGINS", "CHUNK_OVERLAP", "RETRIEVAL_TOP_K", "GCS_BUCKET",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, 200, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, int64(50<<20), cfg.Ingest.MaxUploadBytes)
	assert.Equal(t, 2, cfg.Retrieval.TopK)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, "uploads", cfg.Storage.Prefix)
	assert.Equal(t, "gpt-3.5-turbo", cfg.LLM.ChatModel)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbeddingModel)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoad_AllowedOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173, https://app.example.com ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:5173", "https://app.example.com"}, cfg.Server.AllowedOrigins)
}

func TestLoad_SupabaseSelectedWhenURLSet(t *testing.T) {
	clearEnv(t)
	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "supabase", cfg.Storage.Backend)
	assert.Equal(t, "anon", cfg.Storage.SupabaseKey)
}

func TestLoad_InvalidInt(t *testing.T) {
	clearEnv(t)
	t.Setenv("CHUNK_SIZE", "large")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid CHUNK_SIZE")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing openai key",
			env:     map[string]string{},
			wantErr: "OPENAI_API_KEY",
		},
		{
			name: "ok with memory storage",
			env:  map[string]string{"OPENAI_API_KEY": "sk-test"},
		},
		{
			name:    "gcs needs bucket",
			env:     map[string]string{"OPENAI_API_KEY": "sk-test", "STORAGE_BACKEND": "gcs"},
			wantErr: "GCS_BUCKET",
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"OPENAI_API_KEY": "sk-test", "STORAGE_BACKEND": "ftp"},
			wantErr: "unknown STORAGE_BACKEND",
		},
		{
			name:    "overlap too large",
			env:     map[string]string{"OPENAI_API_KEY": "sk-test", "CHUNK_SIZE": "100", "CHUNK_OVERLAP": "100"},
			wantErr: "CHUNK_OVERLAP",
		},
		{
			name: "anthropic chat with ollama embeddings",
			env: map[string]string{
				"LLM_CHAT_PROVIDER": "anthropic", "ANTHROPIC_API_KEY": "key",
				"LLM_EMBEDDING_PROVIDER": "ollama", "OLLAMA_URL": "http://localhost:11434",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Load()
			require.NoError(t, err)

			err = cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
