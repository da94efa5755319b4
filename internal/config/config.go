package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	LLM       LLMConfig
	Storage   StorageConfig
	Ingest    IngestConfig
	Retrieval RetrievalConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL            string
	MaxConns       int
	MinConns       int
	MigrationsPath string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type LLMConfig struct {
	OpenAIKey         string
	AnthropicKey      string
	OllamaURL         string
	ChatProvider      string
	ChatModel         string
	EmbeddingProvider string
	EmbeddingModel    string
}

type StorageConfig struct {
	Backend     string // "supabase", "gcs" or "memory"
	SupabaseURL string
	SupabaseKey string
	Bucket      string
	GCSBucket   string
	Prefix      string
}

type IngestConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	MaxUploadBytes int64
}

type RetrievalConfig struct {
	TopK int
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json or text
}

func Load() (*Config, error) {
	port, err := getEnvInt("SERVER_PORT", 3000)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}

	maxConns, err := getEnvInt("DB_MAX_CONNS", 20)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MAX_CONNS: %w", err)
	}

	minConns, err := getEnvInt("DB_MIN_CONNS", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_MIN_CONNS: %w", err)
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	chunkSize, err := getEnvInt("CHUNK_SIZE", 1000)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_SIZE: %w", err)
	}

	chunkOverlap, err := getEnvInt("CHUNK_OVERLAP", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid CHUNK_OVERLAP: %w", err)
	}

	maxUpload, err := getEnvInt("MAX_UPLOAD_BYTES", 50<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_UPLOAD_BYTES: %w", err)
	}

	topK, err := getEnvInt("RETRIEVAL_TOP_K", 2)
	if err != nil {
		return nil, fmt.Errorf("invalid RETRIEVAL_TOP_K: %w", err)
	}

	supabaseURL := getEnv("SUPABASE_URL", "")
	defaultBackend := "memory"
	if supabaseURL != "" {
		defaultBackend = "supabase"
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           port,
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		},
		Database: DatabaseConfig{
			URL:            getEnv("DATABASE_URL", ""),
			MaxConns:       maxConns,
			MinConns:       minConns,
			MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		LLM: LLMConfig{
			OpenAIKey:         getEnv("OPENAI_API_KEY", ""),
			AnthropicKey:      getEnv("ANTHROPIC_API_KEY", ""),
			OllamaURL:         getEnv("OLLAMA_URL", ""),
			ChatProvider:      getEnv("LLM_CHAT_PROVIDER", "openai"),
			ChatModel:         getEnv("LLM_CHAT_MODEL", "gpt-3.5-turbo"),
			EmbeddingProvider: getEnv("LLM_EMBEDDING_PROVIDER", "openai"),
			EmbeddingModel:    getEnv("LLM_EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(getEnv("STORAGE_BACKEND", defaultBackend)),
			SupabaseURL: supabaseURL,
			SupabaseKey: getEnv("SUPABASE_SERVICE_KEY", getEnv("SUPABASE_ANON_KEY", "")),
			Bucket:      getEnv("STORAGE_BUCKET", "documents"),
			GCSBucket:   getEnv("GCS_BUCKET", ""),
			Prefix:      getEnv("STORAGE_PREFIX", "uploads"),
		},
		Ingest: IngestConfig{
			ChunkSize:      chunkSize,
			ChunkOverlap:   chunkOverlap,
			MaxUploadBytes: int64(maxUpload),
		},
		Retrieval: RetrievalConfig{
			TopK: topK,
		},
		Log: LogConfig{
			Level:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format: strings.ToLower(getEnv("LOG_FORMAT", "json")),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Validate reports configuration that cannot work at all. Missing optional
// backends (database, redis) are tolerated and replaced by in-memory stores.
func (c *Config) Validate() error {
	var missing []string
	switch c.LLM.ChatProvider {
	case "openai":
		if c.LLM.OpenAIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	case "anthropic":
		if c.LLM.AnthropicKey == "" {
			missing = append(missing, "ANTHROPIC_API_KEY")
		}
	case "ollama":
		if c.LLM.OllamaURL == "" {
			missing = append(missing, "OLLAMA_URL")
		}
	default:
		return fmt.Errorf("unknown LLM_CHAT_PROVIDER %q", c.LLM.ChatProvider)
	}
	if c.LLM.EmbeddingProvider == "openai" && c.LLM.OpenAIKey == "" && !contains(missing, "OPENAI_API_KEY") {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if c.LLM.EmbeddingProvider == "ollama" && c.LLM.OllamaURL == "" && !contains(missing, "OLLAMA_URL") {
		missing = append(missing, "OLLAMA_URL")
	}

	switch c.Storage.Backend {
	case "supabase":
		if c.Storage.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if c.Storage.SupabaseKey == "" {
			missing = append(missing, "SUPABASE_SERVICE_KEY")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			missing = append(missing, "GCS_BUCKET")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required env vars: %s", strings.Join(missing, ", "))
	}
	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_SIZE (%d)", c.Ingest.ChunkOverlap, c.Ingest.ChunkSize)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}
