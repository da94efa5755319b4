// Package app assembles the services shared by the api, worker and CLI
// binaries, picking an adapter for each store from the configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nikhilbhutani/docqa/internal/api"
	"github.com/nikhilbhutani/docqa/internal/api/handlers"
	"github.com/nikhilbhutani/docqa/internal/cache"
	"github.com/nikhilbhutani/docqa/internal/config"
	"github.com/nikhilbhutani/docqa/internal/database"
	"github.com/nikhilbhutani/docqa/internal/document"
	"github.com/nikhilbhutani/docqa/internal/embedding"
	"github.com/nikhilbhutani/docqa/internal/llm"
	"github.com/nikhilbhutani/docqa/internal/metadata"
	"github.com/nikhilbhutani/docqa/internal/progress"
	"github.com/nikhilbhutani/docqa/internal/queue"
	"github.com/nikhilbhutani/docqa/internal/rag"
	"github.com/nikhilbhutani/docqa/internal/storage"
	"github.com/nikhilbhutani/docqa/internal/vectorstore"
	"github.com/nikhilbhutani/docqa/pkg/chunker"
)

const connectTimeout = 5 * time.Second

type App struct {
	Config    *config.Config
	DB        *pgxpool.Pool
	Redis     *redis.Client
	Queue     *queue.Client
	Blobs     storage.BlobStore
	Documents *document.Service
	Remover   *document.Remover
	Pipeline  *rag.Pipeline
	Progress  progress.Feed

	closers []func() error
}

// New connects to every configured backend. PostgreSQL and Redis are
// optional: when they cannot be reached the in-memory stores and tracker
// are used instead.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	meta, index := a.connectDatabase(ctx)
	tracker := a.connectRedis(ctx)

	blobs, err := a.openBlobStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Blobs = blobs

	gw := llm.NewGateway(cfg.LLM)
	embedder := embedding.NewService(gw, cfg.LLM.EmbeddingProvider, cfg.LLM.EmbeddingModel)
	completer := llm.NewCompleter(gw, cfg.LLM.ChatProvider, cfg.LLM.ChatModel)

	a.Documents = document.NewService(blobs, meta, index, embedder, document.NewTextExtractor(),
		document.WithProgress(tracker),
		document.WithPrefix(cfg.Storage.Prefix),
		document.WithChunkOptions(chunker.ChunkOptions{
			ChunkSize:    cfg.Ingest.ChunkSize,
			ChunkOverlap: cfg.Ingest.ChunkOverlap,
		}),
	)
	a.Remover = document.NewRemover(blobs, meta, index, cfg.Storage.Prefix)
	a.Pipeline = rag.NewPipeline(index, embedder, completer, cfg.Retrieval.TopK)
	return a, nil
}

func (a *App) connectDatabase(ctx context.Context) (metadata.Store, vectorstore.Index) {
	if a.Config.Database.URL == "" {
		slog.Warn("DATABASE_URL not set, using in-memory metadata and vector stores")
		return metadata.NewMemoryStore(), vectorstore.NewMemoryStore()
	}

	db, err := database.NewPool(ctx, a.Config.Database, connectTimeout)
	if err != nil {
		slog.Warn("database unavailable, using in-memory metadata and vector stores", "error", err)
		return metadata.NewMemoryStore(), vectorstore.NewMemoryStore()
	}
	if err := database.RunMigrations(ctx, db, database.Migrations(a.Config.Database.MigrationsPath)); err != nil {
		slog.Warn("migrations failed, using in-memory metadata and vector stores", "error", err)
		db.Close()
		return metadata.NewMemoryStore(), vectorstore.NewMemoryStore()
	}

	a.DB = db
	a.closers = append(a.closers, func() error { db.Close(); return nil })
	return metadata.NewPostgresStore(db), vectorstore.NewPgVectorStore(db)
}

func (a *App) connectRedis(ctx context.Context) progress.Observer {
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unavailable, progress kept in memory and reprocessing runs inline", "error", err)
		rdb.Close()
		tracker := progress.NewTracker()
		a.Progress = tracker
		return tracker
	}

	a.Redis = rdb
	a.Queue = queue.NewClient(a.Config.Redis)
	a.closers = append(a.closers, a.Queue.Close, rdb.Close)

	tracker := progress.NewRedisTracker(cache.NewCache(rdb), 0)
	a.Progress = tracker
	return tracker
}

func (a *App) openBlobStore(ctx context.Context) (storage.BlobStore, error) {
	sc := a.Config.Storage
	switch sc.Backend {
	case "supabase":
		return storage.NewSupabaseStorage(sc.SupabaseURL, sc.SupabaseKey, sc.Bucket), nil
	case "gcs":
		gcs, err := storage.NewGCSStore(ctx, sc.GCSBucket)
		if err != nil {
			return nil, fmt.Errorf("open gcs bucket: %w", err)
		}
		a.closers = append(a.closers, gcs.Close)
		return gcs, nil
	case "memory":
		slog.Warn("using in-memory blob store, uploads are lost on restart")
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
}

// Handler returns the HTTP surface over the app's services.
func (a *App) Handler() http.Handler {
	checks := map[string]handlers.Check{}
	if a.DB != nil {
		checks["database"] = a.DB.Ping
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}

	deps := api.Deps{
		Documents:      a.Documents,
		Remover:        a.Remover,
		Pipeline:       a.Pipeline,
		Progress:       a.Progress,
		Checks:         checks,
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		MaxUploadBytes: a.Config.Ingest.MaxUploadBytes,
	}
	if a.Queue != nil {
		deps.Queue = a.Queue
	}
	return api.NewRouter(deps).Setup()
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
