package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nikhilbhutani/docqa/internal/cache"
	"github.com/nikhilbhutani/docqa/internal/models"
)

const (
	keyPrefix = "upload:progress:"
	// Channel carries every update as a JSON UploadProgress.
	Channel    = "upload:progress"
	defaultTTL = time.Hour
)

// RedisTracker stores progress in Redis so api and worker processes share it.
type RedisTracker struct {
	cache  *cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

func NewRedisTracker(c *cache.Cache, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisTracker{
		cache:  c,
		ttl:    ttl,
		logger: slog.Default().With("component", "progress"),
	}
}

func (t *RedisTracker) OnProgress(ctx context.Context, fileName string, percent int, status string) {
	p := models.UploadProgress{
		FileName:  fileName,
		Progress:  percent,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}
	if err := t.cache.Set(ctx, keyPrefix+fileName, p, t.ttl); err != nil {
		t.logger.Warn("store progress", "file", fileName, "error", err)
		return
	}
	if err := t.cache.Publish(ctx, Channel, p); err != nil {
		t.logger.Warn("publish progress", "file", fileName, "error", err)
	}
}

func (t *RedisTracker) Get(ctx context.Context, fileName string) (*models.UploadProgress, error) {
	var p models.UploadProgress
	err := t.cache.Get(ctx, keyPrefix+fileName, &p)
	if errors.Is(err, cache.ErrMiss) {
		return nil, ErrUnknown
	}
	if err != nil {
		return nil, fmt.Errorf("read progress: %w", err)
	}
	return &p, nil
}

// Subscribe follows Channel and calls l for every update published by any
// process. l runs on the subscription goroutine.
func (t *RedisTracker) Subscribe(l Listener) func() {
	ctx, cancel := context.WithCancel(context.Background())
	sub := t.cache.Subscribe(ctx, Channel)

	confirmCtx, confirmCancel := context.WithTimeout(ctx, 5*time.Second)
	if _, err := sub.Receive(confirmCtx); err != nil {
		t.logger.Warn("subscribe progress", "error", err)
	}
	confirmCancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range sub.Channel() {
			var p models.UploadProgress
			if err := json.Unmarshal([]byte(msg.Payload), &p); err != nil {
				t.logger.Warn("decode progress", "error", err)
				continue
			}
			l(p)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			sub.Close()
			<-done
		})
	}
}
