// Package progress records how far each upload has got through ingestion.
// Reporting is best-effort: observers never fail the upload they watch.
package progress

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/nikhilbhutani/docqa/internal/models"
)

// Ingestion checkpoints.
const (
	Stored    = 20
	Recorded  = 40
	Extracted = 60
	Embedded  = 80
	Indexed   = 100
)

var ErrUnknown = errors.New("no progress recorded for file")

// Observer receives checkpoint updates.
type Observer interface {
	OnProgress(ctx context.Context, fileName string, percent int, status string)
}

// Reader looks up the latest checkpoint for a file.
type Reader interface {
	Get(ctx context.Context, fileName string) (*models.UploadProgress, error)
}

// Feed is a Reader whose updates can also be followed.
type Feed interface {
	Reader
	Subscribe(l Listener) func()
}

// Nop discards all updates.
type Nop struct{}

func (Nop) OnProgress(context.Context, string, int, string) {}

// Listener is called synchronously for every update a Tracker records.
type Listener func(models.UploadProgress)

// Tracker keeps the latest state per file in memory and fans updates out to
// subscribed listeners.
type Tracker struct {
	mu        sync.RWMutex
	state     map[string]models.UploadProgress
	listeners map[int]Listener
	nextID    int
}

func NewTracker() *Tracker {
	return &Tracker{
		state:     make(map[string]models.UploadProgress),
		listeners: make(map[int]Listener),
	}
}

func (t *Tracker) OnProgress(_ context.Context, fileName string, percent int, status string) {
	p := models.UploadProgress{
		FileName:  fileName,
		Progress:  percent,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	}

	t.mu.Lock()
	t.state[fileName] = p
	listeners := make([]Listener, 0, len(t.listeners))
	for _, l := range t.listeners {
		listeners = append(listeners, l)
	}
	t.mu.Unlock()

	for _, l := range listeners {
		l(p)
	}
}

func (t *Tracker) Get(_ context.Context, fileName string) (*models.UploadProgress, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.state[fileName]
	if !ok {
		return nil, ErrUnknown
	}
	return &p, nil
}

// Subscribe registers l and returns a function that removes it.
func (t *Tracker) Subscribe(l Listener) func() {
	t.mu.Lock()
	id := t.nextID
	t.nextID++
	t.listeners[id] = l
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.listeners, id)
		t.mu.Unlock()
	}
}

// Watch streams the updates of fileName, starting with its current state when
// one is recorded. The channel closes after a completed or failed update, or
// when ctx ends.
func Watch(ctx context.Context, f Feed, fileName string) <-chan models.UploadProgress {
	updates := make(chan models.UploadProgress, 16)
	unsubscribe := f.Subscribe(func(p models.UploadProgress) {
		if p.FileName != fileName {
			return
		}
		select {
		case updates <- p:
		default:
		}
	})

	current, err := f.Get(ctx, fileName)

	out := make(chan models.UploadProgress)
	go func() {
		defer close(out)
		defer unsubscribe()

		if err == nil && !emit(ctx, out, *current) {
			return
		}
		for {
			select {
			case <-ctx.Done():
				return
			case p := <-updates:
				if !emit(ctx, out, p) {
					return
				}
			}
		}
	}()
	return out
}

// emit delivers p and reports whether watching should go on.
func emit(ctx context.Context, out chan<- models.UploadProgress, p models.UploadProgress) bool {
	select {
	case out <- p:
	case <-ctx.Done():
		return false
	}
	return p.Status != models.ProgressCompleted && p.Status != models.ProgressFailed
}
