package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nikhilbhutani/docqa/internal/document"
	"github.com/nikhilbhutani/docqa/internal/metadata"
	"github.com/nikhilbhutani/docqa/internal/mock"
	"github.com/nikhilbhutani/docqa/internal/models"
	"github.com/nikhilbhutani/docqa/internal/progress"
	"github.com/nikhilbhutani/docqa/internal/rag"
	"github.com/nikhilbhutani/docqa/internal/storage"
	"github.com/nikhilbhutani/docqa/internal/vectorstore"
)

func testServices() *Services {
	blobs := storage.NewMemoryStore()
	meta := metadata.NewMemoryStore()
	index := vectorstore.NewMemoryStore()
	embedder := mock.NewEmbedder()
	tracker := progress.NewTracker()

	return &Services{
		Documents: document.NewService(blobs, meta, index, embedder, mock.NewExtractor(), document.WithProgress(tracker)),
		Remover:   document.NewRemover(blobs, meta, index, document.DefaultPrefix),
		Pipeline:  rag.NewPipeline(index, embedder, mock.NewCompleter(), 2),
		Progress:  tracker,
	}
}

func run(t *testing.T, svc *Services, args ...string) (string, error) {
	t.Helper()
	opens := 0
	root := NewRootCommand(func(context.Context) (*Services, error) {
		opens++
		return svc, nil
	})
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	assert.LessOrEqual(t, opens, 1)
	return buf.String(), err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

var uploadedName = regexp.MustCompile(`as (\S+)`)

func TestRootCommand_HasSubcommands(t *testing.T) {
	root := NewRootCommand(nil)
	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"upload", "query", "list", "remove", "reprocess", "progress"} {
		assert.Contains(t, names, want)
	}
}

func TestUpload_RequiresExactlyOneArg(t *testing.T) {
	_, err := run(t, testServices(), "upload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestUploadQueryAndRemove(t *testing.T) {
	svc := testServices()
	path := writeFile(t, "guide.txt", "The capital of France is Paris.\fBread is baked in ovens.")

	out, err := run(t, svc, "upload", path)
	require.NoError(t, err)
	m := uploadedName.FindStringSubmatch(out)
	require.Len(t, m, 2)
	fileName := m[1]
	assert.Contains(t, fileName, "-guide.txt")

	out, err = run(t, svc, "progress", fileName)
	require.NoError(t, err)
	assert.Contains(t, out, "100% (completed)")

	out, err = run(t, svc, "query", "capital of France", "--book", "guide.txt", "--context")
	require.NoError(t, err)
	assert.Contains(t, out, "Paris")
	assert.Contains(t, out, "Source: guide.txt")
	assert.Contains(t, out, "[1] guide.txt p.1")

	out, err = run(t, svc, "list", "documents")
	require.NoError(t, err)
	assert.Contains(t, out, fileName)
	assert.Contains(t, out, "Total: 1 documents")

	out, err = run(t, svc, "list", "vectors", "--end", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "Showing 1 of 2 chunks")

	_, err = run(t, svc, "remove", "all", fileName)
	require.NoError(t, err)

	out, err = run(t, svc, "list", "files")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 0 files")

	out, err = run(t, svc, "query", "capital of France")
	require.NoError(t, err)
	assert.Contains(t, out, "Source: Unknown")
}

func TestProgress_Unknown(t *testing.T) {
	out, err := run(t, testServices(), "progress", "nothing.pdf")
	require.NoError(t, err)
	assert.Contains(t, out, "No progress recorded for nothing.pdf")
}

func TestRemove_IsIdempotent(t *testing.T) {
	svc := testServices()
	for _, sub := range []string{"document", "file", "vectors", "all"} {
		out, err := run(t, svc, "remove", sub, "missing.pdf")
		require.NoError(t, err, sub)
		assert.Contains(t, out, "Removed missing.pdf")
	}
}

func TestOpenerFailureIsReturned(t *testing.T) {
	root := NewRootCommand(func(context.Context) (*Services, error) {
		return nil, errors.New("no backends")
	})
	root.SetOut(new(bytes.Buffer))
	root.SetArgs([]string{"reprocess", "doc-1"})
	assert.EqualError(t, root.Execute(), "no backends")
}

func TestReprocess_NotFound(t *testing.T) {
	_, err := run(t, testServices(), "reprocess", "missing-id")
	assert.Error(t, err)
}

// readyFeed closes ready once a watcher has subscribed and read the current state.
type readyFeed struct {
	*progress.Tracker
	ready chan struct{}
}

func (f readyFeed) Get(ctx context.Context, fileName string) (*models.UploadProgress, error) {
	defer close(f.ready)
	return f.Tracker.Get(ctx, fileName)
}

func TestProgress_FollowPrintsUntilDone(t *testing.T) {
	svc := testServices()
	tracker := svc.Progress.(*progress.Tracker)
	feed := readyFeed{Tracker: tracker, ready: make(chan struct{})}
	svc.Progress = feed

	ctx := context.Background()
	tracker.OnProgress(ctx, "live.txt", progress.Stored, models.ProgressProcessing)

	type result struct {
		out string
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := run(t, svc, "progress", "live.txt", "--follow")
		done <- result{out, err}
	}()

	select {
	case <-feed.ready:
	case <-time.After(2 * time.Second):
		t.Fatal("progress --follow never started watching")
	}
	tracker.OnProgress(ctx, "live.txt", progress.Indexed, models.ProgressCompleted)

	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Contains(t, res.out, "live.txt: 20% (processing)")
		assert.Contains(t, res.out, "live.txt: 100% (completed)")
	case <-time.After(2 * time.Second):
		t.Fatal("progress --follow did not finish")
	}
}
