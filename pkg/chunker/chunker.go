package chunker

import (
	"strings"
	"unicode"
)

// Chunker splits text into overlapping rune windows. Input is read as UTF-8;
// reconstruction from the chunks is exact for valid UTF-8, while each invalid
// byte comes back as U+FFFD.
type Chunker interface {
	Chunk(text string, opts ChunkOptions) []TextChunk
}

type ChunkOptions struct {
	ChunkSize    int // max chunk length in runes
	ChunkOverlap int // runes shared between neighbouring chunks
}

// TextChunk is the rune range [Start, End) of the source text.
type TextChunk struct {
	Content string
	Index   int
	Start   int
	End     int
}

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		ChunkSize:    1000,
		ChunkOverlap: 200,
	}
}

// separators are tried in order when looking for a split point.
var separators = []string{"\n\n", "\n", ". ", " "}

type recursiveChunker struct{}

func New() Chunker {
	return &recursiveChunker{}
}

func (c *recursiveChunker) Chunk(text string, opts ChunkOptions) []TextChunk {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultOptions().ChunkSize
	}
	if opts.ChunkOverlap < 0 || opts.ChunkOverlap >= opts.ChunkSize {
		opts.ChunkOverlap = 0
	}

	runes := []rune(text)
	n := len(runes)

	var chunks []TextChunk
	for start := 0; start < n; {
		end := start + opts.ChunkSize
		if end >= n {
			end = n
		} else {
			end = splitPoint(runes, start, end)
		}

		chunks = append(chunks, TextChunk{
			Content: string(runes[start:end]),
			Index:   len(chunks),
			Start:   start,
			End:     end,
		})
		if end == n {
			break
		}

		next := overlapStart(runes, end-opts.ChunkOverlap, end)
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// splitPoint returns the cut position for the window [start, limit). It cuts
// just after the last preferred separator found in the back half of the
// window, or at limit when none is present.
func splitPoint(runes []rune, start, limit int) int {
	minEnd := start + (limit-start)/2
	window := string(runes[minEnd:limit])

	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		cut := minEnd + len([]rune(window[:idx+len(sep)]))
		if cut > start {
			return cut
		}
	}
	return limit
}

// overlapStart moves pos forward to the next word boundary before end so the
// following chunk does not begin mid-word.
func overlapStart(runes []rune, pos, end int) int {
	if pos <= 0 {
		return pos
	}
	for i := pos; i < end; i++ {
		if unicode.IsSpace(runes[i-1]) && !unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return pos
}
