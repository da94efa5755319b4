package mock

import (
	"context"
	"strings"
	"sync"
)

// Prompt is one recorded Complete call.
type Prompt struct {
	System string
	User   string
}

// Completer answers with the context section of the user prompt unless
// CompleteFunc is set.
type Completer struct {
	CompleteFunc func(ctx context.Context, system, user string) (string, error)

	mu      sync.Mutex
	prompts []Prompt
}

func NewCompleter() *Completer {
	return &Completer{}
}

func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	c.mu.Lock()
	c.prompts = append(c.prompts, Prompt{System: system, User: user})
	fn := c.CompleteFunc
	c.mu.Unlock()

	if fn != nil {
		return fn(ctx, system, user)
	}
	answer := strings.TrimPrefix(user, "Context: ")
	if i := strings.Index(answer, "\n\nQuestion: "); i >= 0 {
		answer = answer[:i]
	}
	return strings.TrimSpace(answer), nil
}

func (c *Completer) Prompts() []Prompt {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Prompt, len(c.prompts))
	copy(out, c.prompts)
	return out
}
