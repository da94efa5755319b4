package llm

import (
	"context"
	"fmt"
)

// Completer turns a system and user prompt into answer text.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type gatewayCompleter struct {
	gw       Gateway
	provider string
	model    string
}

// NewCompleter binds a gateway to one provider and model. An empty provider
// uses the gateway's chat default.
func NewCompleter(gw Gateway, provider, model string) Completer {
	return &gatewayCompleter{gw: gw, provider: provider, model: model}
}

func (c *gatewayCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	var msgs []Message
	if system != "" {
		msgs = append(msgs, Message{Role: "system", Content: system})
	}
	msgs = append(msgs, Message{Role: "user", Content: user})

	resp, err := c.gw.Chat(ctx, ChatRequest{
		Provider: c.provider,
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	return resp.Content, nil
}
