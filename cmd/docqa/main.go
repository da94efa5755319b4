package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/nikhilbhutani/docqa/internal/app"
	"github.com/nikhilbhutani/docqa/internal/cli"
	"github.com/nikhilbhutani/docqa/internal/config"
)

func main() {
	_ = godotenv.Load()

	var a *app.App
	open := func(ctx context.Context) (*cli.Services, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		logOut := io.Discard
		if os.Getenv("DOCQA_VERBOSE") != "" {
			logOut = os.Stderr
		}
		slog.SetDefault(app.NewLogger(logOut, cfg.Log))

		a, err = app.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &cli.Services{
			Documents: a.Documents,
			Remover:   a.Remover,
			Pipeline:  a.Pipeline,
			Progress:  a.Progress,
		}, nil
	}

	err := cli.NewRootCommand(open).ExecuteContext(context.Background())
	if a != nil {
		a.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
