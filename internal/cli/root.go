// Package cli implements the docqa command line client. Commands run the
// ingestion, retrieval and deletion services in-process.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/docqa/internal/document"
	"github.com/nikhilbhutani/docqa/internal/progress"
	"github.com/nikhilbhutani/docqa/internal/rag"
)

// Services are the collaborators the commands drive.
type Services struct {
	Documents *document.Service
	Remover   *document.Remover
	Pipeline  *rag.Pipeline
	Progress  progress.Feed
}

// Opener builds Services on first use. The caller owns their lifetime.
type Opener func(ctx context.Context) (*Services, error)

type runner struct {
	open     Opener
	services *Services
}

func (r *runner) get(ctx context.Context) (*Services, error) {
	if r.services != nil {
		return r.services, nil
	}
	if r.open == nil {
		return nil, errors.New("services not configured")
	}
	svc, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	r.services = svc
	return svc, nil
}

// NewRootCommand returns the docqa command tree.
func NewRootCommand(open Opener) *cobra.Command {
	r := &runner{open: open}

	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Upload documents and ask questions about them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newUploadCmd(r),
		newQueryCmd(r),
		newListCmd(r),
		newRemoveCmd(r),
		newReprocessCmd(r),
		newProgressCmd(r),
	)
	return root
}
