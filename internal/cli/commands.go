package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/docqa/internal/progress"
	"github.com/nikhilbhutani/docqa/internal/rag"
)

func newUploadCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "upload [path]",
		Short: "Ingest a PDF or text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}
			svc, err := r.get(cmd.Context())
			if err != nil {
				return err
			}
			fileName, err := svc.Documents.Upload(cmd.Context(), data, filepath.Base(args[0]))
			if err != nil {
				return err
			}
			cmd.Printf("Uploaded %s as %s\n", args[0], fileName)
			return nil
		},
	}
}

func newQueryCmd(r *runner) *cobra.Command {
	var (
		book       string
		showSource bool
	)
	cmd := &cobra.Command{
		Use:   "query [question]",
		Short: "Ask a question against the indexed documents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.get(cmd.Context())
			if err != nil {
				return err
			}
			resp, err := svc.Pipeline.Query(cmd.Context(), rag.QueryRequest{Query: args[0], BookName: book})
			if err != nil {
				return err
			}
			cmd.Println(resp.Answer)
			cmd.Printf("\nSource: %s\n", resp.Source)
			if showSource {
				for i, c := range resp.Context {
					cmd.Printf("\n[%d] %s p.%d\n%s\n", i+1, c.Metadata.Source, c.Metadata.Page, c.Content)
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&book, "book", "b", "", "Restrict retrieval to chunks of one original file name")
	cmd.Flags().BoolVar(&showSource, "context", false, "Print the retrieved passages")
	return cmd
}

func newListCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents, vectors or stored files",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "documents",
		Short: "List document metadata, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.get(cmd.Context())
			if err != nil {
				return err
			}
			docs, err := svc.Documents.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			if len(docs) == 0 {
				cmd.Println("No documents found")
				return nil
			}
			for _, d := range docs {
				cmd.Printf("  %s  %s  %s  %d bytes\n", d.ID, d.UploadDate.Format("2006-01-02 15:04:05"), d.FileName, d.FileSize)
			}
			cmd.Printf("\nTotal: %d documents\n", len(docs))
			return nil
		},
	})

	var start, end int
	vectors := &cobra.Command{
		Use:   "vectors",
		Short: "List indexed chunks in an inclusive id range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.get(cmd.Context())
			if err != nil {
				return err
			}
			page, err := svc.Documents.ListVectors(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			for _, v := range page.Data {
				cmd.Printf("  %d  %s p.%d  %q\n", v.ID, v.Metadata.Source, v.Metadata.Page, preview(v.Content, 60))
			}
			cmd.Printf("\nShowing %d of %d chunks\n", len(page.Data), page.TotalSize)
			return nil
		},
	}
	vectors.Flags().IntVar(&start, "start", 0, "First position")
	vectors.Flags().IntVar(&end, "end", 99, "Last position (inclusive)")
	cmd.AddCommand(vectors)

	cmd.AddCommand(&cobra.Command{
		Use:   "files",
		Short: "List stored upload blobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.get(cmd.Context())
			if err != nil {
				return err
			}
			files, err := svc.Documents.ListFiles(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range files {
				cmd.Printf("  %s  %d bytes\n", f.Name, f.Size)
			}
			cmd.Printf("\nTotal: %d files\n", len(files))
			return nil
		},
	})
	return cmd
}

func newRemoveCmd(r *runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove",
		Short: "Delete documents, files or vectors",
	}

	sub := []struct {
		use, short string
		run        func(ctx context.Context, s *Services, name string) error
	}{
		{"document [original-name]", "Delete metadata rows for an original file name", func(ctx context.Context, s *Services, n string) error {
			return s.Remover.RemoveDocument(ctx, n)
		}},
		{"file [file-name]", "Delete a stored upload blob", func(ctx context.Context, s *Services, n string) error {
			return s.Remover.RemoveFile(ctx, n)
		}},
		{"vectors [doc-id]", "Delete every chunk of a document", func(ctx context.Context, s *Services, n string) error {
			return s.Remover.RemoveVector(ctx, n)
		}},
		{"all [file-name]", "Delete blob, metadata and vectors of a file", func(ctx context.Context, s *Services, n string) error {
			return s.Remover.RemoveDocFileVectors(ctx, n)
		}},
	}

	for _, sc := range sub {
		sc := sc
		cmd.AddCommand(&cobra.Command{
			Use:   sc.use,
			Short: sc.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				svc, err := r.get(cmd.Context())
				if err != nil {
					return err
				}
				if err := sc.run(cmd.Context(), svc, args[0]); err != nil {
					return err
				}
				cmd.Printf("Removed %s\n", args[0])
				return nil
			},
		})
	}
	return cmd
}

func newReprocessCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "reprocess [doc-id]",
		Short: "Rebuild the vectors of a document from its stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.get(cmd.Context())
			if err != nil {
				return err
			}
			n, err := svc.Documents.Reprocess(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Printf("Indexed %d chunks for %s\n", n, args[0])
			return nil
		},
	}
}

func newProgressCmd(r *runner) *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "progress [file-name]",
		Short: "Show the last ingestion checkpoint of an upload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := r.get(cmd.Context())
			if err != nil {
				return err
			}
			if follow {
				for p := range progress.Watch(cmd.Context(), svc.Progress, args[0]) {
					cmd.Printf("%s: %d%% (%s)\n", p.FileName, p.Progress, p.Status)
				}
				return nil
			}

			p, err := svc.Progress.Get(cmd.Context(), args[0])
			if errors.Is(err, progress.ErrUnknown) {
				cmd.Printf("No progress recorded for %s\n", args[0])
				return nil
			}
			if err != nil {
				return err
			}
			cmd.Printf("%s: %d%% (%s)\n", p.FileName, p.Progress, p.Status)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream updates until the upload completes or fails")
	return cmd
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
