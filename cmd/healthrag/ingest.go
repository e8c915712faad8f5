package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrag/internal/repository/corpus"
	"github.com/kailas-cloud/healthrag/internal/usecase/ingest"
)

func newIngestCmd(a *app) *cobra.Command {
	var manifest, out string

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk the corpus documents into corpus_chunks.json",
		Long: `Reads the corpus manifest, loads every listed document (.txt, .md or .pdf),
collapses whitespace and splits the text into overlapping word windows.
The ordered chunk set is written as JSON for the build command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if manifest == "" {
				manifest = a.cfg.Corpus.Manifest
			}
			if manifest == "" {
				return fmt.Errorf("no corpus manifest: set corpus.manifest or pass --manifest")
			}
			if out == "" {
				out = a.cfg.Corpus.ChunksPath
			}

			docs, err := corpus.LoadManifest(manifest)
			if err != nil {
				return fmt.Errorf("load manifest: %w", err)
			}

			svc, err := ingest.New(corpus.NewLoader(), a.cfg.Corpus.ChunkSize, a.cfg.Corpus.ChunkOverlap, a.logger)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			chunks, err := svc.Run(cmd.Context(), docs)
			if err != nil {
				return err //nolint:wrapcheck // already wrapped
			}

			if err := corpus.WriteChunks(out, chunks); err != nil {
				return fmt.Errorf("write chunks: %w", err)
			}
			a.logger.Info("Chunks written", zap.String("path", out), zap.Int("chunks", len(chunks)))
			cmd.Printf("Wrote %d chunks from %d documents to %s\n", len(chunks), len(docs), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&manifest, "manifest", "", "corpus manifest (default: corpus.manifest)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output chunks file (default: corpus.chunks_path)")
	return cmd
}
