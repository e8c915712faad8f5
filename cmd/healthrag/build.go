package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/healthrag/internal/repository/corpus"
	"github.com/kailas-cloud/healthrag/internal/repository/indexstore"
	embeddinguc "github.com/kailas-cloud/healthrag/internal/usecase/embedding"
	"github.com/kailas-cloud/healthrag/internal/usecase/indexer"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		chunksPath string
		quiet      bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Embed the chunk set and persist the similarity index",
		Long: `Embeds every chunk with the configured embedder, builds a flat inner-product
index and commits index, metadata and manifest together into a new generation
under index.dir. The previous generation stays readable until the switch.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if chunksPath == "" {
				chunksPath = a.cfg.Corpus.ChunksPath
			}
			chunks, err := corpus.ReadChunks(chunksPath)
			if err != nil {
				return fmt.Errorf("read chunks: %w", err)
			}

			progress := embeddinguc.WithProgress(func(done, total int) {
				if !quiet {
					fmt.Fprintf(cmd.ErrOrStderr(), "Embedded %d/%d chunks\n", done, total)
				}
			})
			chain, err := buildEmbedder(cmd.Context(), a.cfg, a.logger, progress)
			if err != nil {
				return err
			}
			defer chain.Close()

			builder := indexer.New(chain, indexstore.New(a.cfg.Index.Dir, a.logger), indexer.Options{
				Embedder:     chain.info,
				ChunkSize:    a.cfg.Corpus.ChunkSize,
				ChunkOverlap: a.cfg.Corpus.ChunkOverlap,
			}, a.logger)

			res, err := builder.Build(cmd.Context(), chunks)
			if err != nil {
				return err //nolint:wrapcheck // already wrapped
			}
			cmd.Printf("Indexed %d chunks (dim %d) into %s/%s in %s\n",
				res.Count, res.Dimension, a.cfg.Index.Dir, res.Generation, res.Duration.Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&chunksPath, "chunks", "", "chunks file (default: corpus.chunks_path)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "do not report embedding progress")
	return cmd
}
