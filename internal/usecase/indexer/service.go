// Package indexer builds the flat similarity index from a chunk set.
package indexer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrag/internal/domain"
	"github.com/kailas-cloud/healthrag/internal/domain/chunk"
	"github.com/kailas-cloud/healthrag/internal/index"
	"github.com/kailas-cloud/healthrag/internal/repository/indexstore"
)

// Options describe the build for the manifest.
type Options struct {
	Embedder     indexstore.EmbedderInfo
	ChunkSize    int
	ChunkOverlap int
}

// Result summarizes a committed build.
type Result struct {
	Generation string
	Count      int
	Dimension  int
	Tokens     int
	Duration   time.Duration
}

// Service builds and persists the index.
type Service struct {
	embedder Embedder
	store    Store
	opts     Options
	logger   *zap.Logger
}

// New creates an index builder. embedder must normalize its output.
func New(embedder Embedder, store Store, opts Options, logger *zap.Logger) *Service {
	return &Service{embedder: embedder, store: store, opts: opts, logger: logger}
}

// Build embeds every chunk text in order, adds the vectors to a new flat index
// and commits index, metadata and manifest together. Row i of the index is chunks[i].
func (s *Service) Build(ctx context.Context, chunks []chunk.Chunk) (Result, error) {
	if len(chunks) == 0 {
		return Result{}, fmt.Errorf("build index: %w", domain.ErrEmptyCorpus)
	}
	start := time.Now()

	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Text
	}

	emb, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return Result{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(emb.Embeddings) != len(chunks) {
		return Result{}, fmt.Errorf("embed chunks: %w: got %d vectors for %d chunks",
			domain.ErrEmbeddingProviderError, len(emb.Embeddings), len(chunks))
	}

	dim := len(emb.Embeddings[0])
	idx, err := index.NewFlat(dim)
	if err != nil {
		return Result{}, fmt.Errorf("create index: %w", err)
	}
	if err := idx.Add(emb.Embeddings); err != nil {
		return Result{}, fmt.Errorf("add vectors: %w", err)
	}

	gen, err := s.store.Save(ctx, idx, chunks, indexstore.Manifest{
		Embedder:     s.opts.Embedder,
		ChunkSize:    s.opts.ChunkSize,
		ChunkOverlap: s.opts.ChunkOverlap,
	})
	if err != nil {
		return Result{}, fmt.Errorf("persist index: %w", err)
	}

	res := Result{
		Generation: gen,
		Count:      idx.Len(),
		Dimension:  dim,
		Tokens:     emb.TotalTokens,
		Duration:   time.Since(start),
	}
	s.logger.Info("Index built",
		zap.String("generation", gen),
		zap.Int("count", res.Count),
		zap.Int("dimension", res.Dimension),
		zap.String("embedder", s.opts.Embedder.Provider+"/"+s.opts.Embedder.Model),
		zap.Int("tokens", res.Tokens),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}
