// Package retrieval finds the chunks most similar to a query.
package retrieval

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrag/internal/domain"
	"github.com/kailas-cloud/healthrag/internal/domain/chunk"
	"github.com/kailas-cloud/healthrag/internal/metrics"
	"github.com/kailas-cloud/healthrag/internal/repository/indexstore"
)

// DefaultTopK is used when a caller passes top_k <= 0.
const DefaultTopK = 3

// Config tunes retrieval.
type Config struct {
	// TopK is the default result count. <= 0 selects DefaultTopK.
	TopK int
	// MinScore drops hits scoring below it. 0 disables the filter.
	MinScore float32
	// Model is the configured embedding model; it must match the one the index was built with.
	Model string
}

// Hit is a retrieved chunk with its similarity score and index row.
type Hit struct {
	Chunk    chunk.Chunk
	Score    float32
	Position int
}

// Service answers similarity queries against a loaded snapshot.
// The snapshot is read-only after New, so one Service can serve concurrent queries.
type Service struct {
	embedder Embedder
	snap     *indexstore.Snapshot
	cfg      Config
	logger   *zap.Logger
}

// New checks the snapshot against the configuration and returns a ready Service.
func New(embedder Embedder, snap *indexstore.Snapshot, cfg Config, logger *zap.Logger) (*Service, error) {
	if snap == nil || snap.Index == nil {
		return nil, domain.NewIndexLoadError("", fmt.Errorf("no index snapshot"))
	}
	if snap.Index.Len() != len(snap.Chunks) {
		return nil, domain.NewIndexLoadError(snap.Generation,
			fmt.Errorf("index has %d vectors but metadata has %d records", snap.Index.Len(), len(snap.Chunks)))
	}
	if cfg.Model != "" && snap.Manifest.Embedder.Model != "" && cfg.Model != snap.Manifest.Embedder.Model {
		return nil, domain.NewIndexLoadError(snap.Generation,
			fmt.Errorf("index was built with embedding model %q but %q is configured; rebuild the index",
				snap.Manifest.Embedder.Model, cfg.Model))
	}
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Service{embedder: embedder, snap: snap, cfg: cfg, logger: logger}, nil
}

// Verify embeds a probe query and checks that its dimension matches the index.
// Call once at startup; a mismatch is fatal.
func (s *Service) Verify(ctx context.Context) error {
	res, err := s.embedder.Embed(ctx, "health")
	if err != nil {
		return fmt.Errorf("probe embedding: %w", err)
	}
	if got, want := len(res.Embedding), s.snap.Index.Dim(); got != want {
		return fmt.Errorf("%w: embedder produces %d dimensions, index has %d",
			domain.ErrDimensionMismatch, got, want)
	}
	return nil
}

// Size returns the number of indexed chunks.
func (s *Service) Size() int { return len(s.snap.Chunks) }

// Search returns up to topK hits ordered by descending score; equal scores keep index order.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, domain.ErrEmptyQuestion
	}
	if topK <= 0 {
		topK = s.cfg.TopK
	}
	start := time.Now()
	defer func() { metrics.RetrievalDuration.Observe(time.Since(start).Seconds()) }()

	res, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	scores, ids, err := s.snap.Index.Search(res.Embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	hits := make([]Hit, 0, len(ids))
	for i, id := range ids {
		if id < 0 || id >= len(s.snap.Chunks) {
			s.logger.Warn("Index returned out-of-range position", zap.Int("position", id))
			continue
		}
		if s.cfg.MinScore > 0 && scores[i] < s.cfg.MinScore {
			continue
		}
		hits = append(hits, Hit{Chunk: s.snap.Chunks[id], Score: scores[i], Position: id})
	}

	s.logger.Debug("Retrieved chunks",
		zap.Int("top_k", topK),
		zap.Int("hits", len(hits)),
		zap.Duration("duration", time.Since(start)),
	)
	return hits, nil
}

// Retrieve is Search without scores.
func (s *Service) Retrieve(ctx context.Context, query string, topK int) ([]chunk.Chunk, error) {
	hits, err := s.Search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	out := make([]chunk.Chunk, len(hits))
	for i := range hits {
		out[i] = hits[i].Chunk
	}
	return out, nil
}
