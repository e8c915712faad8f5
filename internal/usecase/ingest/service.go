// Package ingest turns corpus documents into the ordered chunk set.
package ingest

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrag/internal/domain"
	"github.com/kailas-cloud/healthrag/internal/domain/chunk"
	"github.com/kailas-cloud/healthrag/internal/domain/corpus"
)

// Service chunks documents with fixed window parameters.
type Service struct {
	loader  Loader
	size    int
	overlap int
	logger  *zap.Logger
}

// New validates the window parameters and creates the service.
func New(loader Loader, size, overlap int, logger *zap.Logger) (*Service, error) {
	if err := chunk.Validate(size, overlap); err != nil {
		return nil, err //nolint:wrapcheck // already wraps ErrConfig
	}
	return &Service{loader: loader, size: size, overlap: overlap, logger: logger}, nil
}

// Run loads and chunks every document in manifest order.
// Chunks keep document order, and chunk_id restarts at 0 for each document.
// Any load failure aborts the run.
func (s *Service) Run(ctx context.Context, docs []corpus.Document) ([]chunk.Chunk, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("ingest: %w", domain.ErrEmptyCorpus)
	}

	var out []chunk.Chunk
	for i := range docs {
		doc, err := s.loader.Load(ctx, docs[i])
		if err != nil {
			return nil, fmt.Errorf("ingest document %d: %w", i, err)
		}

		chunks, err := chunk.Split(doc, s.size, s.overlap)
		if err != nil {
			return nil, fmt.Errorf("chunk %q: %w", doc.Title, err)
		}
		if len(chunks) == 0 {
			s.logger.Warn("Document has no text", zap.String("title", doc.Title), zap.String("path", doc.Path))
			continue
		}

		s.logger.Info("Document chunked",
			zap.String("title", doc.Title),
			zap.Int("chunks", len(chunks)),
		)
		out = append(out, chunks...)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("ingest: %w: no document produced text", domain.ErrEmptyCorpus)
	}
	s.logger.Info("Corpus ingested", zap.Int("documents", len(docs)), zap.Int("chunks", len(out)))
	return out, nil
}
