package indexer

import (
	"context"

	"github.com/kailas-cloud/healthrag/internal/domain"
	"github.com/kailas-cloud/healthrag/internal/domain/chunk"
	"github.com/kailas-cloud/healthrag/internal/index"
	"github.com/kailas-cloud/healthrag/internal/repository/indexstore"
)

// Embedder vectorizes chunk texts. The same configured chain must serve queries.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Store persists a built index together with its metadata.
type Store interface {
	Save(ctx context.Context, idx *index.Flat, chunks []chunk.Chunk, m indexstore.Manifest) (string, error)
}
