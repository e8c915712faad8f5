package retrieval

import (
	"context"

	"github.com/kailas-cloud/healthrag/internal/domain"
)

// Embedder vectorizes queries with the same chain used to build the index.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}
