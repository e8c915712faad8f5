package ingest

import (
	"context"

	"github.com/kailas-cloud/healthrag/internal/domain/corpus"
)

// Loader fills in the cleaned text of a corpus document.
type Loader interface {
	Load(ctx context.Context, doc corpus.Document) (corpus.Document, error)
}
