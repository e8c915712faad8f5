package answer

import (
	"context"

	"github.com/kailas-cloud/healthrag/internal/domain/chunk"
	"github.com/kailas-cloud/healthrag/internal/usecase/generation"
)

// Retriever returns the chunks most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]chunk.Chunk, error)
}

// Assembler builds the grounded prompt or signals that generation should be skipped.
type Assembler interface {
	Assemble(chunks []chunk.Chunk, query string) (prompt string, skip bool)
}

// Gateway generates and classifies an answer.
type Gateway interface {
	Generate(ctx context.Context, prompt string) (generation.Reply, error)
}
