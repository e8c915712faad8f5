package answer

import "github.com/kailas-cloud/healthrag/internal/domain/chunk"

// Outcome classifies how a query was resolved. Used for logging and metrics.
type Outcome string

const (
	// Answered means the generator produced a grounded answer.
	Answered Outcome = "answered"
	// OutOfContext means the generator refused and the reply was normalized.
	OutOfContext Outcome = "out_of_context"
	// Skipped means retrieval produced too little context and the generator was not called.
	Skipped Outcome = "skipped"
	// GatewayError means the generation service failed.
	GatewayError Outcome = "gateway_error"
	// RetrievalError means the query could not be embedded or searched.
	RetrievalError Outcome = "retrieval_error"
)

// Result is the per-query pipeline output handed to the front end.
// It is built fresh for every query and never cached.
type Result struct {
	Answer       string
	Sources      []chunk.Chunk
	OutOfContext bool
	Outcome      Outcome
}
