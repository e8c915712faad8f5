package generation

import "context"

// Generator is the external generation service: prompt in, free text out.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Classifier decides whether an answer is a refusal.
type Classifier interface {
	IsOutOfContext(answer string) bool
}
