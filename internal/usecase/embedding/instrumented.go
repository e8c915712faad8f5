// Package embedding holds the usecase-level decorators of the embedder chain.
package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrag/internal/domain"
)

// DefaultMaxAPIBatchSize is the largest sub-batch sent in a single provider call.
const DefaultMaxAPIBatchSize = 256

// ProgressFunc is called after each sub-batch with the number of texts embedded so far.
type ProgressFunc func(done, total int)

// Option configures an InstrumentedEmbedder.
type Option func(*InstrumentedEmbedder)

// WithProgress reports sub-batch progress of BatchEmbed. Index builds use it
// to show how far a long corpus has got.
func WithProgress(fn ProgressFunc) Option {
	return func(p *InstrumentedEmbedder) { p.progress = fn }
}

// InstrumentedEmbedder splits large batches and logs every provider call.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner     domain.Embedder
	provider  string
	model     string
	batchSize int
	progress  ProgressFunc
	logger    *zap.Logger
}

// NewInstrumentedEmbedder wraps inner. batchSize <= 0 selects DefaultMaxAPIBatchSize.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	batchSize int, logger *zap.Logger, opts ...Option,
) *InstrumentedEmbedder {
	if batchSize <= 0 {
		batchSize = DefaultMaxAPIBatchSize
	}
	p := &InstrumentedEmbedder{
		inner:     inner,
		provider:  provider,
		model:     model,
		batchSize: batchSize,
		logger:    logger,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Embed embeds a single query text.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()
	result, err := p.inner.Embed(ctx, text)
	if err != nil {
		p.logger.Error("Query embedding failed", p.fields(start, zap.Error(err))...)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	p.logger.Debug("Query embedded", p.fields(start,
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)...)
	return result, nil
}

// BatchEmbed embeds texts in sub-batches of at most batchSize, keeping input order.
func (p *InstrumentedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()
	out := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}

	for offset := 0; offset < len(texts); offset += p.batchSize {
		part := texts[offset:min(offset+p.batchSize, len(texts))]

		res, err := p.embedPart(ctx, part)
		if err != nil {
			p.logger.Error("Sub-batch embedding failed", p.fields(start,
				zap.Int("offset", offset),
				zap.Int("size", len(part)),
				zap.Error(err),
			)...)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed at offset %d: %w", offset, err)
		}
		if len(res.Embeddings) != len(part) {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed at offset %d: %w: got %d vectors for %d texts",
				offset, domain.ErrEmbeddingProviderError, len(res.Embeddings), len(part))
		}

		out.Embeddings = append(out.Embeddings, res.Embeddings...)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
		if p.progress != nil {
			p.progress(len(out.Embeddings), len(texts))
		}
	}

	p.logger.Debug("Batch embedded", p.fields(start,
		zap.Int("texts", len(texts)),
		zap.Int("sub_batches", (len(texts)+p.batchSize-1)/p.batchSize),
		zap.Int("total_tokens", out.TotalTokens),
	)...)
	return out, nil
}

// HealthCheck forwards to the inner embedder when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through decorator
	}
	return nil
}

func (p *InstrumentedEmbedder) embedPart(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if be, ok := p.inner.(domain.BatchEmbedder); ok {
		return be.BatchEmbed(ctx, texts) //nolint:wrapcheck // wrapped by caller
	}
	return domain.BatchFallback(ctx, p.inner, texts) //nolint:wrapcheck // wrapped by caller
}

func (p *InstrumentedEmbedder) fields(start time.Time, extra ...zap.Field) []zap.Field {
	return append([]zap.Field{
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
	}, extra...)
}
