// Package answer runs the query pipeline: retrieve, assemble, generate, classify.
package answer

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrag/internal/domain"
	domanswer "github.com/kailas-cloud/healthrag/internal/domain/answer"
	"github.com/kailas-cloud/healthrag/internal/domain/chunk"
	"github.com/kailas-cloud/healthrag/internal/domain/grounding"
	logpkg "github.com/kailas-cloud/healthrag/internal/logger"
	"github.com/kailas-cloud/healthrag/internal/metrics"
)

const (
	gatewayErrorPrefix   = "Error contacting LLM API: "
	retrievalErrorPrefix = "Error retrieving context: "
)

// Service answers questions from the indexed corpus.
type Service struct {
	retriever Retriever
	assembler Assembler
	gateway   Gateway
	logger    *zap.Logger
}

// New creates the query pipeline.
func New(retriever Retriever, assembler Assembler, gateway Gateway, logger *zap.Logger) *Service {
	return &Service{
		retriever: retriever,
		assembler: assembler,
		gateway:   gateway,
		logger:    logger,
	}
}

// Answer resolves a single question. Failures after validation are reported
// in Result.Answer, never returned. topK <= 0 selects the retriever default.
func (s *Service) Answer(ctx context.Context, query string, topK int) (domanswer.Result, error) {
	if strings.TrimSpace(query) == "" {
		return domanswer.Result{}, domain.ErrEmptyQuestion
	}

	start := time.Now()
	res := s.answer(ctx, query, topK)
	metrics.AnswerOutcomesTotal.WithLabelValues(string(res.Outcome)).Inc()

	logpkg.FromContextOr(ctx, s.logger).Info("Question answered",
		zap.String("outcome", string(res.Outcome)),
		zap.Int("sources", len(res.Sources)),
		zap.Bool("out_of_context", res.OutOfContext),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (s *Service) answer(ctx context.Context, query string, topK int) domanswer.Result {
	chunks, err := s.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		logpkg.FromContextOr(ctx, s.logger).Error("Retrieval failed", zap.Error(err))
		return domanswer.Result{
			Answer:  retrievalErrorPrefix + err.Error(),
			Sources: []chunk.Chunk{},
			Outcome: domanswer.RetrievalError,
		}
	}

	prompt, skip := s.assembler.Assemble(chunks, query)
	if skip {
		return domanswer.Result{
			Answer:       grounding.CanonicalRefusal,
			Sources:      []chunk.Chunk{},
			OutOfContext: true,
			Outcome:      domanswer.Skipped,
		}
	}

	reply, err := s.gateway.Generate(ctx, prompt)
	if err != nil {
		if !errors.Is(err, domain.ErrGateway) {
			logpkg.FromContextOr(ctx, s.logger).Warn("Unclassified generation error", zap.Error(err))
		}
		return domanswer.Result{
			Answer:  gatewayErrorPrefix + err.Error(),
			Sources: chunks,
			Outcome: domanswer.GatewayError,
		}
	}

	outcome := domanswer.Answered
	if reply.OutOfContext {
		outcome = domanswer.OutOfContext
	}
	return domanswer.Result{
		Answer:       reply.Text,
		Sources:      chunks,
		OutOfContext: reply.OutOfContext,
		Outcome:      outcome,
	}
}
