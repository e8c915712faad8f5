// Package generation wraps the generation provider with a deadline, error
// classification, metrics and out-of-context normalization.
package generation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrag/internal/domain"
	"github.com/kailas-cloud/healthrag/internal/domain/grounding"
	"github.com/kailas-cloud/healthrag/internal/metrics"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 60 * time.Second

// Config describes the provider for errors, logs and metrics.
type Config struct {
	Provider string
	Model    string
	// Timeout <= 0 selects DefaultTimeout.
	Timeout time.Duration
}

// Reply is a classified generation result.
type Reply struct {
	// Text is the generated answer, or the canonical refusal when OutOfContext.
	Text         string
	OutOfContext bool
	Duration     time.Duration
}

// Gateway is the single entry point for generation calls.
type Gateway struct {
	gen        Generator
	classifier Classifier
	cfg        Config
	logger     *zap.Logger
}

// NewGateway creates a gateway. A nil classifier selects grounding.PatternClassifier.
func NewGateway(gen Generator, classifier Classifier, cfg Config, logger *zap.Logger) *Gateway {
	if classifier == nil {
		classifier = grounding.PatternClassifier()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Gateway{gen: gen, classifier: classifier, cfg: cfg, logger: logger}
}

// Generate calls the provider once. Any provider failure, including the
// deadline, is returned as *domain.GatewayError. Refusals are replaced by
// grounding.CanonicalRefusal.
func (g *Gateway) Generate(ctx context.Context, prompt string) (Reply, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := g.gen.Generate(ctx, prompt)
	duration := time.Since(start)

	if err != nil {
		errType := "api_error"
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			errType = "timeout"
			err = fmt.Errorf("no reply within %s: %w", g.cfg.Timeout, err)
		}
		metrics.GenerationRequestsTotal.WithLabelValues(g.cfg.Provider, g.cfg.Model, "error").Inc()
		metrics.GenerationErrorsTotal.WithLabelValues(g.cfg.Provider, g.cfg.Model, errType).Inc()
		g.logger.Error("Generation request failed",
			zap.String("provider", g.cfg.Provider),
			zap.String("model", g.cfg.Model),
			zap.String("error_type", errType),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return Reply{Duration: duration}, domain.NewGatewayError(g.cfg.Provider, err)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.cfg.Provider, g.cfg.Model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.cfg.Provider, g.cfg.Model).Observe(duration.Seconds())

	reply := Reply{Text: text, Duration: duration}
	if g.classifier.IsOutOfContext(text) {
		reply.Text = grounding.CanonicalRefusal
		reply.OutOfContext = true
	}

	g.logger.Debug("Generation completed",
		zap.String("provider", g.cfg.Provider),
		zap.String("model", g.cfg.Model),
		zap.Duration("duration", duration),
		zap.Int("answer_len", len(text)),
		zap.Bool("out_of_context", reply.OutOfContext),
	)
	return reply, nil
}

// HealthCheck forwards to the provider when it supports health checks.
func (g *Gateway) HealthCheck(ctx context.Context) error {
	if hc, ok := g.gen.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // pass-through
	}
	return nil
}
