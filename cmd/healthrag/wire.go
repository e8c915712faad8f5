package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/healthrag/internal/config"
	dbRedis "github.com/kailas-cloud/healthrag/internal/db/redis"
	"github.com/kailas-cloud/healthrag/internal/domain"
	"github.com/kailas-cloud/healthrag/internal/domain/grounding"
	"github.com/kailas-cloud/healthrag/internal/metrics"
	"github.com/kailas-cloud/healthrag/internal/repository/embcache"
	"github.com/kailas-cloud/healthrag/internal/repository/indexstore"
	"github.com/kailas-cloud/healthrag/internal/transport/hashing"
	"github.com/kailas-cloud/healthrag/internal/transport/ollama"
	openaiTransport "github.com/kailas-cloud/healthrag/internal/transport/openai"
	answeruc "github.com/kailas-cloud/healthrag/internal/usecase/answer"
	embeddinguc "github.com/kailas-cloud/healthrag/internal/usecase/embedding"
	"github.com/kailas-cloud/healthrag/internal/usecase/generation"
	"github.com/kailas-cloud/healthrag/internal/usecase/retrieval"
)

// embedderChain is the shared embedding stack used by both build and query.
type embedderChain struct {
	*domain.NormalizingEmbedder
	info  indexstore.EmbedderInfo
	cache *dbRedis.Store // nil when the cache is disabled
}

func (c *embedderChain) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Normalizing.
func buildEmbedder(
	ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...embeddinguc.Option,
) (*embedderChain, error) {
	ec := cfg.Embedding

	var (
		base domain.Embedder
		info indexstore.EmbedderInfo
		dims = ec.Dimensions
	)
	switch ec.Provider {
	case "openai":
		base = openaiTransport.NewEmbedder(&openaiTransport.Config{
			APIKey:     ec.APIKey,
			BaseURL:    ec.BaseURL,
			Model:      ec.Model,
			Dimensions: ec.Dimensions,
			Provider:   ec.Provider,
			Timeout:    time.Duration(ec.TimeoutSec) * time.Second,
			Logger:     logger,
		})
		info = indexstore.EmbedderInfo{Provider: ec.Provider, Model: ec.Model}
	case "hashing":
		h := hashing.NewEmbedder(ec.Dimensions)
		base = h
		info = indexstore.EmbedderInfo{Provider: ec.Provider, Model: h.Model()}
		dims = h.Dimensions()
	default:
		return nil, fmt.Errorf("%w: unknown embedding provider %q", domain.ErrConfig, ec.Provider)
	}

	chain := &embedderChain{info: info}
	embedder := base
	if cfg.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		logger.Info("Connected to embedding cache", zap.Strings("addrs", cfg.Cache.Addrs))

		embedder = embcache.New(base, store, info.Model, dims, logger,
			embcache.WithTTL(time.Duration(cfg.Cache.TTLHours)*time.Hour),
			embcache.WithCacheCounter(metrics.EmbeddingCacheTotal),
		)
		chain.cache = store
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, info.Provider, info.Model, ec.BatchSize, logger, opts...)
	chain.NormalizingEmbedder = domain.NewNormalizingEmbedder(embedder)

	logger.Info("Embedder created",
		zap.String("provider", info.Provider),
		zap.String("model", info.Model),
		zap.Bool("cache", cfg.Cache.Enabled),
	)
	return chain, nil
}

// buildGenerator selects the generation provider.
func buildGenerator(cfg config.GenerationConfig, logger *zap.Logger) (generation.Generator, error) {
	switch cfg.Provider {
	case "ollama":
		return ollama.NewGenerator(ollama.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Logger:  logger,
		}), nil
	case "openai":
		return openaiTransport.NewGenerator(&openaiTransport.Config{
			APIKey:   cfg.APIKey,
			BaseURL:  cfg.BaseURL,
			Model:    cfg.Model,
			Provider: cfg.Provider,
			Logger:   logger,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown generation provider %q", domain.ErrConfig, cfg.Provider)
	}
}

// pipeline is the loaded query path shared by serve, ask and mcp.
type pipeline struct {
	embedder  *embedderChain
	retriever *retrieval.Service
	gateway   *generation.Gateway
	answers   *answeruc.Service
}

func (p *pipeline) Close() { p.embedder.Close() }

// loadPipeline loads the persisted index and wires retrieval, grounding and generation.
// Any inconsistency between the index and the configured embedder is fatal.
func loadPipeline(ctx context.Context, a *app) (*pipeline, error) {
	cfg := a.cfg

	snap, err := indexstore.New(cfg.Index.Dir, a.logger).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load index: %w", err)
	}

	chain, err := buildEmbedder(ctx, cfg, a.logger)
	if err != nil {
		return nil, err
	}

	retriever, err := retrieval.New(chain, snap, retrieval.Config{
		TopK:     cfg.Retrieval.TopK,
		MinScore: cfg.Retrieval.MinScore,
		Model:    chain.info.Model,
	}, a.logger)
	if err != nil {
		chain.Close()
		return nil, fmt.Errorf("open retriever: %w", err)
	}
	if err := retriever.Verify(ctx); err != nil {
		chain.Close()
		return nil, fmt.Errorf("verify retriever: %w", err)
	}

	gen, err := buildGenerator(cfg.Generation, a.logger)
	if err != nil {
		chain.Close()
		return nil, err
	}
	gateway := generation.NewGateway(gen, grounding.PatternClassifier(), generation.Config{
		Provider: cfg.Generation.Provider,
		Model:    cfg.Generation.Model,
		Timeout:  time.Duration(cfg.Generation.TimeoutSec) * time.Second,
	}, a.logger)

	answers := answeruc.New(retriever, grounding.NewAssembler(cfg.Grounding.MinContextChars), gateway, a.logger)

	a.logger.Info("Pipeline ready",
		zap.String("generation", snap.Generation),
		zap.Int("chunks", retriever.Size()),
		zap.Int("dimension", snap.Index.Dim()),
		zap.String("llm_provider", cfg.Generation.Provider),
		zap.String("llm_model", cfg.Generation.Model),
	)
	return &pipeline{embedder: chain, retriever: retriever, gateway: gateway, answers: answers}, nil
}
