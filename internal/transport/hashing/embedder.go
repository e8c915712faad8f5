// Package hashing provides a deterministic, offline embedder based on signed
// feature hashing of word tokens. It needs no model download and produces the
// same vectors on every machine, which makes index builds reproducible.
package hashing

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/healthrag/internal/domain"
)

// DefaultDimensions is used when no dimension is configured.
const DefaultDimensions = 512

var tokenPattern = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)

// Embedder maps text to a fixed-size term-frequency vector.
type Embedder struct {
	dim       int
	stopwords map[string]struct{}
}

// NewEmbedder creates a hashing embedder. dim <= 0 selects DefaultDimensions.
func NewEmbedder(dim int) *Embedder {
	if dim <= 0 {
		dim = DefaultDimensions
	}
	return &Embedder{dim: dim, stopwords: defaultStopwords()}
}

// Model names the embedding space; vectors of different dimensions are incompatible.
func (e *Embedder) Model() string { return fmt.Sprintf("hashing-%d", e.dim) }

// Dimensions returns the vector size.
func (e *Embedder) Dimensions() int { return e.dim }

// Embed implements domain.Embedder. TotalTokens is the number of counted tokens.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("hashing embed: %w", err)
	}
	vec, n := e.vectorize(text)
	return domain.EmbeddingResult{Embedding: vec, PromptTokens: n, TotalTokens: n}, nil
}

// BatchEmbed implements domain.BatchEmbedder.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	return domain.BatchFallback(ctx, e, texts)
}

// HealthCheck always succeeds; the embedder has no external dependency.
func (e *Embedder) HealthCheck(context.Context) error { return nil }

func (e *Embedder) vectorize(text string) ([]float32, int) {
	counts := make(map[uint64]int)
	n := 0
	for _, tok := range tokenPattern.FindAllString(strings.ToLower(text), -1) {
		if _, stop := e.stopwords[tok]; stop {
			continue
		}
		counts[xxhash.Sum64String(tok)]++
		n++
	}

	vec := make([]float32, e.dim)
	for h, c := range counts {
		// sublinear tf dampens repeated terms
		w := 1 + math.Log(float64(c))
		if h>>63 == 1 {
			w = -w
		}
		vec[h%uint64(e.dim)] += float32(w)
	}
	return vec, n
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at",
		"by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that",
		"these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so",
		"such", "into", "about", "between", "through", "during", "before", "after", "above", "below",
		"out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"what", "which", "who", "how", "do", "does", "did",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
