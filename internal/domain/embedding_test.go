package domain

import (
	"context"
	"errors"
	"math"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = append(s.got, text)
	return s.result, s.err
}

type stubBatchEmbedder struct {
	stubEmbedder
	batch      BatchEmbeddingResult
	batchCalls int
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, _ []string) (BatchEmbeddingResult, error) {
	s.batchCalls++
	return s.batch, s.err
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestNormalize_UnitLength(t *testing.T) {
	out := Normalize([]float32{3, 4})
	if math.Abs(norm(out)-1) > 1e-6 {
		t.Fatalf("expected unit norm, got %f", norm(out))
	}
	if math.Abs(float64(out[0])-0.6) > 1e-6 || math.Abs(float64(out[1])-0.8) > 1e-6 {
		t.Errorf("unexpected components: %v", out)
	}
}

func TestNormalize_ZeroVector(t *testing.T) {
	out := Normalize([]float32{0, 0, 0})
	for i, x := range out {
		if x != 0 {
			t.Errorf("out[%d] = %f, expected 0", i, x)
		}
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	in := []float32{1, 1}
	_ = Normalize(in)
	if in[0] != 1 || in[1] != 1 {
		t.Errorf("input mutated: %v", in)
	}
}

func TestNormalizingEmbedder_Embed(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0, 2, 0}, TotalTokens: 7}}
	emb := NewNormalizingEmbedder(inner)

	res, err := emb.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embedding[1] != 1 {
		t.Errorf("expected normalized vector, got %v", res.Embedding)
	}
	if res.TotalTokens != 7 {
		t.Errorf("expected usage to pass through, got %d", res.TotalTokens)
	}
}

func TestNormalizingEmbedder_ErrorPropagation(t *testing.T) {
	innerErr := errors.New("provider down")
	emb := NewNormalizingEmbedder(&stubEmbedder{err: innerErr})

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, innerErr) {
		t.Fatalf("expected wrapped inner error, got %v", err)
	}
}

func TestNormalizingEmbedder_BatchUsesNativeBatch(t *testing.T) {
	inner := &stubBatchEmbedder{batch: BatchEmbeddingResult{
		Embeddings: [][]float32{{2, 0}, {0, 5}},
	}}
	emb := NewNormalizingEmbedder(inner)

	res, err := emb.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchCalls != 1 {
		t.Errorf("expected 1 batch call, got %d", inner.batchCalls)
	}
	if len(inner.got) != 0 {
		t.Errorf("expected no single Embed calls, got %d", len(inner.got))
	}
	if res.Embeddings[0][0] != 1 || res.Embeddings[1][1] != 1 {
		t.Errorf("expected normalized batch, got %v", res.Embeddings)
	}
}

func TestNormalizingEmbedder_BatchFallback(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0, 0, 3}, TotalTokens: 2}}
	emb := NewNormalizingEmbedder(inner)

	res, err := emb.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inner.got) != 3 {
		t.Fatalf("expected 3 fallback calls, got %d", len(inner.got))
	}
	if len(res.Embeddings) != 3 || res.Embeddings[2][2] != 1 {
		t.Errorf("unexpected embeddings: %v", res.Embeddings)
	}
	if res.TotalTokens != 6 {
		t.Errorf("expected aggregated tokens 6, got %d", res.TotalTokens)
	}
}

func TestGatewayError_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewGatewayError("ollama", cause)

	if !errors.Is(err, ErrGateway) {
		t.Error("expected errors.Is(err, ErrGateway)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is(err, cause)")
	}
	var gwErr *GatewayError
	if !errors.As(err, &gwErr) || gwErr.Provider != "ollama" {
		t.Errorf("expected *GatewayError with provider, got %#v", err)
	}
	if err.Error() != "ollama: connection refused" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestIndexLoadError_MatchesSentinel(t *testing.T) {
	err := NewIndexLoadError("/data/index", errors.New("checksum mismatch"))
	if !errors.Is(err, ErrIndexLoad) {
		t.Error("expected errors.Is(err, ErrIndexLoad)")
	}
	expected := "index load failed: /data/index: checksum mismatch"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}
