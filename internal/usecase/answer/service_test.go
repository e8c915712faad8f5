package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/healthrag/internal/domain"
	domanswer "github.com/kailas-cloud/healthrag/internal/domain/answer"
	"github.com/kailas-cloud/healthrag/internal/domain/chunk"
	"github.com/kailas-cloud/healthrag/internal/domain/grounding"
	logpkg "github.com/kailas-cloud/healthrag/internal/logger"
	"github.com/kailas-cloud/healthrag/internal/usecase/generation"
)

// --- Mocks ---

type mockRetriever struct {
	chunks []chunk.Chunk
	err    error
	topK   int
}

func (m *mockRetriever) Retrieve(_ context.Context, _ string, topK int) ([]chunk.Chunk, error) {
	m.topK = topK
	return m.chunks, m.err
}

type mockGenerator struct {
	text   string
	err    error
	calls  int
	prompt string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.prompt = prompt
	return m.text, m.err
}

// --- Helpers ---

func intPtr(v int) *int { return &v }

func hypertensionChunks() []chunk.Chunk {
	return []chunk.Chunk{{
		DocTitle: "WHO Fact Sheet - Hypertension",
		DocURL:   "https://www.who.int/news-room/fact-sheets/detail/hypertension",
		DocYear:  intPtr(2023),
		ID:       0,
		Text: "Hypertension (high blood pressure) is when the pressure in your blood vessels " +
			"is too high (140/90 mmHg or higher). It is common but can be serious if not treated.",
	}}
}

func newService(ret *mockRetriever, gen *mockGenerator) *Service {
	gw := generation.NewGateway(gen, nil, generation.Config{Provider: "ollama", Model: "test"}, zap.NewNop())
	return New(ret, grounding.NewAssembler(grounding.DefaultMinContextChars), gw, zap.NewNop())
}

// --- Tests ---

func TestAnswer_ScenarioA_GroundedAnswer(t *testing.T) {
	ret := &mockRetriever{chunks: hypertensionChunks()}
	gen := &mockGenerator{text: "Hypertension is persistently high blood pressure " +
		"[WHO Fact Sheet - Hypertension, 2023]."}
	svc := newService(ret, gen)

	res, err := svc.Answer(context.Background(), "What is hypertension?", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OutOfContext {
		t.Error("expected in-context answer")
	}
	if !strings.Contains(res.Answer, "[WHO Fact Sheet - Hypertension, 2023]") {
		t.Errorf("answer lacks citation: %q", res.Answer)
	}
	if len(res.Sources) != 1 || res.Sources[0].DocTitle != "WHO Fact Sheet - Hypertension" {
		t.Errorf("unexpected sources: %+v", res.Sources)
	}
	if res.Outcome != domanswer.Answered {
		t.Errorf("outcome = %s", res.Outcome)
	}
	if !strings.Contains(gen.prompt, "Question: What is hypertension?") {
		t.Errorf("prompt missing question: %q", gen.prompt)
	}
}

func TestAnswer_ScenarioB_ThinContextSkipsGenerator(t *testing.T) {
	ret := &mockRetriever{chunks: []chunk.Chunk{{DocTitle: "X", Text: "Paris"}}}
	gen := &mockGenerator{text: "Paris is the capital of France."}
	svc := newService(ret, gen)

	res, err := svc.Answer(context.Background(), "What is the capital of France?", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Answer != grounding.CanonicalRefusal {
		t.Errorf("expected canonical refusal, got %q", res.Answer)
	}
	if !res.OutOfContext || len(res.Sources) != 0 || res.Outcome != domanswer.Skipped {
		t.Errorf("unexpected result: %+v", res)
	}
	if gen.calls != 0 {
		t.Errorf("generator must not be called, got %d calls", gen.calls)
	}
}

func TestAnswer_ScenarioB_GeneratorRefusal(t *testing.T) {
	ret := &mockRetriever{chunks: hypertensionChunks()}
	gen := &mockGenerator{text: "I'm sorry, but that is not related to the provided context."}
	svc := newService(ret, gen)

	res, err := svc.Answer(context.Background(), "What is the capital of France?", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Answer != grounding.CanonicalRefusal || !res.OutOfContext {
		t.Errorf("expected normalized refusal, got %+v", res)
	}
	if res.Outcome != domanswer.OutOfContext {
		t.Errorf("outcome = %s", res.Outcome)
	}
	if len(res.Sources) != 1 {
		t.Errorf("sources should be kept, got %d", len(res.Sources))
	}
}

func TestAnswer_ScenarioC_GatewayError(t *testing.T) {
	ret := &mockRetriever{chunks: hypertensionChunks()}
	gen := &mockGenerator{err: errors.New("dial tcp 127.0.0.1:11434: connection refused")}
	svc := newService(ret, gen)

	res, err := svc.Answer(context.Background(), "What is hypertension?", 0)
	if err != nil {
		t.Fatalf("gateway failure must not be returned as error: %v", err)
	}
	if !strings.HasPrefix(res.Answer, "Error contacting LLM API:") {
		t.Errorf("unexpected answer: %q", res.Answer)
	}
	if !strings.Contains(res.Answer, "connection refused") {
		t.Errorf("cause missing: %q", res.Answer)
	}
	if res.OutOfContext {
		t.Error("gateway error is not an out-of-context answer")
	}
	if len(res.Sources) != 1 || res.Outcome != domanswer.GatewayError {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestAnswer_RetrievalError(t *testing.T) {
	ret := &mockRetriever{err: domain.ErrEmbeddingProviderError}
	gen := &mockGenerator{}
	svc := newService(ret, gen)

	res, err := svc.Answer(context.Background(), "What is asthma?", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(res.Answer, "Error retrieving context: ") {
		t.Errorf("unexpected answer: %q", res.Answer)
	}
	if res.Outcome != domanswer.RetrievalError || len(res.Sources) != 0 || res.OutOfContext {
		t.Errorf("unexpected result: %+v", res)
	}
	if gen.calls != 0 {
		t.Error("generator must not be called")
	}
}

func TestAnswer_EmptyQuestion(t *testing.T) {
	svc := newService(&mockRetriever{}, &mockGenerator{})
	for _, q := range []string{"", "   \n\t"} {
		if _, err := svc.Answer(context.Background(), q, 0); !errors.Is(err, domain.ErrEmptyQuestion) {
			t.Errorf("%q: expected ErrEmptyQuestion, got %v", q, err)
		}
	}
}

func TestAnswer_ForwardsTopK(t *testing.T) {
	ret := &mockRetriever{chunks: hypertensionChunks()}
	svc := newService(ret, &mockGenerator{text: "ok"})

	if _, err := svc.Answer(context.Background(), "q", 5); err != nil {
		t.Fatal(err)
	}
	if ret.topK != 5 {
		t.Errorf("topK = %d, want 5", ret.topK)
	}
}

func TestAnswer_LogsWithRequestLogger(t *testing.T) {
	reqCore, reqLogs := observer.New(zapcore.InfoLevel)
	svcCore, svcLogs := observer.New(zapcore.InfoLevel)

	gen := &mockGenerator{text: "Hypertension is high blood pressure [WHO Fact Sheet - Hypertension, 2023]."}
	gw := generation.NewGateway(gen, nil, generation.Config{Provider: "ollama", Model: "test"}, zap.NewNop())
	svc := New(&mockRetriever{chunks: hypertensionChunks()},
		grounding.NewAssembler(grounding.DefaultMinContextChars), gw, zap.New(svcCore))

	ctx := logpkg.ContextWithLogger(context.Background(),
		zap.New(reqCore).With(zap.String("request_id", "req-42")))
	if _, err := svc.Answer(ctx, "What is hypertension?", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries := reqLogs.FilterMessage("Question answered").All()
	if len(entries) != 1 {
		t.Fatalf("expected the request logger to carry the line, got %d entries", len(entries))
	}
	if got := entries[0].ContextMap()["request_id"]; got != "req-42" {
		t.Errorf("request_id = %v, want req-42", got)
	}
	if svcLogs.Len() != 0 {
		t.Errorf("service logger must stay unused when the context has one, got %d entries", svcLogs.Len())
	}
}

func TestAnswer_LogsWithServiceLoggerWithoutRequest(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	gw := generation.NewGateway(&mockGenerator{}, nil, generation.Config{Provider: "ollama", Model: "test"}, zap.NewNop())
	svc := New(&mockRetriever{}, grounding.NewAssembler(grounding.DefaultMinContextChars), gw, zap.New(core))

	if _, err := svc.Answer(context.Background(), "What is the capital of France?", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if logs.FilterMessage("Question answered").Len() != 1 {
		t.Errorf("expected the service logger to be used, got %d entries", logs.Len())
	}
}
