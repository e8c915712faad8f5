package health

import (
	"context"
	"errors"
	"testing"
)

// --- Mocks ---

type mockIndex struct{ size int }

func (m mockIndex) Size() int { return m.size }

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type mockChecker struct {
	err error
}

func (m *mockChecker) HealthCheck(_ context.Context) error { return m.err }

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(mockIndex{size: 10},
		WithCache(&mockPinger{}),
		WithEmbedding(&mockChecker{}),
		WithGeneration(&mockChecker{}),
	)
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	for _, name := range []string{CheckIndex, CheckCache, CheckEmbedding, CheckGeneration} {
		if r.Checks[name] != CheckOK {
			t.Errorf("expected %s %q, got %q", name, CheckOK, r.Checks[name])
		}
	}
	if r.Err() != nil {
		t.Errorf("unexpected Err: %v", r.Err())
	}
}

func TestCheck_ComponentErrors(t *testing.T) {
	boom := errors.New("conn refused")
	tests := []struct {
		name   string
		opts   []Option
		failed string
	}{
		{"cache", []Option{WithCache(&mockPinger{err: boom}), WithGeneration(&mockChecker{})}, CheckCache},
		{"embedding", []Option{WithEmbedding(&mockChecker{err: boom})}, CheckEmbedding},
		{"generation", []Option{WithCache(&mockPinger{}), WithGeneration(&mockChecker{err: boom})}, CheckGeneration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(mockIndex{size: 1}, tt.opts...).Check(context.Background())
			if r.Status != Degraded {
				t.Errorf("expected %q, got %q", Degraded, r.Status)
			}
			if r.Checks[tt.failed] != CheckError {
				t.Errorf("expected %s %q, got %q", tt.failed, CheckError, r.Checks[tt.failed])
			}
			if r.Checks[CheckIndex] != CheckOK {
				t.Errorf("index check should pass")
			}
		})
	}
}

func TestCheck_IndexOnly(t *testing.T) {
	r := New(mockIndex{size: 3}).Check(context.Background())
	if r.Status != Healthy || len(r.Checks) != 1 {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestCheck_EmptyIndex(t *testing.T) {
	gen := &mockChecker{}
	r := New(mockIndex{}, WithGeneration(gen)).Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks[CheckIndex] != CheckError {
		t.Errorf("expected index %q", CheckError)
	}
	if r.Err() == nil {
		t.Error("expected Err for unhealthy report")
	}
}

func TestCheck_NilIndex(t *testing.T) {
	if r := New(nil).Check(context.Background()); r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
}
