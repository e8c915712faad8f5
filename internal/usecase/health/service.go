package health

import (
	"context"
	"errors"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates the index is unusable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckIndex      = "index"
	CheckCache      = "cache"
	CheckEmbedding  = "embedding"
	CheckGeneration = "generation"
)

var errEmptyIndex = errors.New("index is empty")

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

type namedCheck struct {
	name string
	fn   func(ctx context.Context) error
}

// Service coordinates health checks.
type Service struct {
	index  IndexInfo
	checks []namedCheck
}

// Option registers an optional component check.
type Option func(*Service)

// WithCache adds the embedding cache check.
func WithCache(p Pinger) Option {
	return func(s *Service) { s.add(CheckCache, p.Ping) }
}

// WithEmbedding adds the embedding provider check.
func WithEmbedding(c Checker) Option {
	return func(s *Service) { s.add(CheckEmbedding, c.HealthCheck) }
}

// WithGeneration adds the generation provider check.
func WithGeneration(c Checker) Option {
	return func(s *Service) { s.add(CheckGeneration, c.HealthCheck) }
}

// New creates a Service. The index check always runs; the rest are optional.
func New(index IndexInfo, opts ...Option) *Service {
	s := &Service{index: index}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) add(name string, fn func(ctx context.Context) error) {
	s.checks = append(s.checks, namedCheck{name: name, fn: fn})
}

// Check runs health checks against all components. An empty index is
// Unhealthy; any other failing component is Degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, len(s.checks)+1)

	if s.index == nil || s.index.Size() == 0 {
		checks[CheckIndex] = CheckError
		return Report{Status: Unhealthy, Checks: checks}
	}
	checks[CheckIndex] = CheckOK

	status := Healthy
	for _, c := range s.checks {
		if err := c.fn(ctx); err != nil {
			checks[c.name] = CheckError
			status = Degraded
			continue
		}
		checks[c.name] = CheckOK
	}

	return Report{Status: status, Checks: checks}
}

// Err returns the reason an Unhealthy report is unhealthy.
func (r Report) Err() error {
	if r.Status == Unhealthy {
		return errEmptyIndex
	}
	return nil
}
