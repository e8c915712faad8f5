package chi

import (
	"context"

	domanswer "github.com/kailas-cloud/healthrag/internal/domain/answer"
	healthuc "github.com/kailas-cloud/healthrag/internal/usecase/health"
)

// Answerer runs the query pipeline.
type Answerer interface {
	Answer(ctx context.Context, query string, topK int) (domanswer.Result, error)
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
