package health

import "context"

// Pinger checks cache availability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Checker checks an external provider (embedding or generation).
type Checker interface {
	HealthCheck(ctx context.Context) error
}

// IndexInfo reports the loaded index size.
type IndexInfo interface {
	Size() int
}
