package ports

import "context"

// HealthChecker is a backing store probed by GET /health.
type HealthChecker interface {
	// Name keys the store in the health response.
	Name() string
	// Ping returns nil when the store can serve sale traffic.
	Ping(ctx context.Context) error
}
