package health

import "context"

// StorePinger checks corpus store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// AnalyticsPinger checks the analytics database. Satisfied by *sql.DB.
type AnalyticsPinger interface {
	PingContext(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
