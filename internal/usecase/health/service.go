package health

import "context"

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure; search still answers.
	Degraded Status = "degraded"
	// Unhealthy indicates the corpus store is unreachable.
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

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store     StorePinger
	analytics AnalyticsPinger
	embedding EmbeddingChecker
}

// New creates a Service. analytics and embedding can be nil.
func New(store StorePinger, analytics AnalyticsPinger, embedding EmbeddingChecker) *Service {
	return &Service{store: store, analytics: analytics, embedding: embedding}
}

// Check runs health checks against all components. The corpus store is the
// only hard dependency: without it no search can run, so its failure alone
// makes the report Unhealthy. Analytics and embedding failures degrade.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)
	status := Healthy

	if err := s.store.Ping(ctx); err != nil {
		checks["corpus_store"] = CheckError
		status = Unhealthy
	} else {
		checks["corpus_store"] = CheckOK
	}

	if s.analytics != nil {
		if err := s.analytics.PingContext(ctx); err != nil {
			checks["analytics"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["analytics"] = CheckOK
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
			if status == Healthy {
				status = Degraded
			}
		} else {
			checks["embedding"] = CheckOK
		}
	}

	return Report{Status: status, Checks: checks}
}
