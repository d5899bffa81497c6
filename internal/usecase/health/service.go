// Package health reports readiness of the retrieval service.
package health

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/aossindex/internal/logger"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates every check failed.
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
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates health checks.
type Service struct {
	knowledgeBase KnowledgeBaseChecker
	credentials   CredentialsChecker
}

// New creates a Service. credentials can be nil.
func New(knowledgeBase KnowledgeBaseChecker, credentials CredentialsChecker) *Service {
	return &Service{knowledgeBase: knowledgeBase, credentials: credentials}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	log := logger.FromContext(ctx)
	checks := make(map[string]CheckResult)

	if err := s.knowledgeBase.HealthCheck(ctx); err != nil {
		log.Warn("knowledge base check failed", zap.Error(err))
		checks["knowledge_base"] = CheckError
	} else {
		checks["knowledge_base"] = CheckOK
	}

	if s.credentials != nil {
		if err := s.credentials.HealthCheck(ctx); err != nil {
			log.Warn("credentials check failed", zap.Error(err))
			checks["credentials"] = CheckError
		} else {
			checks["credentials"] = CheckOK
		}
	}

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	status := Healthy
	switch {
	case failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}
	return Report{Status: status, Checks: checks}
}
