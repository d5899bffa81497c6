package health

import "context"

// KnowledgeBaseChecker checks that the knowledge base is usable.
type KnowledgeBaseChecker interface {
	HealthCheck(ctx context.Context) error
}

// CredentialsChecker checks that AWS credentials can be resolved.
type CredentialsChecker interface {
	HealthCheck(ctx context.Context) error
}
