package repository

import (
	"context"

	"codybuddy/internal/domain"
)

// ExecutionProvider is the remote compile-and-run service (Judge0).
type ExecutionProvider interface {
	// Submit queues source code for execution and returns the submission token.
	Submit(ctx context.Context, languageID int, sourceCode string) (string, error)

	// Get fetches the current state of a submission.
	Get(ctx context.Context, token string) (*domain.Submission, error)
}
