package repository

import (
	"context"
	"time"
)

// StateRepository holds short-lived shared counters, backed by Redis.
type StateRepository interface {
	// CheckRateLimit increments the counter for key and reports whether it went over limit
	// within the window.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
