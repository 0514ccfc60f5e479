package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"codybuddy/internal/domain"
	"codybuddy/internal/repository"
)

// ExecutionConfig bounds the polling of one submission
type ExecutionConfig struct {
	PollInterval time.Duration
	MaxAttempts  int
	Timeout      time.Duration
}

// ExecutionService relays run requests to the execution provider
type ExecutionService struct {
	provider repository.ExecutionProvider
	cfg      ExecutionConfig
}

// NewExecutionService creates an ExecutionService, filling unset limits with defaults
func NewExecutionService(provider repository.ExecutionProvider, cfg ExecutionConfig) *ExecutionService {
	if provider == nil {
		panic("ExecutionProvider cannot be nil for ExecutionService")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 30
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	return &ExecutionService{provider: provider, cfg: cfg}
}

// Run submits the code, polls until the provider reports a terminal status and returns the
// result to show the requester. The returned result is always ready to send; err tells the
// caller why a synthetic message was used instead of the provider's output.
func (s *ExecutionService) Run(ctx context.Context, code string, languageID int) (domain.ExecutionResult, error) {
	logCtx := logrus.WithFields(logrus.Fields{"operation": "RunCode", "language_id": languageID})

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	// 1. submit, no retry
	token, err := s.provider.Submit(ctx, languageID, code)
	if err != nil {
		if errors.Is(err, repository.ErrProviderNotConfigured) {
			logCtx.Error("Compiler API key is not configured")
			return domain.ExecutionResult{Output: MsgMissingAPIKey}, ErrMissingAPIKey
		}
		logCtx.WithError(err).Error("Failed to submit code")
		return domain.ExecutionResult{Output: MsgExecutionFailed}, ErrExecutionFailed
	}
	logCtx = logCtx.WithField("token", token)

	// 2. poll
	for attempt := 1; ; attempt++ {
		sub, err := s.provider.Get(ctx, token)
		if err != nil {
			if ctx.Err() != nil {
				logCtx.WithError(err).Warn("Polling stopped")
				return domain.ExecutionResult{Output: MsgExecutionFailed}, ErrExecutionTimeout
			}
			logCtx.WithError(err).Error("Failed to fetch submission")
			return domain.ExecutionResult{Output: MsgExecutionFailed}, ErrExecutionFailed
		}
		if sub.Terminal() {
			logCtx.WithFields(logrus.Fields{"attempts": attempt, "status": sub.Status.Description}).Info("Submission finished")
			return domain.ExecutionResult{Output: sub.Output(), Status: sub.Status.Description}, nil
		}
		if attempt >= s.cfg.MaxAttempts {
			logCtx.WithField("attempts", attempt).Warn("Submission still running after max attempts")
			return domain.ExecutionResult{Output: MsgExecutionFailed}, ErrExecutionTimeout
		}

		timer := time.NewTimer(s.cfg.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			logCtx.WithError(ctx.Err()).Warn("Polling stopped")
			return domain.ExecutionResult{Output: MsgExecutionFailed}, ErrExecutionTimeout
		case <-timer.C:
		}
	}
}
