package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"codybuddy/internal/domain"
	"codybuddy/internal/repository"
	"codybuddy/internal/repository/mocks"
	"codybuddy/internal/service"
)

func strPtr(s string) *string { return &s }

func fastExec(provider repository.ExecutionProvider, attempts int) *service.ExecutionService {
	return service.NewExecutionService(provider, service.ExecutionConfig{
		PollInterval: time.Millisecond,
		MaxAttempts:  attempts,
		Timeout:      time.Second,
	})
}

func TestExecutionService_Run_PollsUntilTerminal(t *testing.T) {
	provider := new(mocks.ExecutionProvider)
	provider.On("Submit", mock.Anything, 71, "print(1)").Return("tok", nil).Once()
	provider.On("Get", mock.Anything, "tok").
		Return(&domain.Submission{Token: "tok", Status: domain.SubmissionStatus{ID: domain.StatusInQueue, Description: "In Queue"}}, nil).Once()
	provider.On("Get", mock.Anything, "tok").
		Return(&domain.Submission{Token: "tok", Status: domain.SubmissionStatus{ID: domain.StatusProcessing, Description: "Processing"}}, nil).Once()
	provider.On("Get", mock.Anything, "tok").
		Return(&domain.Submission{Token: "tok", Stdout: strPtr("1\n"), Status: domain.SubmissionStatus{ID: domain.StatusProcessed, Description: "Accepted"}}, nil).Once()

	result, err := fastExec(provider, 10).Run(context.Background(), "print(1)", 71)

	assert.NoError(t, err)
	assert.Equal(t, domain.ExecutionResult{Output: "1\n", Status: "Accepted"}, result)
	provider.AssertExpectations(t)
}

func TestExecutionService_Run_CompileErrorOutput(t *testing.T) {
	provider := new(mocks.ExecutionProvider)
	provider.On("Submit", mock.Anything, 54, "int main(").Return("tok", nil).Once()
	provider.On("Get", mock.Anything, "tok").Return(&domain.Submission{
		CompileOutput: strPtr("error: expected ')'"),
		Status:        domain.SubmissionStatus{ID: 6, Description: "Compilation Error"},
	}, nil).Once()

	result, err := fastExec(provider, 10).Run(context.Background(), "int main(", 54)

	assert.NoError(t, err)
	assert.Equal(t, "error: expected ')'", result.Output)
	assert.Equal(t, "Compilation Error", result.Status)
}

func TestExecutionService_Run_MissingKey(t *testing.T) {
	provider := new(mocks.ExecutionProvider)
	provider.On("Submit", mock.Anything, 71, "x").Return("", repository.ErrProviderNotConfigured).Once()

	result, err := fastExec(provider, 10).Run(context.Background(), "x", 71)

	assert.ErrorIs(t, err, service.ErrMissingAPIKey)
	assert.Equal(t, domain.ExecutionResult{Output: service.MsgMissingAPIKey}, result)
	provider.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestExecutionService_Run_SubmitFailure(t *testing.T) {
	provider := new(mocks.ExecutionProvider)
	provider.On("Submit", mock.Anything, 71, "x").Return("", errors.New("503")).Once()

	result, err := fastExec(provider, 10).Run(context.Background(), "x", 71)

	assert.ErrorIs(t, err, service.ErrExecutionFailed)
	assert.Equal(t, service.MsgExecutionFailed, result.Output)
	assert.Empty(t, result.Status)
}

func TestExecutionService_Run_StopsAfterMaxAttempts(t *testing.T) {
	provider := new(mocks.ExecutionProvider)
	provider.On("Submit", mock.Anything, 71, "loop").Return("tok", nil).Once()
	provider.On("Get", mock.Anything, "tok").
		Return(&domain.Submission{Status: domain.SubmissionStatus{ID: domain.StatusProcessing}}, nil).Times(3)

	result, err := fastExec(provider, 3).Run(context.Background(), "loop", 71)

	assert.ErrorIs(t, err, service.ErrExecutionTimeout)
	assert.Equal(t, service.MsgExecutionFailed, result.Output)
	provider.AssertExpectations(t)
}

func TestExecutionService_Run_CancelledByCaller(t *testing.T) {
	provider := new(mocks.ExecutionProvider)
	provider.On("Submit", mock.Anything, 71, "loop").Return("tok", nil).Once()
	provider.On("Get", mock.Anything, "tok").
		Return(&domain.Submission{Status: domain.SubmissionStatus{ID: domain.StatusInQueue}}, nil)

	svc := service.NewExecutionService(provider, service.ExecutionConfig{
		PollInterval: 50 * time.Millisecond,
		MaxAttempts:  1000,
		Timeout:      time.Minute,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := svc.Run(ctx, "loop", 71)

	assert.ErrorIs(t, err, service.ErrExecutionTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)
}
