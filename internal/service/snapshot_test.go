package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"codybuddy/internal/domain"
	"codybuddy/internal/repository"
	"codybuddy/internal/repository/mocks"
	"codybuddy/internal/service"
)

func TestSnapshotService_CreateSnapshot_Success(t *testing.T) {
	mockSnapRepo := new(mocks.SnapshotRepository)
	mockPublisher := new(mocks.EventPublisher)
	svc := service.NewSnapshotService(mockSnapRepo, mockPublisher)
	ctx := context.Background()

	mockSnapRepo.On("Create", ctx, mock.MatchedBy(func(s *domain.Snapshot) bool {
		_, err := uuid.Parse(s.ID)
		return err == nil && s.RoomID == "r1" && s.Content == "C" && s.Author == "alice" && !s.CreatedAt.IsZero()
	})).Return(nil).Once()
	mockPublisher.On("Publish", ctx, mock.MatchedBy(func(e repository.RoomEvent) bool {
		return e.Type == repository.EventSnapshotSaved && e.RoomID == "r1" && e.Author == "alice"
	})).Return(nil).Once()

	snap, err := svc.CreateSnapshot(ctx, "r1", "C", "alice")
	require.NoError(t, err)
	assert.Equal(t, "C", snap.Content)

	mockSnapRepo.AssertExpectations(t)
	mockPublisher.AssertExpectations(t)
}

func TestSnapshotService_CreateSnapshot_StoreFailure(t *testing.T) {
	mockSnapRepo := new(mocks.SnapshotRepository)
	mockPublisher := new(mocks.EventPublisher)
	svc := service.NewSnapshotService(mockSnapRepo, mockPublisher)
	ctx := context.Background()

	mockSnapRepo.On("Create", ctx, mock.Anything).Return(errors.New("disk full")).Once()

	_, err := svc.CreateSnapshot(ctx, "r1", "C", "alice")
	assert.ErrorIs(t, err, service.ErrInternalServer)
	mockPublisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestSnapshotService_CreateSnapshot_PublishFailureIgnored(t *testing.T) {
	mockSnapRepo := new(mocks.SnapshotRepository)
	mockPublisher := new(mocks.EventPublisher)
	svc := service.NewSnapshotService(mockSnapRepo, mockPublisher)
	ctx := context.Background()

	mockSnapRepo.On("Create", ctx, mock.Anything).Return(nil).Once()
	mockPublisher.On("Publish", ctx, mock.Anything).Return(errors.New("broker gone")).Once()

	_, err := svc.CreateSnapshot(ctx, "r1", "C", "alice")
	assert.NoError(t, err)
}

func TestSnapshotService_CreateSnapshot_RequiresCodeAndAuthor(t *testing.T) {
	mockSnapRepo := new(mocks.SnapshotRepository)
	mockPublisher := new(mocks.EventPublisher)
	svc := service.NewSnapshotService(mockSnapRepo, mockPublisher)
	ctx := context.Background()

	cases := []struct{ name, roomID, code, userName string }{
		{"no room", "", "C", "alice"},
		{"no code", "r1", "", "alice"},
		{"no author", "r1", "C", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			snap, err := svc.CreateSnapshot(ctx, tc.roomID, tc.code, tc.userName)
			assert.ErrorIs(t, err, service.ErrInvalidEvent)
			assert.Nil(t, snap)
		})
	}
	mockSnapRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	mockPublisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestSnapshotService_ListSnapshots(t *testing.T) {
	mockSnapRepo := new(mocks.SnapshotRepository)
	svc := service.NewSnapshotService(mockSnapRepo, new(mocks.EventPublisher))
	ctx := context.Background()

	now := time.Now()
	list := []domain.Snapshot{{ID: "b", CreatedAt: now}, {ID: "a", CreatedAt: now.Add(-time.Minute)}}
	mockSnapRepo.On("ListByRoom", ctx, "r1").Return(list, nil).Once()
	mockSnapRepo.On("ListByRoom", ctx, "bad").Return(nil, errors.New("boom")).Once()

	got, err := svc.ListSnapshots(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, list, got)

	_, err = svc.ListSnapshots(ctx, "bad")
	assert.ErrorIs(t, err, service.ErrInternalServer)
}

func TestSnapshotService_ResolveRevert(t *testing.T) {
	mockSnapRepo := new(mocks.SnapshotRepository)
	svc := service.NewSnapshotService(mockSnapRepo, new(mocks.EventPublisher))
	ctx := context.Background()

	snap := &domain.Snapshot{ID: "s1", RoomID: "r1", Content: "C"}
	mockSnapRepo.On("FindByID", ctx, "s1").Return(snap, nil)
	mockSnapRepo.On("FindByID", ctx, "missing").Return(nil, repository.ErrSnapshotNotFound)

	got, err := svc.ResolveRevert(ctx, "r1", "s1")
	require.NoError(t, err)
	assert.Equal(t, "C", got.Content)

	_, err = svc.ResolveRevert(ctx, "r1", "missing")
	assert.ErrorIs(t, err, service.ErrSnapshotNotFound)

	_, err = svc.ResolveRevert(ctx, "other-room", "s1")
	assert.ErrorIs(t, err, service.ErrSnapshotNotFound)

	_, err = svc.ResolveRevert(ctx, "r1", "")
	assert.ErrorIs(t, err, service.ErrInvalidEvent)
}

func TestSnapshotService_RecordRevert_Publishes(t *testing.T) {
	mockPublisher := new(mocks.EventPublisher)
	svc := service.NewSnapshotService(new(mocks.SnapshotRepository), mockPublisher)
	ctx := context.Background()

	mockPublisher.On("Publish", ctx, mock.MatchedBy(func(e repository.RoomEvent) bool {
		return e.Type == repository.EventRoomReverted && e.RoomID == "r1" && e.SnapshotID == "s1"
	})).Return(nil).Once()

	svc.RecordRevert(ctx, &domain.Snapshot{ID: "s1", RoomID: "r1"})
	mockPublisher.AssertExpectations(t)
}
