package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codybuddy/internal/domain"
	"codybuddy/internal/repository"
	"codybuddy/internal/repository/mocks"
	"codybuddy/internal/service"
)

// captureWriter records enqueued updates synchronously
type captureWriter struct {
	updates []domain.CodeUpdate
	pending map[string]domain.CodeUpdate
}

func (w *captureWriter) Enqueue(update domain.CodeUpdate) { w.updates = append(w.updates, update) }
func (w *captureWriter) Close(ctx context.Context) error  { return nil }

func (w *captureWriter) Pending(roomID string) (domain.CodeUpdate, bool) {
	update, ok := w.pending[roomID]
	return update, ok
}

func TestCollaborationService_JoinRoom_ReturnsDocument(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockCodeRepo := new(mocks.CodeRepository)
	svc := service.NewCollaborationService(mockRoomRepo, mockCodeRepo, &captureWriter{}, false)
	ctx := context.Background()

	doc := &domain.CodeDocument{RoomID: "r1", Content: "print(1)", Language: "python", UpdatedAt: time.Now()}
	mockRoomRepo.On("EnsureExists", ctx, "r1").Return(false, nil).Once()
	mockCodeRepo.On("FindByRoomID", ctx, "r1").Return(doc, nil).Once()

	got, err := svc.JoinRoom(ctx, "r1", nil)
	require.NoError(t, err)
	assert.Equal(t, doc, got)

	mockRoomRepo.AssertExpectations(t)
	mockCodeRepo.AssertExpectations(t)
}

func TestCollaborationService_JoinRoom_NoDocumentYet(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockCodeRepo := new(mocks.CodeRepository)
	svc := service.NewCollaborationService(mockRoomRepo, mockCodeRepo, &captureWriter{}, false)
	ctx := context.Background()

	mockRoomRepo.On("EnsureExists", ctx, "fresh").Return(true, nil).Once()
	mockCodeRepo.On("FindByRoomID", ctx, "fresh").Return(nil, repository.ErrCodeNotFound).Once()

	got, err := svc.JoinRoom(ctx, "fresh", nil)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestCollaborationService_JoinRoom_RoomErrorStillReadsDocument(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockCodeRepo := new(mocks.CodeRepository)
	svc := service.NewCollaborationService(mockRoomRepo, mockCodeRepo, &captureWriter{}, false)
	ctx := context.Background()

	doc := &domain.CodeDocument{RoomID: "r1", Content: "x", Language: "go"}
	mockRoomRepo.On("EnsureExists", ctx, "r1").Return(false, errors.New("db down")).Once()
	mockCodeRepo.On("FindByRoomID", ctx, "r1").Return(doc, nil).Once()

	got, err := svc.JoinRoom(ctx, "r1", nil)
	assert.NoError(t, err)
	assert.Equal(t, doc, got)
}

func TestCollaborationService_JoinRoom_LoadFailure(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockCodeRepo := new(mocks.CodeRepository)
	svc := service.NewCollaborationService(mockRoomRepo, mockCodeRepo, &captureWriter{}, false)
	ctx := context.Background()

	mockRoomRepo.On("EnsureExists", ctx, "r1").Return(false, nil).Once()
	mockCodeRepo.On("FindByRoomID", ctx, "r1").Return(nil, errors.New("timeout")).Once()

	got, err := svc.JoinRoom(ctx, "r1", nil)
	assert.ErrorIs(t, err, service.ErrInternalServer)
	assert.Nil(t, got)
}

func TestCollaborationService_JoinRoom_EmptyRoomID(t *testing.T) {
	svc := service.NewCollaborationService(new(mocks.RoomRepository), new(mocks.CodeRepository), &captureWriter{}, false)
	_, err := svc.JoinRoom(context.Background(), "", nil)
	assert.ErrorIs(t, err, service.ErrInvalidEvent)
}

func TestCollaborationService_JoinRoom_PendingEditWinsOverStore(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockCodeRepo := new(mocks.CodeRepository)
	w := &captureWriter{pending: map[string]domain.CodeUpdate{
		"r1": {RoomID: "r1", Content: strPtr("v2")},
	}}
	svc := service.NewCollaborationService(mockRoomRepo, mockCodeRepo, w, false)
	ctx := context.Background()

	mockRoomRepo.On("EnsureExists", ctx, "r1").Return(false, nil).Once()
	mockCodeRepo.On("FindByRoomID", ctx, "r1").Return(&domain.CodeDocument{RoomID: "r1", Content: "v1", Language: "python"}, nil).Once()

	pending := svc.PendingUpdate("r1")
	require.NotNil(t, pending)
	got, err := svc.JoinRoom(ctx, "r1", pending)
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Content)
	assert.Equal(t, "python", got.Language)
}

func TestCollaborationService_JoinRoom_PendingEditWithoutStoredDocument(t *testing.T) {
	mockRoomRepo := new(mocks.RoomRepository)
	mockCodeRepo := new(mocks.CodeRepository)
	svc := service.NewCollaborationService(mockRoomRepo, mockCodeRepo, &captureWriter{}, false)
	ctx := context.Background()

	mockRoomRepo.On("EnsureExists", ctx, "r1").Return(true, nil).Once()
	mockCodeRepo.On("FindByRoomID", ctx, "r1").Return(nil, repository.ErrCodeNotFound).Once()

	update := domain.NewContentUpdate("r1", "first", "go")
	got, err := svc.JoinRoom(ctx, "r1", &update)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "first", got.Content)
	assert.Equal(t, "go", got.Language)
	assert.Nil(t, svc.PendingUpdate("r1"))
}

func TestCollaborationService_RecordCodeChange_DefaultsLanguage(t *testing.T) {
	w := &captureWriter{}
	svc := service.NewCollaborationService(new(mocks.RoomRepository), new(mocks.CodeRepository), w, false)

	svc.RecordCodeChange("r1", "x", "")

	require.Len(t, w.updates, 1)
	assert.Equal(t, "x", *w.updates[0].Content)
	assert.Equal(t, domain.DefaultLanguage, *w.updates[0].Language)
}

func TestCollaborationService_RecordLanguageChange(t *testing.T) {
	w := &captureWriter{}
	off := service.NewCollaborationService(new(mocks.RoomRepository), new(mocks.CodeRepository), w, false)
	assert.False(t, off.RecordLanguageChange("r1", "go"))
	assert.Empty(t, w.updates)

	on := service.NewCollaborationService(new(mocks.RoomRepository), new(mocks.CodeRepository), w, true)
	assert.True(t, on.RecordLanguageChange("r1", "go"))
	require.Len(t, w.updates, 1)
	assert.Nil(t, w.updates[0].Content)
	assert.Equal(t, "go", *w.updates[0].Language)
}

func TestCollaborationService_RecordRevert_ContentOnly(t *testing.T) {
	w := &captureWriter{}
	svc := service.NewCollaborationService(new(mocks.RoomRepository), new(mocks.CodeRepository), w, false)

	svc.RecordRevert("r1", "C")

	require.Len(t, w.updates, 1)
	assert.Equal(t, "C", *w.updates[0].Content)
	assert.Nil(t, w.updates[0].Language)
}

func TestCollaborationService_CurrentCode_NotFound(t *testing.T) {
	mockCodeRepo := new(mocks.CodeRepository)
	svc := service.NewCollaborationService(new(mocks.RoomRepository), mockCodeRepo, &captureWriter{}, false)
	ctx := context.Background()

	mockCodeRepo.On("FindByRoomID", ctx, "none").Return(nil, repository.ErrCodeNotFound).Once()

	_, err := svc.CurrentCode(ctx, "none")
	assert.ErrorIs(t, err, service.ErrCodeNotFound)
}

func TestNewCollaborationService_PanicsOnNilDeps(t *testing.T) {
	assert.Panics(t, func() {
		service.NewCollaborationService(nil, new(mocks.CodeRepository), &captureWriter{}, false)
	})
}
