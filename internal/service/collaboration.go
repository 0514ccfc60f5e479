package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"codybuddy/internal/domain"
	"codybuddy/internal/repository"
)

// CollaborationService owns the authoritative per-room CodeDocument.
// Broadcasting is done by the hub; this service only reads and persists state.
type CollaborationService struct {
	roomRepo        repository.RoomRepository
	codeRepo        repository.CodeRepository
	writer          CodeWriter
	persistLanguage bool
}

// NewCollaborationService creates a CollaborationService. persistLanguage controls whether
// language-change events are written to the CodeDocument.
func NewCollaborationService(
	roomRepo repository.RoomRepository,
	codeRepo repository.CodeRepository,
	writer CodeWriter,
	persistLanguage bool,
) *CollaborationService {
	if roomRepo == nil || codeRepo == nil || writer == nil {
		panic("All dependencies must be non-nil for CollaborationService")
	}
	return &CollaborationService{
		roomRepo:        roomRepo,
		codeRepo:        codeRepo,
		writer:          writer,
		persistLanguage: persistLanguage,
	}
}

// PendingUpdate returns the room's accepted edits that are not in the store yet, or nil.
// Take it before JoinRoom reads the store so the two together cover every accepted edit.
func (s *CollaborationService) PendingUpdate(roomID string) *domain.CodeUpdate {
	update, ok := s.writer.Pending(roomID)
	if !ok {
		return nil
	}
	return &update
}

// JoinRoom makes sure the room record exists and returns the room's current document with
// pending laid over it, or nil when nothing has been written yet.
// A failure to create the room is logged and does not stop the document lookup.
func (s *CollaborationService) JoinRoom(ctx context.Context, roomID string, pending *domain.CodeUpdate) (*domain.CodeDocument, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "operation": "JoinRoom"})

	if roomID == "" {
		return nil, ErrInvalidEvent
	}

	// 1. create-if-absent
	created, err := s.roomRepo.EnsureExists(ctx, roomID)
	if err != nil {
		logCtx.WithError(err).Error("Failed to ensure room record")
	} else if created {
		logCtx.Info("Room created")
	}

	// 2. current state for the joiner
	doc, err := s.codeRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		if !errors.Is(err, repository.ErrCodeNotFound) {
			logCtx.WithError(err).Error("Failed to load code document")
			return nil, ErrInternalServer
		}
		doc = nil
	}

	// 3. edits not stored yet win over the store
	if pending != nil {
		return doc.WithUpdate(*pending), nil
	}
	return doc, nil
}

// RecordCodeChange schedules persistence of a code edit. Empty language means the default.
func (s *CollaborationService) RecordCodeChange(roomID, code, language string) {
	s.writer.Enqueue(domain.NewContentUpdate(roomID, code, language))
}

// RecordLanguageChange schedules persistence of a language switch when enabled.
// It reports whether anything was scheduled.
func (s *CollaborationService) RecordLanguageChange(roomID, language string) bool {
	if !s.persistLanguage || language == "" {
		return false
	}
	s.writer.Enqueue(domain.CodeUpdate{RoomID: roomID, Language: &language})
	return true
}

// RecordRevert schedules a content-only write; the stored language is kept
func (s *CollaborationService) RecordRevert(roomID, content string) {
	s.writer.Enqueue(domain.CodeUpdate{RoomID: roomID, Content: &content})
}

// CurrentCode returns the persisted document of a room
func (s *CollaborationService) CurrentCode(ctx context.Context, roomID string) (*domain.CodeDocument, error) {
	doc, err := s.codeRepo.FindByRoomID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			return nil, ErrCodeNotFound
		}
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to load code document")
		return nil, ErrInternalServer
	}
	return doc, nil
}
