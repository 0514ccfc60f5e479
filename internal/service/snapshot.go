package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"codybuddy/internal/domain"
	"codybuddy/internal/repository"
)

// SnapshotService creates, lists and resolves room snapshots
type SnapshotService struct {
	snapshotRepo repository.SnapshotRepository
	publisher    repository.EventPublisher
}

// NewSnapshotService creates a SnapshotService
func NewSnapshotService(snapshotRepo repository.SnapshotRepository, publisher repository.EventPublisher) *SnapshotService {
	if snapshotRepo == nil || publisher == nil {
		panic("All dependencies must be non-nil for SnapshotService")
	}
	return &SnapshotService{
		snapshotRepo: snapshotRepo,
		publisher:    publisher,
	}
}

// CreateSnapshot stores an immutable copy of code for the room
func (s *SnapshotService) CreateSnapshot(ctx context.Context, roomID, code, userName string) (*domain.Snapshot, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "user_name": userName, "operation": "CreateSnapshot"})

	// a snapshot needs a room, some code and an author
	if roomID == "" || code == "" || userName == "" {
		logCtx.Warn("Rejecting incomplete snapshot request")
		return nil, ErrInvalidEvent
	}

	snapshot := &domain.Snapshot{
		ID:        uuid.NewString(),
		RoomID:    roomID,
		Content:   code,
		Author:    userName,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.snapshotRepo.Create(ctx, snapshot); err != nil {
		logCtx.WithError(err).Error("Failed to save snapshot")
		return nil, ErrInternalServer
	}
	logCtx.WithField("snapshot_id", snapshot.ID).Info("Snapshot saved")

	s.publish(ctx, repository.RoomEvent{
		Type:       repository.EventSnapshotSaved,
		RoomID:     roomID,
		SnapshotID: snapshot.ID,
		Author:     userName,
		OccurredAt: snapshot.CreatedAt,
	})
	return snapshot, nil
}

// ListSnapshots returns the room's snapshots, newest first
func (s *SnapshotService) ListSnapshots(ctx context.Context, roomID string) ([]domain.Snapshot, error) {
	snapshots, err := s.snapshotRepo.ListByRoom(ctx, roomID)
	if err != nil {
		logrus.WithField("room_id", roomID).WithError(err).Error("Failed to list snapshots")
		return nil, ErrInternalServer
	}
	return snapshots, nil
}

// ResolveRevert looks up the snapshot a room is being reverted to.
// A snapshot that belongs to another room is treated as missing.
func (s *SnapshotService) ResolveRevert(ctx context.Context, roomID, snapshotID string) (*domain.Snapshot, error) {
	logCtx := logrus.WithFields(logrus.Fields{"room_id": roomID, "snapshot_id": snapshotID, "operation": "ResolveRevert"})

	if roomID == "" || snapshotID == "" {
		return nil, ErrInvalidEvent
	}

	snapshot, err := s.snapshotRepo.FindByID(ctx, snapshotID)
	if err != nil {
		if errors.Is(err, repository.ErrSnapshotNotFound) {
			return nil, ErrSnapshotNotFound
		}
		logCtx.WithError(err).Error("Failed to load snapshot")
		return nil, ErrInternalServer
	}
	if snapshot.RoomID != roomID {
		logCtx.WithField("owner_room_id", snapshot.RoomID).Warn("Snapshot belongs to another room")
		return nil, ErrSnapshotNotFound
	}
	return snapshot, nil
}

// RecordRevert publishes the audit event of a completed revert
func (s *SnapshotService) RecordRevert(ctx context.Context, snapshot *domain.Snapshot) {
	s.publish(ctx, repository.RoomEvent{
		Type:       repository.EventRoomReverted,
		RoomID:     snapshot.RoomID,
		SnapshotID: snapshot.ID,
		OccurredAt: time.Now().UTC(),
	})
}

func (s *SnapshotService) publish(ctx context.Context, event repository.RoomEvent) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		logrus.WithFields(logrus.Fields{
			"room_id":    event.RoomID,
			"event_type": event.Type,
		}).WithError(err).Warn("Failed to publish room event")
	}
}
