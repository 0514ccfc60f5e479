package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"codybuddy/internal/service"
)

// MemberLister reports live room membership
type MemberLister interface {
	Members(roomID string) []string
}

// RoomHandler serves read-only room state over REST
type RoomHandler struct {
	collabService   *service.CollaborationService
	snapshotService *service.SnapshotService
	members         MemberLister
}

// NewRoomHandler creates a RoomHandler
func NewRoomHandler(collabService *service.CollaborationService, snapshotService *service.SnapshotService, members MemberLister) *RoomHandler {
	if collabService == nil || snapshotService == nil || members == nil {
		panic("All dependencies must be non-nil for RoomHandler")
	}
	return &RoomHandler{
		collabService:   collabService,
		snapshotService: snapshotService,
		members:         members,
	}
}

// GetCode handles GET /api/rooms/:roomId/code
func (h *RoomHandler) GetCode(c *gin.Context) {
	doc, err := h.collabService.CurrentCode(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, doc)
}

// ListSnapshots handles GET /api/rooms/:roomId/snapshots, newest first
func (h *RoomHandler) ListSnapshots(c *gin.Context) {
	snapshots, err := h.snapshotService.ListSnapshots(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"snapshots": snapshots})
}

// GetMembers handles GET /api/rooms/:roomId/members
func (h *RoomHandler) GetMembers(c *gin.Context) {
	members := h.members.Members(c.Param("roomId"))
	if members == nil {
		members = []string{}
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"roomId":  c.Param("roomId"),
		"count":   len(members),
		"members": members,
	})
}
