package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"codybuddy/internal/service"
)

// HandleServiceError maps service errors to HTTP responses
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCodeNotFound), errors.Is(err, service.ErrSnapshotNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidEvent):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
