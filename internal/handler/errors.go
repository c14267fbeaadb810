package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"interviewer/roomhub/internal/service"
	"interviewer/roomhub/pkg/response"
)

// writeServiceError maps service errors to HTTP responses. Anything not
// recognised is an opaque 500.
func writeServiceError(c *gin.Context, logger *zap.Logger, err error) {
	var denied *service.AccessDeniedError
	switch {
	case errors.Is(err, service.ErrInviteNotFound),
		errors.Is(err, service.ErrRoomInviteNotFound),
		errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrParticipantNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrInviteAlreadyUsed),
		errors.Is(err, service.ErrParticipantAlreadyExists),
		errors.Is(err, service.ErrConcurrentRedemption),
		errors.Is(err, service.ErrConcurrentInviteChange):
		response.Conflict(c, err.Error())
	case errors.As(err, &denied):
		response.Forbidden(c, denied.Error())
	case errors.Is(err, service.ErrUnknownPermission),
		errors.Is(err, service.ErrUnknownParticipantType),
		errors.Is(err, service.ErrUnknownRole):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrIntegrityViolation):
		// Already logged with ids by the service.
		response.InternalError(c, "internal server error")
	default:
		logger.Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		response.InternalError(c, "internal server error")
	}
}
