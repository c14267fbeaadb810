package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/service"
	"interviewer/roomhub/pkg/response"
)

// RoomPermission lets the request through only if the authenticated user holds
// perm in the room named by the :room_id path parameter. Must be used after
// JWTAuth.
func RoomPermission(security service.SecurityService, perm model.PermissionID, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			response.Unauthorized(c, "missing authentication")
			c.Abort()
			return
		}

		roomID, err := uuid.Parse(c.Param("room_id"))
		if err != nil {
			response.BadRequest(c, "invalid room id")
			c.Abort()
			return
		}

		err = security.EnsureRoomPermission(c.Request.Context(), userID, roomID, perm)
		if err == nil {
			c.Next()
			return
		}

		var denied *service.AccessDeniedError
		switch {
		case errors.As(err, &denied):
			response.Forbidden(c, denied.Error())
		default:
			logger.Error("room permission check failed",
				zap.String("user_id", userID.String()),
				zap.String("room_id", roomID.String()),
				zap.Error(err),
			)
			response.InternalError(c, "permission check failed")
		}
		c.Abort()
	}
}
