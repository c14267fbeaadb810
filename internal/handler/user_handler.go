package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/service"
	"interviewer/roomhub/pkg/response"
)

type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// ChangeRole sets a user's global role. The caller must be an admin.
func (h *UserHandler) ChangeRole(c *gin.Context) {
	actorID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	userID, err := uuidParam(c, "user_id")
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	var req ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.userService.ChangeRole(c.Request.Context(), actorID, userID, model.UserRole(req.Role))
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, user)
}
