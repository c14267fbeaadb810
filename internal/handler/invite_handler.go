package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/service"
	"interviewer/roomhub/pkg/response"
)

type InviteHandler struct {
	inviteService service.InviteService
	logger        *zap.Logger
}

func NewInviteHandler(inviteService service.InviteService, logger *zap.Logger) *InviteHandler {
	return &InviteHandler{inviteService: inviteService, logger: logger}
}

// Apply redeems an invite for the caller. 201 when the caller joined, 200
// when they were already a participant.
func (h *InviteHandler) Apply(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	inviteID, err := uuidParam(c, "invite_id")
	if err != nil {
		response.BadRequest(c, "invalid invite id")
		return
	}

	desc, err := h.inviteService.ApplyInvite(c.Request.Context(), inviteID, userID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	if desc.Created {
		response.Created(c, desc)
		return
	}
	response.Success(c, desc)
}

func (h *InviteHandler) ListRoomInvites(c *gin.Context) {
	roomID, err := uuidParam(c, "room_id")
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}

	views, err := h.inviteService.ListRoomInvites(c.Request.Context(), roomID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, views)
}

func (h *InviteHandler) GenerateRoomInvites(c *gin.Context) {
	roomID, err := uuidParam(c, "room_id")
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}

	views, err := h.inviteService.GenerateRoomInvites(c.Request.Context(), roomID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, views)
}

func (h *InviteHandler) RegenerateRoomInvite(c *gin.Context) {
	roomID, err := uuidParam(c, "room_id")
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}

	view, err := h.inviteService.RegenerateRoomInvite(c.Request.Context(), roomID, model.ParticipantType(c.Param("type")))
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Created(c, view)
}
