package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/permission"
	"interviewer/roomhub/internal/service"
	"interviewer/roomhub/pkg/response"
)

type ParticipantHandler struct {
	participantService service.ParticipantService
	catalog            *permission.Catalog
	logger             *zap.Logger
}

func NewParticipantHandler(participantService service.ParticipantService, catalog *permission.Catalog, logger *zap.Logger) *ParticipantHandler {
	return &ParticipantHandler{
		participantService: participantService,
		catalog:            catalog,
		logger:             logger,
	}
}

type AddParticipantRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Type   string `json:"type" binding:"required"`
}

type ChangeTypeRequest struct {
	Type string `json:"type" binding:"required"`
}

// roomAndUser reads :room_id and :user_id.
func roomAndUser(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	roomID, err := uuidParam(c, "room_id")
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return uuid.Nil, uuid.Nil, false
	}
	userID, err := uuidParam(c, "user_id")
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return uuid.Nil, uuid.Nil, false
	}
	return roomID, userID, true
}

// Me returns the caller's own participant record.
func (h *ParticipantHandler) Me(c *gin.Context) {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "invalid user context")
		return
	}
	roomID, err := uuidParam(c, "room_id")
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}

	desc, err := h.participantService.GetParticipant(c.Request.Context(), roomID, userID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, desc)
}

func (h *ParticipantHandler) List(c *gin.Context) {
	roomID, err := uuidParam(c, "room_id")
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}

	list, err := h.participantService.ListParticipants(c.Request.Context(), roomID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, list)
}

func (h *ParticipantHandler) Add(c *gin.Context) {
	roomID, err := uuidParam(c, "room_id")
	if err != nil {
		response.BadRequest(c, "invalid room id")
		return
	}

	var req AddParticipantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		response.BadRequest(c, "invalid user id")
		return
	}

	desc, err := h.participantService.AddParticipant(c.Request.Context(), roomID, userID, model.ParticipantType(req.Type))
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Created(c, desc)
}

func (h *ParticipantHandler) ChangeType(c *gin.Context) {
	roomID, userID, ok := roomAndUser(c)
	if !ok {
		return
	}

	var req ChangeTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	desc, err := h.participantService.ChangeParticipantType(c.Request.Context(), roomID, userID, model.ParticipantType(req.Type))
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, desc)
}

func (h *ParticipantHandler) GrantPermission(c *gin.Context) {
	h.updatePermission(c, h.participantService.GrantPermission)
}

func (h *ParticipantHandler) RevokePermission(c *gin.Context) {
	h.updatePermission(c, h.participantService.RevokePermission)
}

type permissionUpdate func(ctx context.Context, roomID, userID uuid.UUID, perm model.PermissionID) (*service.ParticipantDescriptor, error)

func (h *ParticipantHandler) updatePermission(c *gin.Context, update permissionUpdate) {
	roomID, userID, ok := roomAndUser(c)
	if !ok {
		return
	}
	perm, err := permissionParam(c, h.catalog)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	desc, err := update(c.Request.Context(), roomID, userID, perm.ID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, desc)
}
