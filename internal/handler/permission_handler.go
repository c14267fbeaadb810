package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/permission"
	"interviewer/roomhub/internal/service"
	"interviewer/roomhub/pkg/response"
)

type PermissionHandler struct {
	securityService service.SecurityService
	catalog         *permission.Catalog
	logger          *zap.Logger
}

func NewPermissionHandler(securityService service.SecurityService, catalog *permission.Catalog, logger *zap.Logger) *PermissionHandler {
	return &PermissionHandler{
		securityService: securityService,
		catalog:         catalog,
		logger:          logger,
	}
}

type CatalogResponse struct {
	Permissions []model.Permission                 `json:"permissions"`
	Defaults    map[model.ParticipantType][]string `json:"defaults"`
}

// Catalog lists every permission and the default set of each participant type.
func (h *PermissionHandler) Catalog(c *gin.Context) {
	resp := CatalogResponse{
		Permissions: h.catalog.All(),
		Defaults:    make(map[model.ParticipantType][]string),
	}
	for _, t := range h.catalog.ParticipantTypes() {
		set, err := h.catalog.DefaultsFor(t)
		if err != nil {
			writeServiceError(c, h.logger, err)
			return
		}
		resp.Defaults[t] = h.catalog.Names(set.IDs())
	}
	response.Success(c, resp)
}

// Check reports whether the caller holds :permission in :room_id.
func (h *PermissionHandler) Check(c *gin.Context) {
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
	perm, err := permissionParam(c, h.catalog)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}

	decision, err := h.securityService.CheckRoomPermission(c.Request.Context(), userID, roomID, perm.ID)
	if err != nil {
		writeServiceError(c, h.logger, err)
		return
	}
	response.Success(c, decision)
}
