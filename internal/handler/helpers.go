package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"interviewer/roomhub/internal/handler/middleware"
	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/permission"
)

var ErrNoClaims = errors.New("claims not found in context")

func getUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	userID, ok := middleware.UserID(c)
	if !ok {
		return uuid.Nil, ErrNoClaims
	}
	return userID, nil
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Param(name))
}

// permissionParam resolves a permission by its catalog name.
func permissionParam(c *gin.Context, catalog *permission.Catalog) (model.Permission, error) {
	return catalog.ByName(c.Param("permission"))
}
