package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"interviewer/roomhub/internal/config"
	"interviewer/roomhub/internal/handler/middleware"
	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/permission"
	"interviewer/roomhub/internal/service"
	jwtpkg "interviewer/roomhub/pkg/jwt"
)

func SetupRouter(
	cfg *config.Config,
	logger *zap.Logger,
	jwtManager *jwtpkg.Manager,
	securityService service.SecurityService,
	inviteHandler *InviteHandler,
	participantHandler *ParticipantHandler,
	permissionHandler *PermissionHandler,
	userHandler *UserHandler,
) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	guard := func(perm model.PermissionID) gin.HandlerFunc {
		return middleware.RoomPermission(securityService, perm, logger)
	}

	api := r.Group("/api/v1")
	api.Use(middleware.JWTAuth(jwtManager))
	{
		api.POST("/invites/:invite_id/apply",
			middleware.RateLimitByUser(cfg.RateLimit, logger),
			inviteHandler.Apply,
		)
		api.GET("/permissions", permissionHandler.Catalog)
		api.PUT("/users/:user_id/role", userHandler.ChangeRole)
	}

	rooms := api.Group("/rooms/:room_id")
	{
		rooms.GET("/permissions/:permission", permissionHandler.Check)
		rooms.GET("/participants/me", participantHandler.Me)

		rooms.GET("/participants", guard(permission.RoomParticipantList), participantHandler.List)
		rooms.POST("/participants", guard(permission.RoomParticipantCreate), participantHandler.Add)
		rooms.PUT("/participants/:user_id/type", guard(permission.RoomParticipantChangeStatus), participantHandler.ChangeType)
		rooms.PUT("/participants/:user_id/permissions/:permission",
			guard(permission.RoomParticipantPermissionUpdate), participantHandler.GrantPermission)
		rooms.DELETE("/participants/:user_id/permissions/:permission",
			guard(permission.RoomParticipantPermissionUpdate), participantHandler.RevokePermission)

		rooms.GET("/invites", guard(permission.RoomInviteList), inviteHandler.ListRoomInvites)
		rooms.POST("/invites", guard(permission.RoomInviteGenerate), inviteHandler.GenerateRoomInvites)
		rooms.POST("/invites/:type/regenerate", guard(permission.RoomInviteGenerate), inviteHandler.RegenerateRoomInvite)
	}

	return r
}
