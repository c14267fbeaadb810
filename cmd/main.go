package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"interviewer/roomhub/internal/config"
	"interviewer/roomhub/internal/handler"
	"interviewer/roomhub/internal/model"
	"interviewer/roomhub/internal/permission"
	"interviewer/roomhub/internal/repository"
	"interviewer/roomhub/internal/service"
	jwtpkg "interviewer/roomhub/pkg/jwt"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the config file")
	flag.Parse()

	// 1. Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	catalog := permission.Default()

	// 3. Store of record (PostgreSQL or in-memory)
	var store repository.Store
	switch cfg.State.Backend {
	case "postgres":
		db, err := config.NewPostgresDB(cfg.Database.Postgres)
		if err != nil {
			logger.Fatal("failed to connect to postgres", zap.Error(err))
		}
		if cfg.Database.Postgres.AutoMigrate {
			if err := model.AutoMigrate(db, catalog.All()); err != nil {
				logger.Fatal("failed to auto-migrate", zap.Error(err))
			}
			logger.Info("database migration completed")
		}
		store = repository.NewPGStore(db)
		logger.Info("using PostgreSQL store")
	case "memory":
		store = repository.NewMemoryStore()
		logger.Warn("using in-memory store, data is lost on exit")
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.State.Backend))
	}

	// 4. Permission cache backend (Redis, in-memory, or none)
	var cache *service.PermissionCache
	switch cfg.Cache.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		cache = service.NewPermissionCache(
			repository.NewRedisStateStore(redisClient, "roomhub:"),
			cfg.Cache.TTL, cfg.Cache.EpochTTL, logger,
		)
		logger.Info("using Redis permission cache")
	case "memory":
		cache = service.NewPermissionCache(repository.NewMemoryStateStore(), cfg.Cache.TTL, cfg.Cache.EpochTTL, logger)
		logger.Info("using in-memory permission cache")
	case "none":
		logger.Info("permission cache disabled")
	default:
		logger.Fatal("unknown cache backend", zap.String("backend", cfg.Cache.Backend))
	}

	// 5. JWT manager
	if cfg.JWT.SigningKey == "" {
		logger.Fatal("jwt.signing_key is required")
	}
	jwtManager := jwtpkg.NewManager(cfg.JWT.SigningKey, cfg.JWT.Issuer, cfg.JWT.AccessTokenTTL)

	// 6. Services
	registry := service.NewParticipantRegistry(catalog)
	securityService := service.NewSecurityService(store, registry, cache, logger)
	inviteService := service.NewInviteService(store, registry, cache, logger, cfg.Invite.MaxAttempts)
	participantService := service.NewParticipantService(store, registry, cache, logger)
	userService := service.NewUserService(store, cache, logger)

	// 7. Handlers and router
	router := handler.SetupRouter(cfg, logger, jwtManager, securityService,
		handler.NewInviteHandler(inviteService, logger),
		handler.NewParticipantHandler(participantService, catalog, logger),
		handler.NewPermissionHandler(securityService, catalog, logger),
		handler.NewUserHandler(userService, logger),
	)

	// 8. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 9. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	logger.Info("server exited gracefully")
}
