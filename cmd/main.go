package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pathbyte/pathbyte-backend/internal/catalog"
	redisclient "github.com/pathbyte/pathbyte-backend/internal/clients/redis"
	"github.com/pathbyte/pathbyte-backend/internal/db"
	"github.com/pathbyte/pathbyte-backend/internal/handlers"
	"github.com/pathbyte/pathbyte-backend/internal/localstore"
	"github.com/pathbyte/pathbyte-backend/internal/logger"
	"github.com/pathbyte/pathbyte-backend/internal/middleware"
	"github.com/pathbyte/pathbyte-backend/internal/repos"
	"github.com/pathbyte/pathbyte-backend/internal/server"
	"github.com/pathbyte/pathbyte-backend/internal/services"
	"github.com/pathbyte/pathbyte-backend/internal/sse"
	"github.com/pathbyte/pathbyte-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	port := utils.GetEnv("PORT", "8080", log)
	progressBackend := utils.GetEnv("PROGRESS_BACKEND", "postgres", log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.EnsureRollupTrigger(); err != nil {
		log.Error("Rollup trigger install failed", "error", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	roadmapProgressRepo := repos.NewRoadmapProgressRepo(thePG, log)
	roadmapItemProgressRepo := repos.NewRoadmapItemProgressRepo(thePG, log)
	subSkillNoteRepo := repos.NewRoadmapSubSkillNoteRepo(thePG, log)

	// Roadmap catalog
	cat, err := catalog.Load()
	if err != nil {
		log.Error("Could not load roadmap catalog", "error", err)
		os.Exit(1)
	}

	// SSE
	log.Info("Setting up SSE hub now...")
	sseHub := sse.NewSSEHub(log)
	var sseBus redisclient.SSEBus
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		sseBus, err = redisclient.NewSSEBus(log)
		if err != nil {
			log.Warn("Redis SSE bus init failed, running single-instance", "error", err)
			sseBus = nil
		} else {
			if err := sseBus.StartForwarder(context.Background(), sseHub.Publish); err != nil {
				log.Warn("Redis SSE forwarder failed to start", "error", err)
			}
			defer sseBus.Close()
		}
	}

	// Services
	log.Info("Setting up Services from main...")
	authService := services.NewAuthService(
		thePG,
		log,
		userRepo,
		userTokenRepo,
		jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second,
		time.Duration(refreshTokenTTL)*time.Second,
	)
	userService := services.NewUserService(thePG, log, userRepo)
	notifier := services.NewSSEProgressNotifier(log, sseHub, sseBus)

	var progressService services.ProgressService
	if progressBackend == "local" {
		// Offline fallback: same facade, one JSON document per owner.
		storePath := utils.GetEnv("LOCAL_STORE_PATH", "pathbyte-progress.json", log)
		progressService, err = localstore.New(log, storePath)
		if err != nil {
			log.Error("Could not init local progress store", "error", err)
			os.Exit(1)
		}
	} else {
		progressService = services.NewProgressService(
			thePG,
			log,
			userRepo,
			roadmapProgressRepo,
			roadmapItemProgressRepo,
			subSkillNoteRepo,
			notifier,
		)
	}

	// Handlers
	log.Info("Setting up handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService)
	progressHandler := handlers.NewProgressHandler(log, progressService)
	roadmapHandler := handlers.NewRoadmapHandler(cat)
	sseHandler := handlers.NewSSEHandler(log, sseHub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:     authHandler,
		AuthMiddleware:  authMiddleware,
		UserHandler:     userHandler,
		ProgressHandler: progressHandler,
		RoadmapHandler:  roadmapHandler,
		SSEHandler:      sseHandler,
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Error("Server exited", "error", err)
		os.Exit(1)
	}
}
