package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pathbyte/pathbyte-backend/internal/handlers"
	"github.com/pathbyte/pathbyte-backend/internal/middleware"
)

type RouterConfig struct {
	AuthHandler     *handlers.AuthHandler
	AuthMiddleware  *middleware.AuthMiddleware
	UserHandler     *handlers.UserHandler
	ProgressHandler *handlers.ProgressHandler
	RoadmapHandler  *handlers.RoadmapHandler
	SSEHandler      *handlers.SSEHandler
	AllowOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	allowOrigins := cfg.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Refresh-Token"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	api := router.Group("/api")
	{
		api.POST("/register", cfg.AuthHandler.Register)
		api.POST("/login", cfg.AuthHandler.Login)
		// Roadmap content is public; progress underneath it is not.
		api.GET("/roadmaps", cfg.RoadmapHandler.ListRoadmaps)
		api.GET("/roadmaps/:roleId/:tierId", cfg.RoadmapHandler.GetTier)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/")
	protected.Use(cfg.AuthMiddleware.RequireAuth())
	// Auth
	protected.POST("/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/logout", cfg.AuthHandler.Logout)
	// User
	protected.GET("/user", cfg.UserHandler.GetMe)
	protected.PUT("/user/roadmap-prefs", cfg.UserHandler.UpdateRoadmapPrefs)
	protected.DELETE("/user", cfg.UserHandler.DeleteAccount)
	// Progress
	protected.GET("/progress/export", cfg.ProgressHandler.ExportSnapshot)
	protected.POST("/progress/import", cfg.ProgressHandler.ImportSnapshot)
	protected.PUT("/progress/:roleId/:tierId/items", cfg.ProgressHandler.ToggleItem)
	protected.GET("/progress/:roleId/:tierId/items", cfg.ProgressHandler.ListTierItems)
	protected.GET("/progress/:roleId/:tierId/item", cfg.ProgressHandler.GetItemState)
	protected.PUT("/progress/:roleId/:tierId/subskills", cfg.ProgressHandler.SetSubSkillNote)
	protected.GET("/progress/:roleId/:tierId/subskills", cfg.ProgressHandler.GetSubSkillNote)
	protected.GET("/progress/:roleId/:tierId", cfg.ProgressHandler.GetTierProgress)
	protected.DELETE("/progress/:roleId/:tierId", cfg.ProgressHandler.ResetTier)
	// SSE
	protected.GET("/sse/stream", cfg.SSEHandler.SSEStream)
	protected.POST("/sse/subscribe", cfg.SSEHandler.SSESubscribe)
	protected.POST("/sse/unsubscribe", cfg.SSEHandler.SSEUnsubscribe)

	return router
}
