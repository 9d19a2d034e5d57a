package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/headstart-dev/headstart-backend/internal/handlers"
	"github.com/headstart-dev/headstart-backend/internal/middleware"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

type RouterConfig struct {
	AuthHandler           *handlers.AuthHandler
	AuthMiddleware        *middleware.AuthMiddleware
	UserHandler           *handlers.UserHandler
	ContentHandler        *handlers.ContentHandler
	RecommendationHandler *handlers.RecommendationHandler
	AllowedOrigins        []string
	TracingEnabled        bool
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	if cfg.TracingEnabled {
		router.Use(otelgin.Middleware("headstart"))
	}

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)

	auth := router.Group("/api/auth")
	{
		auth.POST("/register", cfg.AuthHandler.Register)
		auth.POST("/login", cfg.AuthHandler.Login)
		auth.POST("/refresh", cfg.AuthHandler.Refresh)
		auth.POST("/oauth/init", cfg.AuthHandler.OAuthInit)
		auth.POST("/oauth/callback", cfg.AuthHandler.OAuthCallback)
		auth.GET("/oauth/providers", cfg.AuthHandler.OAuthProviders)
	}

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Auth
	protected.POST("/auth/logout", cfg.AuthHandler.Logout)
	protected.GET("/auth/profile", cfg.AuthHandler.GetProfile)
	protected.PUT("/auth/profile", cfg.AuthHandler.UpdateProfile)

	// User
	protected.GET("/user/preferences", cfg.UserHandler.GetPreferences)
	protected.PUT("/user/preferences", cfg.UserHandler.UpdatePreferences)
	protected.GET("/user/dashboard", cfg.UserHandler.GetDashboard)
	protected.GET("/user/progress", cfg.UserHandler.GetProgress)
	protected.POST("/user/feedback", cfg.UserHandler.SubmitFeedback)

	// Content
	protected.POST("/content", cfg.ContentHandler.Ingest)
	protected.POST("/content/upload", cfg.ContentHandler.Upload)
	protected.POST("/content/batch", cfg.ContentHandler.IngestBatch)
	protected.GET("/content/stats", cfg.ContentHandler.Stats)
	protected.PUT("/content/:id/status",
		cfg.AuthMiddleware.RequireRole(types.RoleAdmin),
		cfg.ContentHandler.UpdateStatus)
	protected.POST("/content/interactions", cfg.ContentHandler.RecordInteraction)

	// Recommendations
	protected.GET("/recommendations/feed", cfg.RecommendationHandler.Feed)
	protected.POST("/recommendations/refresh", cfg.RecommendationHandler.Refresh)
	protected.POST("/recommendations/feedback", cfg.RecommendationHandler.Feedback)
	protected.GET("/recommendations/explain/:id", cfg.RecommendationHandler.Explain)
	protected.GET("/recommendations/history", cfg.RecommendationHandler.History)

	return router
}
