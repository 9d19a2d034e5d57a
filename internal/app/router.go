package app

import (
	"github.com/gin-gonic/gin"

	"github.com/headstart-dev/headstart-backend/internal/observability"
	"github.com/headstart-dev/headstart-backend/internal/server"
)

func wireRouter(cfg Config, handlerset Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthHandler:           handlerset.Auth,
		AuthMiddleware:        mw.Auth,
		UserHandler:           handlerset.User,
		ContentHandler:        handlerset.Content,
		RecommendationHandler: handlerset.Recommendation,
		AllowedOrigins:        cfg.AllowedOrigins,
		TracingEnabled:        observability.Enabled(),
	})
}
