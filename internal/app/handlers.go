package app

import (
	"github.com/headstart-dev/headstart-backend/internal/handlers"
	"github.com/headstart-dev/headstart-backend/internal/logger"
)

type Handlers struct {
	Auth           *handlers.AuthHandler
	User           *handlers.UserHandler
	Content        *handlers.ContentHandler
	Recommendation *handlers.RecommendationHandler
}

func wireHandlers(log *logger.Logger, cfg Config, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth: handlers.NewAuthHandler(serviceset.Auth, serviceset.OAuth, serviceset.User),
		User: handlers.NewUserHandler(serviceset.User),
		Content: handlers.NewContentHandler(handlers.ContentHandlerConfig{
			UploadDir:     cfg.UploadDir,
			MaxUploadSize: cfg.MaxUploadSize,
		}, serviceset.Content),
		Recommendation: handlers.NewRecommendationHandler(serviceset.Recommendation),
	}
}
