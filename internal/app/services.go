package app

import (
	"fmt"

	"github.com/headstart-dev/headstart-backend/internal/clients/openai"
	"github.com/headstart-dev/headstart-backend/internal/clients/redis"
	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/services"
)

type Services struct {
	Auth           services.AuthService
	OAuth          services.OAuthService
	User           services.UserService
	Content        services.ContentService
	Recommendation services.RecommendationService
}

func wireServices(log *logger.Logger, cfg Config, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	aiClient, err := openai.NewClient(log)
	if err != nil {
		return Services{}, fmt.Errorf("init openai client: %w", err)
	}

	// The feed works without a cache; a missing Redis just means every
	// request recomputes.
	cache, err := redis.NewRecommendationCache(log)
	if err != nil {
		log.Warn("Recommendation cache unavailable, feeds will recompute", "error", err.Error())
		cache = nil
	}

	authService, err := services.NewAuthService(log, services.AuthConfig{
		JWTSecret:  cfg.JWTSecretKey,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, reposet.User, reposet.UserToken)
	if err != nil {
		return Services{}, fmt.Errorf("init auth service: %w", err)
	}

	oauthService := services.NewOAuthService(log, cfg.OAuth, reposet.User)

	processor := services.NewContentProcessor(log, services.ContentProcessorConfig{
		YouTubeAPIKey: cfg.YouTubeAPIKey,
		ArxivBaseURL:  cfg.ArxivBaseURL,
	})
	contentService := services.NewContentService(log, processor, aiClient, reposet.ContentItem, reposet.UserInteraction, cache)

	userService := services.NewUserService(log, reposet.User, reposet.UserPreference,
		reposet.UserInteraction, reposet.ContentItem, reposet.LearningSession, reposet.Recommendation, cache)

	recService := services.NewRecommendationService(log, services.RecommendationConfig{
		AlgorithmVersion:     cfg.AlgorithmVersion,
		CacheTTL:             cfg.FeedCacheTTL,
		MinScoreThreshold:    cfg.MinScoreThreshold,
		RecentInterestWindow: cfg.RecentInterestWindow,
	}, aiClient, cache, reposet.UserPreference, reposet.UserInteraction, reposet.ContentItem, reposet.Recommendation)

	return Services{
		Auth:           authService,
		OAuth:          oauthService,
		User:           userService,
		Content:        contentService,
		Recommendation: recService,
	}, nil
}
