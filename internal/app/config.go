package app

import (
	"strings"
	"time"

	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/services"
	"github.com/headstart-dev/headstart-backend/internal/utils"
)

type Config struct {
	JWTSecretKey    string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	OAuth services.OAuthConfig

	YouTubeAPIKey string
	ArxivBaseURL  string

	UploadDir     string
	MaxUploadSize int64

	AlgorithmVersion     string
	FeedCacheTTL         time.Duration
	MinScoreThreshold    float64
	RecentInterestWindow int

	AllowedOrigins []string
}

func LoadConfig(log *logger.Logger) Config {
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTLSeconds := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 1800, log)
	refreshTokenTTLSeconds := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 604800, log)

	oauth := services.OAuthConfig{
		Providers: map[string]services.OAuthProviderConfig{
			services.ProviderGoogle: {
				ClientID:     utils.GetEnv("GOOGLE_CLIENT_ID", "", log),
				ClientSecret: utils.GetEnv("GOOGLE_CLIENT_SECRET", "", log),
			},
			services.ProviderGitHub: {
				ClientID:     utils.GetEnv("GITHUB_CLIENT_ID", "", log),
				ClientSecret: utils.GetEnv("GITHUB_CLIENT_SECRET", "", log),
			},
		},
	}

	originsRaw := utils.GetEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173", log)
	var origins []string
	for _, origin := range strings.Split(originsRaw, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}

	return Config{
		JWTSecretKey:         jwtSecretKey,
		AccessTokenTTL:       time.Duration(accessTokenTTLSeconds) * time.Second,
		RefreshTokenTTL:      time.Duration(refreshTokenTTLSeconds) * time.Second,
		OAuth:                oauth,
		YouTubeAPIKey:        utils.GetEnv("YOUTUBE_API_KEY", "", log),
		ArxivBaseURL:         utils.GetEnv("ARXIV_API_BASE_URL", "http://export.arxiv.org/api/query", log),
		UploadDir:            utils.GetEnv("UPLOAD_DIR", "/tmp/headstart-uploads", log),
		MaxUploadSize:        int64(utils.GetEnvAsInt("MAX_UPLOAD_SIZE_MB", 50, log)) << 20,
		AlgorithmVersion:     utils.GetEnv("RECOMMENDATION_ALGORITHM_VERSION", "v1.0", log),
		FeedCacheTTL:         time.Duration(utils.GetEnvAsInt("FEED_CACHE_TTL_SECONDS", 3600, log)) * time.Second,
		MinScoreThreshold:    utils.GetEnvAsFloat("RECOMMENDATION_MIN_SCORE", 0.3, log),
		RecentInterestWindow: utils.GetEnvAsInt("RECOMMENDATION_RECENT_WINDOW", 5, log),
		AllowedOrigins:       origins,
	}
}
