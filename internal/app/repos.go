package app

import (
	"gorm.io/gorm"

	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/repos"
)

type Repos struct {
	User            repos.UserRepo
	UserToken       repos.UserTokenRepo
	UserPreference  repos.UserPreferenceRepo
	ContentItem     repos.ContentItemRepo
	UserInteraction repos.UserInteractionRepo
	Recommendation  repos.RecommendationRepo
	LearningSession repos.LearningSessionRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		User:            repos.NewUserRepo(db, log),
		UserToken:       repos.NewUserTokenRepo(db, log),
		UserPreference:  repos.NewUserPreferenceRepo(db, log),
		ContentItem:     repos.NewContentItemRepo(db, log),
		UserInteraction: repos.NewUserInteractionRepo(db, log),
		Recommendation:  repos.NewRecommendationRepo(db, log),
		LearningSession: repos.NewLearningSessionRepo(db, log),
	}
}
