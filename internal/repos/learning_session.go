package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

type LearningSessionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, sessions []*types.LearningSession) ([]*types.LearningSession, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.LearningSession, error)
	End(ctx context.Context, tx *gorm.DB, id uuid.UUID, endedAt time.Time, progress float64) error
}

type learningSessionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearningSessionRepo(db *gorm.DB, baseLog *logger.Logger) LearningSessionRepo {
	repoLog := baseLog.With("repo", "LearningSessionRepo")
	return &learningSessionRepo{db: db, log: repoLog}
}

func (r *learningSessionRepo) Create(ctx context.Context, tx *gorm.DB, sessions []*types.LearningSession) ([]*types.LearningSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(sessions) == 0 {
		return []*types.LearningSession{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&sessions).Error; err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *learningSessionRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.LearningSession, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.LearningSession
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("started_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *learningSessionRepo) End(ctx context.Context, tx *gorm.DB, id uuid.UUID, endedAt time.Time, progress float64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.LearningSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ended_at":            endedAt,
			"progress_percentage": progress,
		}).Error
}
