package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

type UserInteractionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, interactions []*types.UserInteraction) ([]*types.UserInteraction, error)
	// GetByUserID returns the user's interactions ordered most recent
	// first. The scoring engine's recent-interest window depends on this
	// ordering.
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserInteraction, error)
	CountByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	CountCompletedByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	SumTimeSpentByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error)
	CountActiveDaysSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (int64, error)
}

type userInteractionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserInteractionRepo(db *gorm.DB, baseLog *logger.Logger) UserInteractionRepo {
	repoLog := baseLog.With("repo", "UserInteractionRepo")
	return &userInteractionRepo{db: db, log: repoLog}
}

func (r *userInteractionRepo) Create(ctx context.Context, tx *gorm.DB, interactions []*types.UserInteraction) ([]*types.UserInteraction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(interactions) == 0 {
		return []*types.UserInteraction{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&interactions).Error; err != nil {
		return nil, err
	}
	return interactions, nil
}

func (r *userInteractionRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserInteraction, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.UserInteraction
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *userInteractionRepo) CountByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.UserInteraction{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userInteractionRepo) CountCompletedByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.UserInteraction{}).
		Where("user_id = ? AND interaction_type = ?", userID, types.InteractionComplete).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userInteractionRepo) SumTimeSpentByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total *int64
	if err := transaction.WithContext(ctx).
		Model(&types.UserInteraction{}).
		Select("SUM(time_spent_minutes)").
		Where("user_id = ?", userID).
		Scan(&total).Error; err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}

func (r *userInteractionRepo) CountActiveDaysSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	if err := transaction.WithContext(ctx).
		Model(&types.UserInteraction{}).
		Select("COUNT(DISTINCT DATE(created_at))").
		Where("user_id = ? AND created_at >= ?", userID, since).
		Scan(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
