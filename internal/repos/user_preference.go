package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

type UserPreferenceRepo interface {
	// GetByUserID returns nil (no error) when the user has no stored
	// preferences. Absence triggers the popular-content fallback path.
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserPreference, error)
	Upsert(ctx context.Context, tx *gorm.DB, pref *types.UserPreference) (*types.UserPreference, error)
}

type userPreferenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserPreferenceRepo(db *gorm.DB, baseLog *logger.Logger) UserPreferenceRepo {
	repoLog := baseLog.With("repo", "UserPreferenceRepo")
	return &userPreferenceRepo{db: db, log: repoLog}
}

func (r *userPreferenceRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserPreference, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.UserPreference
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *userPreferenceRepo) Upsert(ctx context.Context, tx *gorm.DB, pref *types.UserPreference) (*types.UserPreference, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	existing, err := r.GetByUserID(ctx, transaction, pref.UserID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		if pref.ID == uuid.Nil {
			pref.ID = uuid.New()
		}
		if err := transaction.WithContext(ctx).Create(pref).Error; err != nil {
			return nil, err
		}
		return pref, nil
	}
	pref.ID = existing.ID
	pref.CreatedAt = existing.CreatedAt
	if err := transaction.WithContext(ctx).Save(pref).Error; err != nil {
		return nil, err
	}
	return pref, nil
}
