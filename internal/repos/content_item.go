package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

// SourceStatusCount is one row of the per-source content breakdown.
type SourceStatusCount struct {
	Source string `json:"source"`
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type ContentItemRepo interface {
	Create(ctx context.Context, tx *gorm.DB, items []*types.ContentItem) ([]*types.ContentItem, error)
	GetByIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) ([]*types.ContentItem, error)
	GetByURL(ctx context.Context, tx *gorm.DB, url string) (*types.ContentItem, error)
	GetBySourceID(ctx context.Context, tx *gorm.DB, source, sourceID string) (*types.ContentItem, error)
	GetApproved(ctx context.Context, tx *gorm.DB) ([]*types.ContentItem, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, status string) error
	CountBySourceAndStatus(ctx context.Context, tx *gorm.DB) ([]SourceStatusCount, error)
}

type contentItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewContentItemRepo(db *gorm.DB, baseLog *logger.Logger) ContentItemRepo {
	repoLog := baseLog.With("repo", "ContentItemRepo")
	return &contentItemRepo{db: db, log: repoLog}
}

func (r *contentItemRepo) Create(ctx context.Context, tx *gorm.DB, items []*types.ContentItem) ([]*types.ContentItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(items) == 0 {
		return []*types.ContentItem{}, nil
	}
	if err := transaction.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *contentItemRepo) GetByIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) ([]*types.ContentItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ContentItem
	if len(itemIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", itemIDs).
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentItemRepo) GetByURL(ctx context.Context, tx *gorm.DB, url string) (*types.ContentItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.ContentItem
	err := transaction.WithContext(ctx).
		Where("url = ?", url).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *contentItemRepo) GetBySourceID(ctx context.Context, tx *gorm.DB, source, sourceID string) (*types.ContentItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.ContentItem
	err := transaction.WithContext(ctx).
		Where("source = ? AND source_id = ?", source, sourceID).
		First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *contentItemRepo) GetApproved(ctx context.Context, tx *gorm.DB) ([]*types.ContentItem, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.ContentItem
	if err := transaction.WithContext(ctx).
		Where("status = ?", types.ContentStatusApproved).
		Order("created_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *contentItemRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, status string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.ContentItem{}).
		Where("id = ?", itemID).
		Update("status", status).Error
}

func (r *contentItemRepo) CountBySourceAndStatus(ctx context.Context, tx *gorm.DB) ([]SourceStatusCount, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []SourceStatusCount
	if err := transaction.WithContext(ctx).
		Model(&types.ContentItem{}).
		Select("source, status, count(*) as count").
		Group("source").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}
