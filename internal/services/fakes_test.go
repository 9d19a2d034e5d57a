package services

// In-memory repo fakes shared by the service tests in this package.

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/headstart-dev/headstart-backend/internal/repos"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

type fakePrefRepo struct {
	byUser map[uuid.UUID]*types.UserPreference
}

func newFakePrefRepo() *fakePrefRepo {
	return &fakePrefRepo{byUser: map[uuid.UUID]*types.UserPreference{}}
}

func (f *fakePrefRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.UserPreference, error) {
	return f.byUser[userID], nil
}

func (f *fakePrefRepo) Upsert(ctx context.Context, tx *gorm.DB, pref *types.UserPreference) (*types.UserPreference, error) {
	if existing, ok := f.byUser[pref.UserID]; ok {
		pref.ID = existing.ID
	} else if pref.ID == uuid.Nil {
		pref.ID = uuid.New()
	}
	f.byUser[pref.UserID] = pref
	return pref, nil
}

type fakeInteractionRepo struct {
	byUser map[uuid.UUID][]*types.UserInteraction
}

func newFakeInteractionRepo() *fakeInteractionRepo {
	return &fakeInteractionRepo{byUser: map[uuid.UUID][]*types.UserInteraction{}}
}

func (f *fakeInteractionRepo) Create(ctx context.Context, tx *gorm.DB, interactions []*types.UserInteraction) ([]*types.UserInteraction, error) {
	for _, rec := range interactions {
		// Most recent first, matching the real repo's ordering.
		f.byUser[rec.UserID] = append([]*types.UserInteraction{rec}, f.byUser[rec.UserID]...)
	}
	return interactions, nil
}

func (f *fakeInteractionRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.UserInteraction, error) {
	return f.byUser[userID], nil
}

func (f *fakeInteractionRepo) CountByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	return int64(len(f.byUser[userID])), nil
}

func (f *fakeInteractionRepo) CountCompletedByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var n int64
	for _, rec := range f.byUser[userID] {
		if rec.InteractionType == types.InteractionComplete {
			n++
		}
	}
	return n, nil
}

func (f *fakeInteractionRepo) SumTimeSpentByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var total int64
	for _, rec := range f.byUser[userID] {
		total += int64(rec.TimeSpentMinutes)
	}
	return total, nil
}

func (f *fakeInteractionRepo) CountActiveDaysSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) (int64, error) {
	days := map[string]bool{}
	for _, rec := range f.byUser[userID] {
		if rec.CreatedAt.After(since) {
			days[rec.CreatedAt.Format("2006-01-02")] = true
		}
	}
	return int64(len(days)), nil
}

type fakeContentRepo struct {
	items []*types.ContentItem
}

func (f *fakeContentRepo) Create(ctx context.Context, tx *gorm.DB, items []*types.ContentItem) ([]*types.ContentItem, error) {
	f.items = append(f.items, items...)
	return items, nil
}

func (f *fakeContentRepo) GetByIDs(ctx context.Context, tx *gorm.DB, itemIDs []uuid.UUID) ([]*types.ContentItem, error) {
	var out []*types.ContentItem
	for _, item := range f.items {
		for _, id := range itemIDs {
			if item.ID == id {
				out = append(out, item)
			}
		}
	}
	return out, nil
}

func (f *fakeContentRepo) GetByURL(ctx context.Context, tx *gorm.DB, url string) (*types.ContentItem, error) {
	for _, item := range f.items {
		if item.URL == url {
			return item, nil
		}
	}
	return nil, nil
}

func (f *fakeContentRepo) GetBySourceID(ctx context.Context, tx *gorm.DB, source, sourceID string) (*types.ContentItem, error) {
	for _, item := range f.items {
		if item.Source == source && item.SourceID == sourceID {
			return item, nil
		}
	}
	return nil, nil
}

func (f *fakeContentRepo) GetApproved(ctx context.Context, tx *gorm.DB) ([]*types.ContentItem, error) {
	var out []*types.ContentItem
	for _, item := range f.items {
		if item.Status == types.ContentStatusApproved {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *fakeContentRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, itemID uuid.UUID, status string) error {
	for _, item := range f.items {
		if item.ID == itemID {
			item.Status = status
			return nil
		}
	}
	return fmt.Errorf("content %s not found", itemID)
}

func (f *fakeContentRepo) CountBySourceAndStatus(ctx context.Context, tx *gorm.DB) ([]repos.SourceStatusCount, error) {
	counts := map[[2]string]int64{}
	for _, item := range f.items {
		counts[[2]string{item.Source, item.Status}]++
	}
	var out []repos.SourceStatusCount
	for key, n := range counts {
		out = append(out, repos.SourceStatusCount{Source: key[0], Status: key[1], Count: n})
	}
	return out, nil
}

type fakeRecRepo struct {
	recs map[uuid.UUID]*types.Recommendation
}

func newFakeRecRepo() *fakeRecRepo {
	return &fakeRecRepo{recs: map[uuid.UUID]*types.Recommendation{}}
}

func (f *fakeRecRepo) CreateBatch(ctx context.Context, tx *gorm.DB, recs []*types.Recommendation) ([]*types.Recommendation, error) {
	for _, rec := range recs {
		f.recs[rec.ID] = rec
	}
	return recs, nil
}

func (f *fakeRecRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Recommendation, error) {
	return f.recs[id], nil
}

func (f *fakeRecRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Recommendation, error) {
	var out []*types.Recommendation
	for _, rec := range f.recs {
		if rec.UserID == userID {
			out = append(out, rec)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRecRepo) CountByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	var n int64
	for _, rec := range f.recs {
		if rec.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRecRepo) MarkClicked(ctx context.Context, tx *gorm.DB, id uuid.UUID, clickedAt time.Time) error {
	rec, ok := f.recs[id]
	if !ok {
		return fmt.Errorf("recommendation %s not found", id)
	}
	rec.ClickedAt = &clickedAt
	return nil
}

func (f *fakeRecRepo) SetFeedback(ctx context.Context, tx *gorm.DB, id uuid.UUID, rating *int, feedbackType string) error {
	rec, ok := f.recs[id]
	if !ok {
		return fmt.Errorf("recommendation %s not found", id)
	}
	rec.FeedbackRating = rating
	rec.FeedbackType = feedbackType
	return nil
}

type fakeSessionRepo struct {
	byUser map[uuid.UUID][]*types.LearningSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{byUser: map[uuid.UUID][]*types.LearningSession{}}
}

func (f *fakeSessionRepo) Create(ctx context.Context, tx *gorm.DB, sessions []*types.LearningSession) ([]*types.LearningSession, error) {
	for _, sess := range sessions {
		f.byUser[sess.UserID] = append(f.byUser[sess.UserID], sess)
	}
	return sessions, nil
}

func (f *fakeSessionRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.LearningSession, error) {
	return f.byUser[userID], nil
}

func (f *fakeSessionRepo) End(ctx context.Context, tx *gorm.DB, id uuid.UUID, endedAt time.Time, progress float64) error {
	for _, sessions := range f.byUser {
		for _, sess := range sessions {
			if sess.ID == id {
				sess.EndedAt = &endedAt
				sess.ProgressPercentage = progress
				return nil
			}
		}
	}
	return fmt.Errorf("session %s not found", id)
}

type fakeRecCache struct {
	invalidated []uuid.UUID
}

func (f *fakeRecCache) Get(ctx context.Context, userID uuid.UUID, limit int, out any) (bool, error) {
	return false, nil
}

func (f *fakeRecCache) Set(ctx context.Context, userID uuid.UUID, limit int, value any, ttl time.Duration) error {
	return nil
}

func (f *fakeRecCache) Invalidate(ctx context.Context, userID uuid.UUID) error {
	f.invalidated = append(f.invalidated, userID)
	return nil
}

func (f *fakeRecCache) Close() error { return nil }

type fakeAIClient struct {
	embedding []float32
	text      string
	err       error
}

func (f *fakeAIClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		vec := f.embedding
		if vec == nil {
			vec = make([]float32, types.EmbeddingDimensions)
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeAIClient) GenerateText(ctx context.Context, system, user string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}
