package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/headstart-dev/headstart-backend/internal/clients/redis"
	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/repos"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

// Recognized preference vocabulary.
var allowedLearningDomains = map[string]bool{
	"AI":                    true,
	"Machine Learning":      true,
	"Data Science":          true,
	"Web Development":       true,
	"Mobile Development":    true,
	"DevOps":                true,
	"Cybersecurity":         true,
	"Cloud Computing":       true,
	"Database":              true,
	"Programming Languages": true,
	"Software Engineering":  true,
}

var allowedContentTypes = map[string]bool{
	"video":    true,
	"article":  true,
	"paper":    true,
	"course":   true,
	"document": true,
}

// PreferencesInput is the validated preference update payload.
type PreferencesInput struct {
	LearningDomains       []string               `json:"learning_domains"`
	SkillLevels           map[string]string      `json:"skill_levels"`
	PreferredContentTypes []string               `json:"preferred_content_types"`
	TimeConstraints       map[string]interface{} `json:"time_constraints"`
	LanguagePreferences   []string               `json:"language_preferences"`
}

// Dashboard aggregates the analytics surface for one user.
type Dashboard struct {
	UserProfile          map[string]interface{}   `json:"user_profile"`
	LearningStats        map[string]interface{}   `json:"learning_stats"`
	RecentActivity       []map[string]interface{} `json:"recent_activity"`
	ProgressMetrics      map[string]interface{}   `json:"progress_metrics"`
	RecommendationsCount int64                    `json:"recommendations_count"`
}

type FeedbackInput struct {
	ContentID            uuid.UUID `json:"content_id"`
	InteractionType      string    `json:"interaction_type"`
	Rating               *int      `json:"rating,omitempty"`
	FeedbackText         string    `json:"feedback_text,omitempty"`
	TimeSpentMinutes     int       `json:"time_spent_minutes,omitempty"`
	CompletionPercentage float64   `json:"completion_percentage,omitempty"`
}

type UserService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, fullName string) (*types.User, error)
	GetPreferences(ctx context.Context, userID uuid.UUID) (*types.UserPreference, error)
	UpsertPreferences(ctx context.Context, userID uuid.UUID, input PreferencesInput) (*types.UserPreference, error)
	GetDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error)
	GetProgress(ctx context.Context, userID uuid.UUID) ([]*types.LearningSession, error)
	SubmitFeedback(ctx context.Context, userID uuid.UUID, input FeedbackInput) (*types.UserInteraction, error)
}

type userService struct {
	log             *logger.Logger
	userRepo        repos.UserRepo
	prefRepo        repos.UserPreferenceRepo
	interactionRepo repos.UserInteractionRepo
	contentRepo     repos.ContentItemRepo
	sessionRepo     repos.LearningSessionRepo
	recRepo         repos.RecommendationRepo
	cache           redis.RecommendationCache
}

func NewUserService(
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	prefRepo repos.UserPreferenceRepo,
	interactionRepo repos.UserInteractionRepo,
	contentRepo repos.ContentItemRepo,
	sessionRepo repos.LearningSessionRepo,
	recRepo repos.RecommendationRepo,
	cache redis.RecommendationCache,
) UserService {
	svcLog := baseLog.With("service", "UserService")
	return &userService{
		log:             svcLog,
		userRepo:        userRepo,
		prefRepo:        prefRepo,
		interactionRepo: interactionRepo,
		contentRepo:     contentRepo,
		sessionRepo:     sessionRepo,
		recRepo:         recRepo,
		cache:           cache,
	}
}

// invalidateFeed drops the user's cached recommendations after a write
// that changes scoring inputs. Cache failures never fail the write.
func (s *userService) invalidateFeed(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.log.Warn("Failed to invalidate cached recommendations", "user_id", userID.String(), "error", err.Error())
	}
}

func (s *userService) GetProfile(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	users, err := s.userRepo.GetByIDs(ctx, nil, []uuid.UUID{userID})
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	return users[0], nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, fullName string) (*types.User, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, fmt.Errorf("full name required")
	}
	user.FullName = fullName
	if err := s.userRepo.Update(ctx, nil, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func (s *userService) GetPreferences(ctx context.Context, userID uuid.UUID) (*types.UserPreference, error) {
	return s.prefRepo.GetByUserID(ctx, nil, userID)
}

func (s *userService) UpsertPreferences(ctx context.Context, userID uuid.UUID, input PreferencesInput) (*types.UserPreference, error) {
	for _, domain := range input.LearningDomains {
		if !allowedLearningDomains[domain] {
			return nil, fmt.Errorf("invalid learning domain %q", domain)
		}
	}
	for domain, level := range input.SkillLevels {
		switch strings.ToLower(level) {
		case types.SkillBeginner, types.SkillIntermediate, types.SkillAdvanced:
		default:
			return nil, fmt.Errorf("invalid skill level %q for domain %q", level, domain)
		}
	}
	for _, ct := range input.PreferredContentTypes {
		if !allowedContentTypes[ct] {
			return nil, fmt.Errorf("invalid content type %q", ct)
		}
	}
	if len(input.LanguagePreferences) == 0 {
		input.LanguagePreferences = []string{"en"}
	}
	if input.SkillLevels == nil {
		input.SkillLevels = map[string]string{}
	}
	if input.TimeConstraints == nil {
		input.TimeConstraints = map[string]interface{}{}
	}

	pref := &types.UserPreference{
		UserID:                userID,
		LearningDomains:       datatypes.NewJSONSlice(input.LearningDomains),
		SkillLevels:           datatypes.NewJSONType(input.SkillLevels),
		PreferredContentTypes: datatypes.NewJSONSlice(input.PreferredContentTypes),
		TimeConstraints:       datatypes.JSONMap(input.TimeConstraints),
		LanguagePreferences:   datatypes.NewJSONSlice(input.LanguagePreferences),
	}
	saved, err := s.prefRepo.Upsert(ctx, nil, pref)
	if err != nil {
		return nil, err
	}
	s.invalidateFeed(ctx, userID)
	return saved, nil
}

func (s *userService) GetDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	user, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefs, err := s.prefRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	totalInteractions, err := s.interactionRepo.CountByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("interaction count: %w", err)
	}
	completedContent, err := s.interactionRepo.CountCompletedByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("completed count: %w", err)
	}
	totalTimeSpent, err := s.interactionRepo.SumTimeSpentByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("time spent sum: %w", err)
	}
	activeDays, err := s.interactionRepo.CountActiveDaysSince(ctx, nil, userID, time.Now().AddDate(0, 0, -30))
	if err != nil {
		return nil, fmt.Errorf("active days: %w", err)
	}
	recommendationsCount, err := s.recRepo.CountByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("recommendation count: %w", err)
	}

	history, err := s.interactionRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(history) > 10 {
		history = history[:10]
	}

	contentIDs := make([]uuid.UUID, 0, len(history))
	for _, rec := range history {
		contentIDs = append(contentIDs, rec.ContentID)
	}
	items, err := s.contentRepo.GetByIDs(ctx, nil, contentIDs)
	if err != nil {
		return nil, fmt.Errorf("load recent content: %w", err)
	}
	byID := make(map[uuid.UUID]*types.ContentItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	recentActivity := make([]map[string]interface{}, 0, len(history))
	for _, rec := range history {
		content := byID[rec.ContentID]
		if content == nil {
			continue
		}
		entry := map[string]interface{}{
			"content_title":    content.Title,
			"content_type":     content.ContentType,
			"interaction_type": rec.InteractionType,
			"created_at":       rec.CreatedAt.Format(time.RFC3339),
		}
		if rec.Rating != nil {
			entry["rating"] = *rec.Rating
		}
		recentActivity = append(recentActivity, entry)
	}

	completionRate := 0.0
	if totalInteractions > 0 {
		completionRate = math.Round(float64(completedContent)/float64(totalInteractions)*1000) / 10
	}

	learningDomains := []string{}
	skillLevels := map[string]string{}
	if prefs != nil {
		learningDomains = prefs.LearningDomains
		skillLevels = prefs.SkillLevels.Data()
	}

	return &Dashboard{
		UserProfile: map[string]interface{}{
			"id":               user.ID.String(),
			"full_name":        user.FullName,
			"email":            user.Email,
			"role":             user.Role,
			"learning_domains": learningDomains,
			"skill_levels":     skillLevels,
		},
		LearningStats: map[string]interface{}{
			"total_interactions":       totalInteractions,
			"completed_content":        completedContent,
			"total_time_spent_minutes": totalTimeSpent,
			"active_days_last_30":      activeDays,
			"completion_rate":          completionRate,
		},
		RecentActivity: recentActivity,
		ProgressMetrics: map[string]interface{}{
			"domains_explored": len(learningDomains),
			"skills_tracked":   len(skillLevels),
		},
		RecommendationsCount: recommendationsCount,
	}, nil
}

func (s *userService) GetProgress(ctx context.Context, userID uuid.UUID) ([]*types.LearningSession, error) {
	return s.sessionRepo.GetByUserID(ctx, nil, userID)
}

func (s *userService) SubmitFeedback(ctx context.Context, userID uuid.UUID, input FeedbackInput) (*types.UserInteraction, error) {
	if !types.ValidInteractionType(input.InteractionType) {
		return nil, fmt.Errorf("invalid interaction type %q", input.InteractionType)
	}
	if input.Rating != nil && (*input.Rating < 1 || *input.Rating > 5) {
		return nil, fmt.Errorf("rating must be between 1 and 5")
	}
	if input.CompletionPercentage < 0 || input.CompletionPercentage > 100 {
		return nil, fmt.Errorf("completion percentage must be between 0 and 100")
	}

	items, err := s.contentRepo.GetByIDs(ctx, nil, []uuid.UUID{input.ContentID})
	if err != nil {
		return nil, fmt.Errorf("content lookup: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("content %s not found", input.ContentID)
	}

	interaction := &types.UserInteraction{
		ID:                   uuid.New(),
		UserID:               userID,
		ContentID:            input.ContentID,
		InteractionType:      input.InteractionType,
		Rating:               input.Rating,
		FeedbackText:         strings.TrimSpace(input.FeedbackText),
		TimeSpentMinutes:     input.TimeSpentMinutes,
		CompletionPercentage: input.CompletionPercentage,
	}
	created, err := s.interactionRepo.Create(ctx, nil, []*types.UserInteraction{interaction})
	if err != nil {
		return nil, fmt.Errorf("persist feedback: %w", err)
	}
	s.trackSession(ctx, userID, input)
	s.invalidateFeed(ctx, userID)
	return created[0], nil
}

// trackSession keeps the progress timeline in step with feedback: a
// view opens a session, a complete closes the most recent open session
// for the same content (or records an already-finished one when none is
// open). Session bookkeeping never fails the feedback write.
func (s *userService) trackSession(ctx context.Context, userID uuid.UUID, input FeedbackInput) {
	now := time.Now()
	switch input.InteractionType {
	case types.InteractionView:
		session := &types.LearningSession{
			ID:                 uuid.New(),
			UserID:             userID,
			ContentID:          input.ContentID,
			StartedAt:          now,
			ProgressPercentage: input.CompletionPercentage,
		}
		if _, err := s.sessionRepo.Create(ctx, nil, []*types.LearningSession{session}); err != nil {
			s.log.Warn("Failed to open learning session", "user_id", userID.String(), "error", err.Error())
		}
	case types.InteractionComplete:
		progress := input.CompletionPercentage
		if progress == 0 {
			progress = 100
		}
		sessions, err := s.sessionRepo.GetByUserID(ctx, nil, userID)
		if err != nil {
			s.log.Warn("Failed to load learning sessions", "user_id", userID.String(), "error", err.Error())
			return
		}
		for _, session := range sessions {
			if session.ContentID == input.ContentID && session.EndedAt == nil {
				if err := s.sessionRepo.End(ctx, nil, session.ID, now, progress); err != nil {
					s.log.Warn("Failed to close learning session", "user_id", userID.String(), "error", err.Error())
				}
				return
			}
		}
		ended := now
		session := &types.LearningSession{
			ID:                 uuid.New(),
			UserID:             userID,
			ContentID:          input.ContentID,
			StartedAt:          now.Add(-time.Duration(input.TimeSpentMinutes) * time.Minute),
			EndedAt:            &ended,
			ProgressPercentage: progress,
		}
		if _, err := s.sessionRepo.Create(ctx, nil, []*types.LearningSession{session}); err != nil {
			s.log.Warn("Failed to record learning session", "user_id", userID.String(), "error", err.Error())
		}
	}
}
