package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/headstart-dev/headstart-backend/internal/clients/openai"
	"github.com/headstart-dev/headstart-backend/internal/clients/redis"
	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/repos"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

// Scoring weights. The threshold and window defaults apply when the
// config leaves them unset; the threshold is inclusive, a candidate
// scoring exactly the threshold is kept.
const (
	domainMatchBoost            = 0.20
	skillExactBoost             = 0.15
	skillAppropriateWt          = 0.10
	contentTypeBoost            = 0.10
	repetitionMultiplier        = 0.5
	popularityPerView           = 0.05
	popularityCap               = 0.05
	similarityWeight            = 0.5
	fallbackScore               = 0.5
	defaultMinScoreThreshold    = 0.3
	defaultRecentInterestWindow = 5

	difficultyAppropriatenessConstant = 0.6
)

// RecommendationFactors is the typed score breakdown attached to each
// recommendation. Pointer fields are present only when the factor
// actually contributed.
type RecommendationFactors struct {
	DomainMatch               *float64 `json:"domain_match,omitempty"`
	ContentTypeMatch          *float64 `json:"content_type_match,omitempty"`
	VectorSimilarity          *float64 `json:"vector_similarity,omitempty"`
	Popularity                *float64 `json:"popularity,omitempty"`
	DifficultyAppropriateness *float64 `json:"difficulty_appropriateness,omitempty"`
	Reason                    string   `json:"reason,omitempty"`
}

// ScoredRecommendation is one engine output row, pre-persistence.
type ScoredRecommendation struct {
	ContentID uuid.UUID             `json:"content_id"`
	Score     float64               `json:"score"`
	Factors   RecommendationFactors `json:"factors"`
}

// FeedItem is what the feed endpoint returns: score plus the content it
// refers to and the persisted recommendation row ID.
type FeedItem struct {
	RecommendationID uuid.UUID             `json:"recommendation_id"`
	Content          *types.ContentItem    `json:"content"`
	Score            float64               `json:"score"`
	Factors          RecommendationFactors `json:"factors"`
}

// Explanation is the on-demand factor breakdown for one recommendation.
type Explanation struct {
	RecommendationID uuid.UUID             `json:"recommendation_id"`
	ContentID        uuid.UUID             `json:"content_id"`
	Score            float64               `json:"score"`
	Factors          RecommendationFactors `json:"factors"`
	Narrative        string                `json:"narrative"`
	SimilarContent   []uuid.UUID           `json:"similar_content,omitempty"`
}

// Feedback type tags accepted on recommendations.
var allowedFeedbackTypes = map[string]bool{
	"helpful":        true,
	"not_helpful":    true,
	"irrelevant":     true,
	"already_seen":   true,
	"not_interested": true,
}

type RecommendationConfig struct {
	AlgorithmVersion string
	CacheTTL         time.Duration

	// MinScoreThreshold is the inclusive floor below which scored
	// candidates are dropped. RecentInterestWindow is how many of the
	// most recent history records feed the interest vector.
	MinScoreThreshold    float64
	RecentInterestWindow int
}

type RecommendationService interface {
	// GenerateRecommendations is the pure scoring core: no storage, no
	// network, deterministic for fixed inputs. history must be ordered
	// most recent first.
	GenerateRecommendations(
		prefs *types.UserPreference,
		history []*types.UserInteraction,
		pool []*types.ContentItem,
		limit int,
	) []ScoredRecommendation

	// FeedForUser loads inputs, scores, persists, and caches.
	FeedForUser(ctx context.Context, userID uuid.UUID, limit int, refresh bool) ([]FeedItem, error)
	Explain(ctx context.Context, userID, recommendationID uuid.UUID) (*Explanation, error)
	SubmitFeedback(ctx context.Context, userID, recommendationID uuid.UUID, rating *int, feedbackType string) error
	MarkClicked(ctx context.Context, userID, recommendationID uuid.UUID) error
	History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Recommendation, error)
}

type recommendationService struct {
	log             *logger.Logger
	cfg             RecommendationConfig
	ai              openai.Client
	cache           redis.RecommendationCache
	prefRepo        repos.UserPreferenceRepo
	interactionRepo repos.UserInteractionRepo
	contentRepo     repos.ContentItemRepo
	recRepo         repos.RecommendationRepo
}

func NewRecommendationService(
	baseLog *logger.Logger,
	cfg RecommendationConfig,
	ai openai.Client,
	cache redis.RecommendationCache,
	prefRepo repos.UserPreferenceRepo,
	interactionRepo repos.UserInteractionRepo,
	contentRepo repos.ContentItemRepo,
	recRepo repos.RecommendationRepo,
) RecommendationService {
	if cfg.AlgorithmVersion == "" {
		cfg.AlgorithmVersion = "v1.0"
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Hour
	}
	if cfg.MinScoreThreshold <= 0 {
		cfg.MinScoreThreshold = defaultMinScoreThreshold
	}
	if cfg.RecentInterestWindow <= 0 {
		cfg.RecentInterestWindow = defaultRecentInterestWindow
	}
	svcLog := baseLog.With("service", "RecommendationService")
	return &recommendationService{
		log:             svcLog,
		cfg:             cfg,
		ai:              ai,
		cache:           cache,
		prefRepo:        prefRepo,
		interactionRepo: interactionRepo,
		contentRepo:     contentRepo,
		recRepo:         recRepo,
	}
}

// -------------------- Scoring core --------------------

var skillOrder = map[string]int{
	types.SkillBeginner:     0,
	types.SkillIntermediate: 1,
	types.SkillAdvanced:     2,
}

// skillAppropriate reports whether a candidate difficulty suits a user
// level: same level or at most one step harder. Unrecognized level
// strings on either side are treated as appropriate.
func skillAppropriate(userLevel, candidateLevel string) bool {
	userIdx, userOK := skillOrder[strings.ToLower(strings.TrimSpace(userLevel))]
	candIdx, candOK := skillOrder[strings.ToLower(strings.TrimSpace(candidateLevel))]
	if !userOK || !candOK {
		return true
	}
	return candIdx <= userIdx+1
}

func skillExact(userLevel, candidateLevel string) bool {
	return strings.EqualFold(strings.TrimSpace(userLevel), strings.TrimSpace(candidateLevel))
}

func (s *recommendationService) GenerateRecommendations(
	prefs *types.UserPreference,
	history []*types.UserInteraction,
	pool []*types.ContentItem,
	limit int,
) []ScoredRecommendation {
	if limit <= 0 || len(pool) == 0 {
		return []ScoredRecommendation{}
	}

	if prefs == nil {
		return fallbackRecommendations(pool, limit)
	}

	domains := prefs.LearningDomains
	skillLevels := prefs.SkillLevels.Data()
	preferredTypes := map[string]bool{}
	for _, t := range prefs.PreferredContentTypes {
		preferredTypes[t] = true
	}

	interactionCounts := map[uuid.UUID]int{}
	for _, rec := range history {
		interactionCounts[rec.ContentID]++
	}

	userVector := recentInterestVector(history, pool, s.cfg.RecentInterestWindow)

	scored := make([]ScoredRecommendation, 0, len(pool))
	for _, candidate := range pool {
		if candidate == nil {
			continue
		}
		embedding := candidate.EmbeddingSlice()
		if embedding != nil && len(embedding) != types.EmbeddingDimensions {
			// Malformed embedding: skip the candidate, keep the batch.
			continue
		}

		score := 0.0
		factors := RecommendationFactors{}

		// Domain match.
		matchedDomain := ""
		for _, domain := range domains {
			if containsString(candidate.Topics, domain) {
				matchedDomain = domain
				break
			}
		}
		if matchedDomain != "" {
			score += domainMatchBoost
			factors.DomainMatch = float64ptr(domainMatchBoost)
		}

		// Skill-level match, accumulated per topic key.
		for _, topic := range candidate.Topics {
			userLevel, ok := skillLevels[topic]
			if !ok {
				continue
			}
			if skillExact(userLevel, candidate.DifficultyLevel) {
				score += skillExactBoost
			} else if skillAppropriate(userLevel, candidate.DifficultyLevel) {
				score += skillAppropriateWt
			}
		}

		// Content-type preference.
		if preferredTypes[candidate.ContentType] {
			score += contentTypeBoost
			factors.ContentTypeMatch = float64ptr(contentTypeBoost)
		}

		// Repetition penalty dampens the additive block before the
		// popularity and similarity terms are added.
		viewCount := interactionCounts[candidate.ID]
		if viewCount > 0 {
			score *= repetitionMultiplier
		}

		// Popularity boost, capped.
		if viewCount > 0 {
			boost := float64(viewCount) * popularityPerView
			if boost > popularityCap {
				boost = popularityCap
			}
			score += boost
			factors.Popularity = float64ptr(boost)
		}

		// Embedding similarity against the recent-interest vector.
		if userVector != nil && embedding != nil {
			similarity := openai.CosineSimilarity(userVector, embedding)
			term := similarity * similarityWeight
			score += term
			factors.VectorSimilarity = float64ptr(term)
		}

		score = clamp01(score)
		if score < s.cfg.MinScoreThreshold {
			continue
		}

		factors.DifficultyAppropriateness = float64ptr(difficultyAppropriatenessConstant)
		factors.Reason = chooseReason(matchedDomain, factors.ContentTypeMatch != nil, candidate.ContentType)

		scored = append(scored, ScoredRecommendation{
			ContentID: candidate.ID,
			Score:     score,
			Factors:   factors,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

func fallbackRecommendations(pool []*types.ContentItem, limit int) []ScoredRecommendation {
	out := make([]ScoredRecommendation, 0, limit)
	for _, candidate := range pool {
		if candidate == nil {
			continue
		}
		out = append(out, ScoredRecommendation{
			ContentID: candidate.ID,
			Score:     fallbackScore,
			Factors:   RecommendationFactors{Popularity: float64ptr(fallbackScore)},
		})
		if len(out) == limit {
			break
		}
	}
	return out
}

// recentInterestVector averages the embeddings of the most recent
// interacted items that have embeddings, over the first window history
// records. Returns nil when nothing in the window has an embedding.
func recentInterestVector(history []*types.UserInteraction, pool []*types.ContentItem, window int) []float32 {
	if len(history) == 0 {
		return nil
	}

	byID := make(map[uuid.UUID]*types.ContentItem, len(pool))
	for _, item := range pool {
		if item != nil {
			byID[item.ID] = item
		}
	}

	recent := history
	if len(recent) > window {
		recent = recent[:window]
	}

	var sum []float32
	count := 0
	for _, rec := range recent {
		item := byID[rec.ContentID]
		if item == nil {
			continue
		}
		embedding := item.EmbeddingSlice()
		if len(embedding) != types.EmbeddingDimensions {
			continue
		}
		if sum == nil {
			sum = make([]float32, len(embedding))
		}
		for i, v := range embedding {
			sum[i] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for i := range sum {
		sum[i] /= float32(count)
	}
	return sum
}

func chooseReason(matchedDomain string, typeMatched bool, contentType string) string {
	if matchedDomain != "" {
		return fmt.Sprintf("Matches your interest in %s", matchedDomain)
	}
	if typeMatched {
		return fmt.Sprintf("Matches your preferred %s content", contentType)
	}
	return "Popular content"
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func float64ptr(v float64) *float64 { return &v }

// -------------------- Orchestration --------------------

func (s *recommendationService) FeedForUser(ctx context.Context, userID uuid.UUID, limit int, refresh bool) ([]FeedItem, error) {
	if limit <= 0 {
		limit = 10
	}

	if !refresh && s.cache != nil {
		var cached []FeedItem
		hit, err := s.cache.Get(ctx, userID, limit, &cached)
		if err != nil {
			s.log.Warn("Recommendation cache read failed", "user_id", userID, "error", err.Error())
		} else if hit {
			return cached, nil
		}
	}

	prefs, err := s.prefRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}
	history, err := s.interactionRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	pool, err := s.contentRepo.GetApproved(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load candidate pool: %w", err)
	}

	scored := s.GenerateRecommendations(prefs, history, pool, limit)

	byID := make(map[uuid.UUID]*types.ContentItem, len(pool))
	for _, item := range pool {
		byID[item.ID] = item
	}

	now := time.Now()
	recs := make([]*types.Recommendation, 0, len(scored))
	for _, sr := range scored {
		raw, err := json.Marshal(sr.Factors)
		if err != nil {
			raw = []byte("{}")
		}
		recs = append(recs, &types.Recommendation{
			ID:                  uuid.New(),
			UserID:              userID,
			ContentID:           sr.ContentID,
			RecommendationScore: sr.Score,
			ExplanationFactors:  raw,
			AlgorithmVersion:    s.cfg.AlgorithmVersion,
			ShownAt:             now,
		})
	}
	if _, err := s.recRepo.CreateBatch(ctx, nil, recs); err != nil {
		// Persistence is the log of what was shown; losing it degrades
		// history but never the feed.
		s.log.Warn("Recommendation persistence failed", "user_id", userID, "error", err.Error())
	}

	feed := make([]FeedItem, 0, len(scored))
	for i, sr := range scored {
		feed = append(feed, FeedItem{
			RecommendationID: recs[i].ID,
			Content:          byID[sr.ContentID],
			Score:            sr.Score,
			Factors:          sr.Factors,
		})
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, userID, limit, feed, s.cfg.CacheTTL); err != nil {
			s.log.Warn("Recommendation cache write failed", "user_id", userID, "error", err.Error())
		}
	}
	return feed, nil
}

func (s *recommendationService) Explain(ctx context.Context, userID, recommendationID uuid.UUID) (*Explanation, error) {
	rec, err := s.recRepo.GetByID(ctx, nil, recommendationID)
	if err != nil {
		return nil, fmt.Errorf("load recommendation: %w", err)
	}
	if rec == nil || rec.UserID != userID {
		return nil, fmt.Errorf("recommendation %s not found", recommendationID)
	}

	items, err := s.contentRepo.GetByIDs(ctx, nil, []uuid.UUID{rec.ContentID})
	if err != nil || len(items) == 0 {
		return nil, fmt.Errorf("content %s not found", rec.ContentID)
	}
	content := items[0]

	var factors RecommendationFactors
	if len(rec.ExplanationFactors) > 0 {
		_ = json.Unmarshal(rec.ExplanationFactors, &factors)
	}

	out := &Explanation{
		RecommendationID: rec.ID,
		ContentID:        rec.ContentID,
		Score:            rec.RecommendationScore,
		Factors:          factors,
	}

	if embedding := content.EmbeddingSlice(); len(embedding) == types.EmbeddingDimensions {
		out.SimilarContent = s.similarContent(ctx, content.ID, embedding, 3)
	}

	out.Narrative = s.narrative(ctx, content, factors)
	return out, nil
}

// similarContent returns the top-n approved items by embedding cosine,
// excluding the item itself. Lookup failures just mean no list.
func (s *recommendationService) similarContent(ctx context.Context, selfID uuid.UUID, embedding []float32, n int) []uuid.UUID {
	pool, err := s.contentRepo.GetApproved(ctx, nil)
	if err != nil {
		s.log.Warn("Similar-content lookup failed", "error", err.Error())
		return nil
	}

	type ranked struct {
		id  uuid.UUID
		sim float64
	}
	var candidates []ranked
	for _, item := range pool {
		if item.ID == selfID {
			continue
		}
		other := item.EmbeddingSlice()
		if len(other) != types.EmbeddingDimensions {
			continue
		}
		candidates = append(candidates, ranked{id: item.ID, sim: openai.CosineSimilarity(embedding, other)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].sim > candidates[j].sim })
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	out := make([]uuid.UUID, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.id)
	}
	return out
}

// narrative asks the LLM for a short explanation and falls back to a
// deterministic sentence when the provider fails.
func (s *recommendationService) narrative(ctx context.Context, content *types.ContentItem, factors RecommendationFactors) string {
	system := "You explain to a learner, in two sentences, why a piece of learning content was recommended to them. Be concrete and friendly."
	user := fmt.Sprintf(
		"Title: %s\nType: %s\nTopics: %s\nDifficulty: %s\nReason: %s",
		content.Title, content.ContentType, strings.Join(content.Topics, ", "),
		content.DifficultyLevel, factors.Reason,
	)
	text, err := s.ai.GenerateText(ctx, system, user)
	if err != nil {
		s.log.Warn("Explanation generation failed, using heuristic", "content_id", content.ID, "error", err.Error())
		if factors.Reason != "" {
			return fmt.Sprintf("%s was recommended because: %s.", content.Title, strings.ToLower(factors.Reason[:1])+factors.Reason[1:])
		}
		return fmt.Sprintf("%s was recommended based on your learning profile.", content.Title)
	}
	return text
}

func (s *recommendationService) SubmitFeedback(ctx context.Context, userID, recommendationID uuid.UUID, rating *int, feedbackType string) error {
	if rating != nil && (*rating < 1 || *rating > 5) {
		return fmt.Errorf("rating must be between 1 and 5")
	}
	feedbackType = strings.ToLower(strings.TrimSpace(feedbackType))
	if feedbackType != "" && !allowedFeedbackTypes[feedbackType] {
		return fmt.Errorf("invalid feedback type %q", feedbackType)
	}
	if rating == nil && feedbackType == "" {
		return fmt.Errorf("rating or feedback type required")
	}

	rec, err := s.recRepo.GetByID(ctx, nil, recommendationID)
	if err != nil {
		return fmt.Errorf("load recommendation: %w", err)
	}
	if rec == nil || rec.UserID != userID {
		return fmt.Errorf("recommendation %s not found", recommendationID)
	}
	return s.recRepo.SetFeedback(ctx, nil, recommendationID, rating, feedbackType)
}

func (s *recommendationService) MarkClicked(ctx context.Context, userID, recommendationID uuid.UUID) error {
	rec, err := s.recRepo.GetByID(ctx, nil, recommendationID)
	if err != nil {
		return fmt.Errorf("load recommendation: %w", err)
	}
	if rec == nil || rec.UserID != userID {
		return fmt.Errorf("recommendation %s not found", recommendationID)
	}
	return s.recRepo.MarkClicked(ctx, nil, recommendationID, time.Now())
}

func (s *recommendationService) History(ctx context.Context, userID uuid.UUID, limit int) ([]*types.Recommendation, error) {
	return s.recRepo.GetByUserID(ctx, nil, userID, limit)
}
