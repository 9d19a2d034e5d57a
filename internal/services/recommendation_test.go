package services

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"

	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

func newTestRecService(t *testing.T) RecommendationService {
	t.Helper()
	return newTestRecServiceCfg(t, RecommendationConfig{})
}

func newTestRecServiceCfg(t *testing.T, cfg RecommendationConfig) RecommendationService {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return NewRecommendationService(log, cfg, nil, nil, nil, nil, nil, nil)
}

func testPrefs(domains []string, skills map[string]string, contentTypes []string) *types.UserPreference {
	return &types.UserPreference{
		UserID:                uuid.New(),
		LearningDomains:       datatypes.NewJSONSlice(domains),
		SkillLevels:           datatypes.NewJSONType(skills),
		PreferredContentTypes: datatypes.NewJSONSlice(contentTypes),
	}
}

func testCandidate(topics []string, difficulty, contentType string) *types.ContentItem {
	return &types.ContentItem{
		ID:              uuid.New(),
		Title:           "candidate",
		ContentType:     contentType,
		Topics:          datatypes.NewJSONSlice(topics),
		DifficultyLevel: difficulty,
		Status:          types.ContentStatusApproved,
	}
}

func withEmbedding(item *types.ContentItem, fill float32) *types.ContentItem {
	vec := make([]float32, types.EmbeddingDimensions)
	for i := range vec {
		vec[i] = fill
	}
	v := pgvector.NewVector(vec)
	item.Embedding = &v
	return item
}

func interaction(userID, contentID uuid.UUID, at time.Time) *types.UserInteraction {
	return &types.UserInteraction{
		ID:              uuid.New(),
		UserID:          userID,
		ContentID:       contentID,
		InteractionType: types.InteractionView,
		CreatedAt:       at,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestGenerateRecommendationsWorkedExample(t *testing.T) {
	svc := newTestRecService(t)

	prefs := testPrefs([]string{"AI"}, map[string]string{"AI": "beginner"}, []string{"video"})
	candidate := testCandidate([]string{"AI"}, "beginner", "video")

	out := svc.GenerateRecommendations(prefs, nil, []*types.ContentItem{candidate}, 10)
	if len(out) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(out))
	}
	if !almostEqual(out[0].Score, 0.45) {
		t.Fatalf("expected score 0.45, got %v", out[0].Score)
	}
	if out[0].Factors.DomainMatch == nil || *out[0].Factors.DomainMatch != 0.20 {
		t.Fatalf("expected domain match factor 0.20, got %v", out[0].Factors.DomainMatch)
	}
	if out[0].Factors.ContentTypeMatch == nil || *out[0].Factors.ContentTypeMatch != 0.10 {
		t.Fatalf("expected content type factor 0.10, got %v", out[0].Factors.ContentTypeMatch)
	}
	if out[0].Factors.VectorSimilarity != nil {
		t.Fatalf("no embedding present, similarity factor must be absent")
	}
	if out[0].Factors.DifficultyAppropriateness == nil || *out[0].Factors.DifficultyAppropriateness != 0.6 {
		t.Fatalf("expected constant difficulty appropriateness 0.6")
	}
	if out[0].Factors.Reason != "Matches your interest in AI" {
		t.Fatalf("unexpected reason %q", out[0].Factors.Reason)
	}
}

func TestGenerateRecommendationsFallbackNoPreferences(t *testing.T) {
	svc := newTestRecService(t)

	pool := []*types.ContentItem{
		testCandidate([]string{"AI"}, "beginner", "video"),
		testCandidate([]string{"DevOps"}, "advanced", "article"),
		testCandidate([]string{"Database"}, "intermediate", "paper"),
	}

	out := svc.GenerateRecommendations(nil, nil, pool, 2)
	if len(out) != 2 {
		t.Fatalf("expected limit-truncated fallback of 2, got %d", len(out))
	}
	for i, rec := range out {
		if rec.Score != 0.5 {
			t.Fatalf("fallback score must be exactly 0.5, got %v", rec.Score)
		}
		if rec.Factors.Popularity == nil || *rec.Factors.Popularity != 0.5 {
			t.Fatalf("fallback factors must be {popularity: 0.5}")
		}
		if rec.ContentID != pool[i].ID {
			t.Fatalf("fallback must preserve encounter order")
		}
	}
}

func TestGenerateRecommendationsEmptyPool(t *testing.T) {
	svc := newTestRecService(t)

	out := svc.GenerateRecommendations(testPrefs([]string{"AI"}, nil, nil), nil, nil, 10)
	if len(out) != 0 {
		t.Fatalf("empty pool must produce empty output, got %d", len(out))
	}
}

func TestRepetitionPenaltyHalvesAdditiveScore(t *testing.T) {
	svc := newTestRecService(t)
	userID := uuid.New()

	prefs := testPrefs(
		[]string{"AI"},
		map[string]string{"AI": "beginner", "Machine Learning": "beginner"},
		[]string{"video"},
	)
	candidate := testCandidate([]string{"AI", "Machine Learning"}, "beginner", "video")
	pool := []*types.ContentItem{candidate}

	// 0.20 + 0.15 + 0.15 + 0.10 = 0.60 without any history.
	clean := svc.GenerateRecommendations(prefs, nil, pool, 10)
	if len(clean) != 1 || !almostEqual(clean[0].Score, 0.60) {
		t.Fatalf("expected clean score 0.60, got %+v", clean)
	}

	// Same candidate seen once: 0.60 * 0.5 + 0.05 popularity = 0.35.
	history := []*types.UserInteraction{interaction(userID, candidate.ID, time.Now())}
	penalized := svc.GenerateRecommendations(prefs, history, pool, 10)
	if len(penalized) != 1 || !almostEqual(penalized[0].Score, 0.35) {
		t.Fatalf("expected penalized score 0.35, got %+v", penalized)
	}
	if penalized[0].Score > clean[0].Score/2+popularityCap+1e-9 {
		t.Fatalf("penalty must at least halve the pre-popularity score")
	}
}

func TestPopularityBoostIsCapped(t *testing.T) {
	svc := newTestRecService(t)
	userID := uuid.New()

	prefs := testPrefs(
		[]string{"AI"},
		map[string]string{"AI": "beginner", "Machine Learning": "beginner"},
		[]string{"video"},
	)
	candidate := testCandidate([]string{"AI", "Machine Learning"}, "beginner", "video")

	history := []*types.UserInteraction{
		interaction(userID, candidate.ID, time.Now()),
		interaction(userID, candidate.ID, time.Now()),
		interaction(userID, candidate.ID, time.Now()),
	}
	out := svc.GenerateRecommendations(prefs, history, []*types.ContentItem{candidate}, 10)
	if len(out) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(out))
	}
	if out[0].Factors.Popularity == nil || !almostEqual(*out[0].Factors.Popularity, popularityCap) {
		t.Fatalf("popularity boost must cap at %v, got %v", popularityCap, out[0].Factors.Popularity)
	}
	// 0.60 * 0.5 + 0.05 = 0.35 regardless of the extra repeat views.
	if !almostEqual(out[0].Score, 0.35) {
		t.Fatalf("expected score 0.35, got %v", out[0].Score)
	}
}

func TestThresholdBoundaryIsInclusive(t *testing.T) {
	svc := newTestRecService(t)

	// Domain 0.20 + content type 0.10 = exactly 0.30.
	atThreshold := testCandidate([]string{"AI"}, "advanced", "video")
	prefs := testPrefs([]string{"AI"}, nil, []string{"video"})

	out := svc.GenerateRecommendations(prefs, nil, []*types.ContentItem{atThreshold}, 10)
	if len(out) != 1 {
		t.Fatalf("candidate scoring exactly 0.3 must be included")
	}
	if !almostEqual(out[0].Score, 0.30) {
		t.Fatalf("expected score 0.30, got %v", out[0].Score)
	}

	// Content type only: 0.10, below threshold.
	below := testCandidate([]string{"DevOps"}, "advanced", "video")
	out = svc.GenerateRecommendations(prefs, nil, []*types.ContentItem{below}, 10)
	if len(out) != 0 {
		t.Fatalf("candidate below threshold must be dropped, got %+v", out)
	}
}

func TestSimilarityTermFromRecentHistory(t *testing.T) {
	svc := newTestRecService(t)
	userID := uuid.New()

	seen := withEmbedding(testCandidate([]string{"AI"}, "beginner", "video"), 0.5)
	candidate := withEmbedding(testCandidate([]string{"Statistics"}, "advanced", "course"), 0.5)
	pool := []*types.ContentItem{seen, candidate}

	prefs := testPrefs(nil, nil, nil)
	history := []*types.UserInteraction{interaction(userID, seen.ID, time.Now())}

	out := svc.GenerateRecommendations(prefs, history, pool, 10)

	// The unseen candidate has identical embedding to the recent-interest
	// vector: cosine 1.0, term 0.5, nothing else contributes.
	var found *ScoredRecommendation
	for i := range out {
		if out[i].ContentID == candidate.ID {
			found = &out[i]
		}
	}
	if found == nil {
		t.Fatalf("expected similarity-only candidate in output: %+v", out)
	}
	if !almostEqual(found.Score, 0.5) {
		t.Fatalf("expected similarity score 0.5, got %v", found.Score)
	}
	if found.Factors.VectorSimilarity == nil || !almostEqual(*found.Factors.VectorSimilarity, 0.5) {
		t.Fatalf("expected vector similarity factor 0.5, got %v", found.Factors.VectorSimilarity)
	}
}

func TestScoresAreClamped(t *testing.T) {
	svc := newTestRecService(t)
	userID := uuid.New()

	seen := withEmbedding(testCandidate([]string{"DevOps"}, "beginner", "article"), 1)
	candidate := withEmbedding(testCandidate([]string{"AI", "Machine Learning"}, "beginner", "video"), 1)
	pool := []*types.ContentItem{seen, candidate}

	prefs := testPrefs(
		[]string{"AI"},
		map[string]string{"AI": "beginner", "Machine Learning": "beginner"},
		[]string{"video"},
	)
	history := []*types.UserInteraction{interaction(userID, seen.ID, time.Now())}

	// Additive 0.60 plus similarity 0.5 = 1.1 before clamping.
	out := svc.GenerateRecommendations(prefs, history, pool, 10)
	for _, rec := range out {
		if rec.Score < 0 || rec.Score > 1 {
			t.Fatalf("score %v outside [0,1]", rec.Score)
		}
	}
	var found *ScoredRecommendation
	for i := range out {
		if out[i].ContentID == candidate.ID {
			found = &out[i]
		}
	}
	if found == nil || found.Score != 1.0 {
		t.Fatalf("expected clamped score 1.0, got %+v", found)
	}
}

func TestMalformedEmbeddingSkipsCandidate(t *testing.T) {
	svc := newTestRecService(t)

	good := testCandidate([]string{"AI"}, "beginner", "video")
	bad := testCandidate([]string{"AI"}, "beginner", "video")
	v := pgvector.NewVector([]float32{1, 2, 3})
	bad.Embedding = &v

	prefs := testPrefs([]string{"AI"}, map[string]string{"AI": "beginner"}, []string{"video"})
	out := svc.GenerateRecommendations(prefs, nil, []*types.ContentItem{bad, good}, 10)
	if len(out) != 1 {
		t.Fatalf("malformed-embedding candidate must be skipped, got %d results", len(out))
	}
	if out[0].ContentID != good.ID {
		t.Fatalf("surviving candidate should be the well-formed one")
	}
}

func TestDeterminismAndStableTieBreak(t *testing.T) {
	svc := newTestRecService(t)

	prefs := testPrefs([]string{"AI"}, nil, []string{"video"})
	a := testCandidate([]string{"AI"}, "beginner", "video")
	b := testCandidate([]string{"AI"}, "advanced", "video")
	c := testCandidate([]string{"AI"}, "intermediate", "video")
	pool := []*types.ContentItem{a, b, c}

	first := svc.GenerateRecommendations(prefs, nil, pool, 10)
	second := svc.GenerateRecommendations(prefs, nil, pool, 10)

	if len(first) != len(second) {
		t.Fatalf("determinism violated: %d vs %d results", len(first), len(second))
	}
	for i := range first {
		if first[i].ContentID != second[i].ContentID || first[i].Score != second[i].Score {
			t.Fatalf("determinism violated at index %d", i)
		}
	}
	// All three tie at 0.30; stable sort must preserve pool order.
	for i, want := range []uuid.UUID{a.ID, b.ID, c.ID} {
		if first[i].ContentID != want {
			t.Fatalf("tie-break must preserve input order at index %d", i)
		}
	}
}

func TestSkillAppropriateness(t *testing.T) {
	cases := []struct {
		name      string
		userLevel string
		candidate string
		want      bool
	}{
		{"same level", "beginner", "beginner", true},
		{"one step harder", "beginner", "intermediate", true},
		{"two steps harder", "beginner", "advanced", false},
		{"easier is fine", "advanced", "beginner", true},
		{"intermediate to advanced", "intermediate", "advanced", true},
		{"unknown user level", "expert", "advanced", true},
		{"unknown candidate level", "beginner", "ninja", true},
		{"empty levels", "", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := skillAppropriate(tc.userLevel, tc.candidate); got != tc.want {
				t.Fatalf("skillAppropriate(%q, %q) = %v, want %v", tc.userLevel, tc.candidate, got, tc.want)
			}
		})
	}

	// Monotonic: raising user skill one step never flips appropriate to
	// inappropriate for a fixed candidate difficulty.
	levels := []string{types.SkillBeginner, types.SkillIntermediate, types.SkillAdvanced}
	for _, candidate := range levels {
		for i := 0; i < len(levels)-1; i++ {
			lower := skillAppropriate(levels[i], candidate)
			higher := skillAppropriate(levels[i+1], candidate)
			if lower && !higher {
				t.Fatalf("monotonicity violated: user %s->%s for candidate %s", levels[i], levels[i+1], candidate)
			}
		}
	}
}

func TestRecentInterestWindowUsesFirstFive(t *testing.T) {
	userID := uuid.New()

	// Six history records, most recent first. The sixth (oldest) points
	// at the only item whose embedding differs; it must not contribute.
	recent := make([]*types.ContentItem, 5)
	pool := make([]*types.ContentItem, 0, 6)
	history := make([]*types.UserInteraction, 0, 6)
	for i := range recent {
		recent[i] = withEmbedding(testCandidate([]string{"AI"}, "beginner", "video"), 1)
		pool = append(pool, recent[i])
		history = append(history, interaction(userID, recent[i].ID, time.Now()))
	}
	old := withEmbedding(testCandidate([]string{"AI"}, "beginner", "video"), -1)
	pool = append(pool, old)
	history = append(history, interaction(userID, old.ID, time.Now().Add(-time.Hour)))

	vec := recentInterestVector(history, pool, defaultRecentInterestWindow)
	if vec == nil {
		t.Fatalf("expected a recent-interest vector")
	}
	for _, v := range vec {
		if v != 1 {
			t.Fatalf("oldest record leaked into the window: component %v", v)
		}
	}
}

func TestScoreThresholdIsConfigurable(t *testing.T) {
	prefs := testPrefs([]string{"AI"}, map[string]string{"AI": "beginner"}, []string{"video"})
	pool := []*types.ContentItem{testCandidate([]string{"AI"}, "beginner", "video")}

	// Scores 0.45 under the default 0.3 threshold.
	def := newTestRecService(t)
	if got := def.GenerateRecommendations(prefs, nil, pool, 10); len(got) != 1 {
		t.Fatalf("expected the candidate under the default threshold, got %d", len(got))
	}

	raised := newTestRecServiceCfg(t, RecommendationConfig{MinScoreThreshold: 0.5})
	if got := raised.GenerateRecommendations(prefs, nil, pool, 10); len(got) != 0 {
		t.Fatalf("expected the 0.45 candidate dropped under a 0.5 threshold, got %d", len(got))
	}
}

func TestRecentInterestWindowIsConfigurable(t *testing.T) {
	userID := uuid.New()

	// No domain/skill/type matches: only the similarity term can lift a
	// candidate over the threshold.
	prefs := testPrefs(nil, nil, nil)

	newest := withEmbedding(testCandidate([]string{"AI"}, "beginner", "video"), 1)
	older := withEmbedding(testCandidate([]string{"AI"}, "beginner", "video"), -1)
	target := withEmbedding(testCandidate([]string{"AI"}, "beginner", "video"), 1)
	pool := []*types.ContentItem{newest, older, target}
	history := []*types.UserInteraction{
		interaction(userID, newest.ID, time.Now()),
		interaction(userID, older.ID, time.Now().Add(-time.Hour)),
	}

	// Window 1: the interest vector is newest's embedding, so target
	// scores cos=1 times the similarity weight.
	narrow := newTestRecServiceCfg(t, RecommendationConfig{RecentInterestWindow: 1})
	found := false
	for _, rec := range narrow.GenerateRecommendations(prefs, history, pool, 10) {
		if rec.ContentID == target.ID {
			found = true
			if !almostEqual(rec.Score, 0.5) {
				t.Fatalf("target score = %v, want 0.5", rec.Score)
			}
		}
	}
	if !found {
		t.Fatalf("expected target recommended with a window of 1")
	}

	// Default window: newest and older average to the zero vector, the
	// similarity term vanishes, and nothing clears the threshold.
	def := newTestRecService(t)
	if got := def.GenerateRecommendations(prefs, history, pool, 10); len(got) != 0 {
		t.Fatalf("expected no recommendations under the default window, got %d", len(got))
	}
}

func TestChooseReasonPrecedence(t *testing.T) {
	if got := chooseReason("AI", true, "video"); got != "Matches your interest in AI" {
		t.Fatalf("domain must win: %q", got)
	}
	if got := chooseReason("", true, "video"); got != "Matches your preferred video content" {
		t.Fatalf("content type is second: %q", got)
	}
	if got := chooseReason("", false, "video"); got != "Popular content" {
		t.Fatalf("generic fallback expected: %q", got)
	}
}
