package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

func newFeedFixture(t *testing.T) (RecommendationService, *fakePrefRepo, *fakeInteractionRepo, *fakeContentRepo, *fakeRecRepo) {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	prefs := newFakePrefRepo()
	interactions := newFakeInteractionRepo()
	content := &fakeContentRepo{}
	recs := newFakeRecRepo()
	svc := NewRecommendationService(
		log,
		RecommendationConfig{AlgorithmVersion: "v1.0"},
		&fakeAIClient{text: "Because you like AI."},
		nil,
		prefs,
		interactions,
		content,
		recs,
	)
	return svc, prefs, interactions, content, recs
}

func TestFeedForUserPersistsShownRecommendations(t *testing.T) {
	svc, prefs, _, content, recRepo := newFeedFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	prefs.byUser[userID] = testPrefs([]string{"AI"}, map[string]string{"AI": "beginner"}, []string{"video"})
	item := testCandidate([]string{"AI"}, "beginner", "video")
	content.items = append(content.items, item)
	// Pending items never enter the candidate pool.
	pending := testCandidate([]string{"AI"}, "beginner", "video")
	pending.Status = types.ContentStatusPending
	content.items = append(content.items, pending)

	feed, err := svc.FeedForUser(ctx, userID, 10, false)
	if err != nil {
		t.Fatalf("FeedForUser: %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("expected 1 feed item, got %d", len(feed))
	}
	if feed[0].Content == nil || feed[0].Content.ID != item.ID {
		t.Fatalf("feed item must embed the content record")
	}
	if !almostEqual(feed[0].Score, 0.45) {
		t.Fatalf("expected score 0.45, got %v", feed[0].Score)
	}

	stored, ok := recRepo.recs[feed[0].RecommendationID]
	if !ok {
		t.Fatalf("shown recommendation must be persisted")
	}
	if stored.UserID != userID || stored.ContentID != item.ID {
		t.Fatalf("persisted recommendation has wrong identity: %+v", stored)
	}
	if stored.AlgorithmVersion != "v1.0" {
		t.Fatalf("algorithm version must be stamped, got %q", stored.AlgorithmVersion)
	}
	if len(stored.ExplanationFactors) == 0 {
		t.Fatalf("factor breakdown must be persisted")
	}
}

func TestFeedForUserFallsBackWithoutPreferences(t *testing.T) {
	svc, _, _, content, _ := newFeedFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		content.items = append(content.items, testCandidate([]string{"DevOps"}, "advanced", "article"))
	}

	feed, err := svc.FeedForUser(ctx, uuid.New(), 2, false)
	if err != nil {
		t.Fatalf("FeedForUser: %v", err)
	}
	if len(feed) != 2 {
		t.Fatalf("expected 2 fallback items, got %d", len(feed))
	}
	for _, item := range feed {
		if item.Score != 0.5 {
			t.Fatalf("fallback score must be 0.5, got %v", item.Score)
		}
	}
}

func TestExplainChecksOwnership(t *testing.T) {
	svc, prefs, _, content, _ := newFeedFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	prefs.byUser[userID] = testPrefs([]string{"AI"}, nil, []string{"video"})
	content.items = append(content.items, testCandidate([]string{"AI"}, "beginner", "video"))

	feed, err := svc.FeedForUser(ctx, userID, 10, false)
	if err != nil || len(feed) != 1 {
		t.Fatalf("FeedForUser: %v (%d items)", err, len(feed))
	}
	recID := feed[0].RecommendationID

	if _, err := svc.Explain(ctx, uuid.New(), recID); err == nil {
		t.Fatalf("another user must not read this explanation")
	}

	exp, err := svc.Explain(ctx, userID, recID)
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if exp.Narrative != "Because you like AI." {
		t.Fatalf("unexpected narrative %q", exp.Narrative)
	}
	if exp.Factors.Reason != "Matches your interest in AI" {
		t.Fatalf("persisted factors must round-trip, got %+v", exp.Factors)
	}
}

func TestExplainNarrativeFallsBackWhenProviderFails(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	prefs := newFakePrefRepo()
	content := &fakeContentRepo{}
	recRepo := newFakeRecRepo()
	svc := NewRecommendationService(
		log,
		RecommendationConfig{},
		&fakeAIClient{err: fmt.Errorf("provider down")},
		nil,
		prefs,
		newFakeInteractionRepo(),
		content,
		recRepo,
	)
	ctx := context.Background()
	userID := uuid.New()

	item := testCandidate([]string{"AI"}, "beginner", "video")
	content.items = append(content.items, item)
	rec := &types.Recommendation{
		ID:                  uuid.New(),
		UserID:              userID,
		ContentID:           item.ID,
		RecommendationScore: 0.45,
		ExplanationFactors:  datatypes.JSON([]byte(`{"reason":"Matches your interest in AI"}`)),
	}
	recRepo.recs[rec.ID] = rec

	exp, err := svc.Explain(ctx, userID, rec.ID)
	if err != nil {
		t.Fatalf("Explain must not fail when the provider does: %v", err)
	}
	if exp.Narrative == "" {
		t.Fatalf("heuristic narrative expected")
	}
}

func TestSubmitFeedbackValidation(t *testing.T) {
	svc, prefs, _, content, recRepo := newFeedFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	prefs.byUser[userID] = testPrefs([]string{"AI"}, nil, []string{"video"})
	content.items = append(content.items, testCandidate([]string{"AI"}, "beginner", "video"))
	feed, err := svc.FeedForUser(ctx, userID, 10, false)
	if err != nil || len(feed) != 1 {
		t.Fatalf("FeedForUser: %v (%d items)", err, len(feed))
	}
	recID := feed[0].RecommendationID

	bad := 6
	if err := svc.SubmitFeedback(ctx, userID, recID, &bad, ""); err == nil {
		t.Fatalf("rating above 5 must be rejected")
	}
	if err := svc.SubmitFeedback(ctx, userID, recID, nil, "loved_it"); err == nil {
		t.Fatalf("unknown feedback type must be rejected")
	}
	if err := svc.SubmitFeedback(ctx, userID, recID, nil, ""); err == nil {
		t.Fatalf("empty feedback must be rejected")
	}

	good := 4
	if err := svc.SubmitFeedback(ctx, userID, recID, &good, "helpful"); err != nil {
		t.Fatalf("SubmitFeedback: %v", err)
	}
	stored := recRepo.recs[recID]
	if stored.FeedbackRating == nil || *stored.FeedbackRating != 4 || stored.FeedbackType != "helpful" {
		t.Fatalf("feedback not stored: %+v", stored)
	}

	if err := svc.SubmitFeedback(ctx, uuid.New(), recID, &good, "helpful"); err == nil {
		t.Fatalf("feedback on another user's recommendation must fail")
	}
}

func TestMarkClickedChecksOwnership(t *testing.T) {
	svc, prefs, _, content, recRepo := newFeedFixture(t)
	ctx := context.Background()
	userID := uuid.New()

	prefs.byUser[userID] = testPrefs([]string{"AI"}, nil, []string{"video"})
	content.items = append(content.items, testCandidate([]string{"AI"}, "beginner", "video"))
	feed, err := svc.FeedForUser(ctx, userID, 10, false)
	if err != nil || len(feed) != 1 {
		t.Fatalf("FeedForUser: %v (%d items)", err, len(feed))
	}
	recID := feed[0].RecommendationID

	if err := svc.MarkClicked(ctx, uuid.New(), recID); err == nil {
		t.Fatalf("another user must not mark this click")
	}
	if err := svc.MarkClicked(ctx, userID, recID); err != nil {
		t.Fatalf("MarkClicked: %v", err)
	}
	if recRepo.recs[recID].ClickedAt == nil {
		t.Fatalf("click timestamp must be stored")
	}
}
