package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/headstart-dev/headstart-backend/internal/clients/openai"
	"github.com/headstart-dev/headstart-backend/internal/clients/redis"
	"github.com/headstart-dev/headstart-backend/internal/logger"
	"github.com/headstart-dev/headstart-backend/internal/repos"
	"github.com/headstart-dev/headstart-backend/internal/types"
)

// BatchResult reports per-URL outcomes of a batch ingestion run.
type BatchResult struct {
	Processed []BatchItem `json:"processed"`
	Failed    []BatchItem `json:"failed"`
	Skipped   []BatchItem `json:"skipped"`
}

type BatchItem struct {
	URL       string    `json:"url"`
	ContentID uuid.UUID `json:"content_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// ContentStats aggregates catalogue counts per source and status.
type ContentStats struct {
	Total    int64                       `json:"total"`
	BySource map[string]map[string]int64 `json:"by_source"`
}

type ContentService interface {
	// IngestFromURL dedupes by URL, dispatches to the matching source
	// processor, embeds, and stores a pending item. Returns (item, false)
	// when the URL was already ingested.
	IngestFromURL(ctx context.Context, rawURL string) (*types.ContentItem, bool, error)
	IngestUpload(ctx context.Context, path, filename string) (*types.ContentItem, bool, error)
	IngestBatch(ctx context.Context, urls []string, batchSize int) (*BatchResult, error)
	Stats(ctx context.Context) (*ContentStats, error)
	UpdateStatus(ctx context.Context, contentID uuid.UUID, status string) error
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.ContentItem, error)
	RecordInteraction(ctx context.Context, interaction *types.UserInteraction) (*types.UserInteraction, error)
}

type contentService struct {
	log             *logger.Logger
	processor       ContentProcessor
	ai              openai.Client
	contentRepo     repos.ContentItemRepo
	interactionRepo repos.UserInteractionRepo
	cache           redis.RecommendationCache
}

func NewContentService(
	baseLog *logger.Logger,
	processor ContentProcessor,
	ai openai.Client,
	contentRepo repos.ContentItemRepo,
	interactionRepo repos.UserInteractionRepo,
	cache redis.RecommendationCache,
) ContentService {
	svcLog := baseLog.With("service", "ContentService")
	return &contentService{
		log:             svcLog,
		processor:       processor,
		ai:              ai,
		contentRepo:     contentRepo,
		interactionRepo: interactionRepo,
		cache:           cache,
	}
}

func (s *contentService) IngestFromURL(ctx context.Context, rawURL string) (*types.ContentItem, bool, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, false, fmt.Errorf("url required")
	}

	existing, err := s.contentRepo.GetByURL(ctx, nil, rawURL)
	if err != nil {
		return nil, false, fmt.Errorf("dedupe lookup: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	draft, err := s.dispatch(ctx, rawURL)
	if err != nil {
		return nil, false, err
	}

	item, err := s.persistDraft(ctx, draft)
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

func (s *contentService) dispatch(ctx context.Context, rawURL string) (*ContentDraft, error) {
	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "youtube.com") || strings.Contains(lower, "youtu.be"):
		return s.processor.ProcessYouTube(ctx, rawURL)
	case strings.Contains(lower, "arxiv.org"):
		return s.processor.ProcessArxiv(ctx, arxivIDFromURL(rawURL))
	default:
		return nil, fmt.Errorf("unsupported content source %q", rawURL)
	}
}

// arxivIDFromURL pulls the paper ID out of abs/ and pdf/ style URLs.
func arxivIDFromURL(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	path := strings.Trim(parsed.Path, "/")
	for _, prefix := range []string{"abs/", "pdf/"} {
		if strings.HasPrefix(path, prefix) {
			id := strings.TrimPrefix(path, prefix)
			return strings.TrimSuffix(id, ".pdf")
		}
	}
	return path
}

func (s *contentService) IngestUpload(ctx context.Context, path, filename string) (*types.ContentItem, bool, error) {
	draft, err := s.processor.ProcessUpload(ctx, path, filename)
	if err != nil {
		return nil, false, err
	}

	existing, err := s.contentRepo.GetBySourceID(ctx, nil, types.ContentSourceUpload, draft.SourceID)
	if err != nil {
		return nil, false, fmt.Errorf("dedupe lookup: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	item, err := s.persistDraft(ctx, draft)
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}

func (s *contentService) persistDraft(ctx context.Context, draft *ContentDraft) (*types.ContentItem, error) {
	item := &types.ContentItem{
		ID:              uuid.New(),
		Title:           draft.Title,
		Description:     draft.Description,
		ContentType:     draft.ContentType,
		Source:          draft.Source,
		SourceID:        draft.SourceID,
		URL:             draft.URL,
		DurationMinutes: draft.DurationMinutes,
		Topics:          datatypes.NewJSONSlice(draft.Topics),
		Language:        draft.Language,
		Metadata:        datatypes.JSONMap(draft.Metadata),
		Status:          types.ContentStatusPending,
	}

	// Embedding failure is non-fatal: the item is stored without one and
	// simply misses the similarity term at scoring time.
	if vectors, err := s.ai.Embed(ctx, []string{draft.EmbedText}); err != nil {
		s.log.Warn("Embedding generation failed, storing without embedding",
			"source", draft.Source, "source_id", draft.SourceID, "error", err.Error())
	} else if len(vectors) == 1 {
		vec := pgvector.NewVector(vectors[0])
		item.Embedding = &vec
	}

	created, err := s.contentRepo.Create(ctx, nil, []*types.ContentItem{item})
	if err != nil {
		return nil, fmt.Errorf("persist content: %w", err)
	}
	s.log.Info("Content ingested", "content_id", item.ID, "source", item.Source, "title", item.Title)
	return created[0], nil
}

func (s *contentService) IngestBatch(ctx context.Context, urls []string, batchSize int) (*BatchResult, error) {
	if batchSize <= 0 {
		batchSize = 5
	}

	result := &BatchResult{
		Processed: []BatchItem{},
		Failed:    []BatchItem{},
		Skipped:   []BatchItem{},
	}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchSize)

	for _, rawURL := range urls {
		rawURL := rawURL
		g.Go(func() error {
			item, created, err := s.IngestFromURL(gctx, rawURL)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Failed = append(result.Failed, BatchItem{URL: rawURL, Error: err.Error()})
			case !created:
				result.Skipped = append(result.Skipped, BatchItem{URL: rawURL, Reason: "already exists"})
			default:
				result.Processed = append(result.Processed, BatchItem{URL: rawURL, ContentID: item.ID})
			}
			// Per-URL failures are collected, not propagated.
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.log.Info("Batch ingestion completed",
		"processed", len(result.Processed),
		"failed", len(result.Failed),
		"skipped", len(result.Skipped),
	)
	return result, nil
}

func (s *contentService) Stats(ctx context.Context) (*ContentStats, error) {
	counts, err := s.contentRepo.CountBySourceAndStatus(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("content stats: %w", err)
	}

	stats := &ContentStats{BySource: map[string]map[string]int64{}}
	for _, row := range counts {
		if stats.BySource[row.Source] == nil {
			stats.BySource[row.Source] = map[string]int64{}
		}
		stats.BySource[row.Source][row.Status] += row.Count
		stats.Total += row.Count
	}
	return stats, nil
}

func (s *contentService) UpdateStatus(ctx context.Context, contentID uuid.UUID, status string) error {
	switch status {
	case types.ContentStatusPending, types.ContentStatusApproved, types.ContentStatusRejected:
	default:
		return fmt.Errorf("invalid content status %q", status)
	}
	return s.contentRepo.UpdateStatus(ctx, nil, contentID, status)
}

func (s *contentService) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*types.ContentItem, error) {
	return s.contentRepo.GetByIDs(ctx, nil, ids)
}

func (s *contentService) RecordInteraction(ctx context.Context, interaction *types.UserInteraction) (*types.UserInteraction, error) {
	if interaction == nil {
		return nil, fmt.Errorf("interaction required")
	}
	if !types.ValidInteractionType(interaction.InteractionType) {
		return nil, fmt.Errorf("invalid interaction type %q", interaction.InteractionType)
	}
	if interaction.Rating != nil && (*interaction.Rating < 1 || *interaction.Rating > 5) {
		return nil, fmt.Errorf("rating must be between 1 and 5")
	}

	items, err := s.contentRepo.GetByIDs(ctx, nil, []uuid.UUID{interaction.ContentID})
	if err != nil {
		return nil, fmt.Errorf("content lookup: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("content %s not found", interaction.ContentID)
	}

	if interaction.ID == uuid.Nil {
		interaction.ID = uuid.New()
	}
	created, err := s.interactionRepo.Create(ctx, nil, []*types.UserInteraction{interaction})
	if err != nil {
		return nil, fmt.Errorf("persist interaction: %w", err)
	}
	// New history changes scoring inputs, so the cached feed is stale.
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, interaction.UserID); err != nil {
			s.log.Warn("Failed to invalidate cached recommendations", "user_id", interaction.UserID.String(), "error", err.Error())
		}
	}
	return created[0], nil
}
