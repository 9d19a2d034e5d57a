package types

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

const (
	ContentStatusPending  = "pending"
	ContentStatusApproved = "approved"
	ContentStatusRejected = "rejected"
)

const (
	ContentSourceYouTube = "youtube"
	ContentSourceArxiv   = "arxiv"
	ContentSourceUpload  = "upload"
)

// EmbeddingDimensions is the fixed vector size produced by the embedding
// model (text-embedding-3-small).
const EmbeddingDimensions = 1536

type ContentItem struct {
	ID              uuid.UUID                   `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title           string                      `gorm:"not null;column:title" json:"title"`
	Description     string                      `gorm:"type:text;column:description" json:"description"`
	ContentType     string                      `gorm:"not null;column:content_type" json:"content_type"` // video, article, paper, course, document
	Source          string                      `gorm:"not null;column:source" json:"source"`
	SourceID        string                      `gorm:"column:source_id" json:"source_id"`
	URL             string                      `gorm:"column:url" json:"url"`
	DurationMinutes int                         `gorm:"column:duration_minutes" json:"duration_minutes"`
	DifficultyLevel string                      `gorm:"column:difficulty_level" json:"difficulty_level"`
	Topics          datatypes.JSONSlice[string] `gorm:"type:jsonb;column:topics" json:"topics"`
	Language        string                      `gorm:"default:en;column:language" json:"language"`
	Metadata        datatypes.JSONMap           `gorm:"type:jsonb;column:metadata" json:"metadata"`
	Embedding       *pgvector.Vector            `gorm:"type:vector(1536);column:embedding" json:"-"`
	Status          string                      `gorm:"not null;default:pending;column:status" json:"status"`
	CreatedAt       time.Time                   `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt       time.Time                   `gorm:"not null;default:now()" json:"updated_at"`
}

func (ContentItem) TableName() string { return "content_items" }

// EmbeddingSlice returns the stored embedding as a float32 slice, or nil
// when the item has no embedding.
func (c *ContentItem) EmbeddingSlice() []float32 {
	if c == nil || c.Embedding == nil {
		return nil
	}
	return c.Embedding.Slice()
}
