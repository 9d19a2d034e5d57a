package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Recommendation is the persisted log of one recommendation shown to a
// user, including the score breakdown and any later feedback.
type Recommendation struct {
	ID                  uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID              uuid.UUID      `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	ContentID           uuid.UUID      `gorm:"type:uuid;not null;index;column:content_id" json:"content_id"`
	RecommendationScore float64        `gorm:"not null;column:recommendation_score" json:"recommendation_score"`
	ExplanationFactors  datatypes.JSON `gorm:"type:jsonb;column:explanation_factors" json:"explanation_factors"`
	AlgorithmVersion    string         `gorm:"column:algorithm_version" json:"algorithm_version"`
	ShownAt             time.Time      `gorm:"not null;default:now();column:shown_at" json:"shown_at"`
	ClickedAt           *time.Time     `gorm:"column:clicked_at" json:"clicked_at,omitempty"`
	FeedbackRating      *int           `gorm:"column:feedback_rating" json:"feedback_rating,omitempty"`
	FeedbackType        string         `gorm:"column:feedback_type" json:"feedback_type,omitempty"`
}

func (Recommendation) TableName() string { return "recommendations" }
