package types

import (
	"time"

	"github.com/google/uuid"
)

type LearningSession struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID             uuid.UUID  `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	ContentID          uuid.UUID  `gorm:"type:uuid;not null;column:content_id" json:"content_id"`
	StartedAt          time.Time  `gorm:"not null;default:now();column:started_at" json:"started_at"`
	EndedAt            *time.Time `gorm:"column:ended_at" json:"ended_at,omitempty"`
	ProgressPercentage float64    `gorm:"default:0;column:progress_percentage" json:"progress_percentage"`
	Notes              string     `gorm:"type:text;column:notes" json:"notes,omitempty"`
}

func (LearningSession) TableName() string { return "learning_sessions" }
