package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	InteractionView     = "view"
	InteractionLike     = "like"
	InteractionDislike  = "dislike"
	InteractionComplete = "complete"
	InteractionBookmark = "bookmark"
	InteractionShare    = "share"
)

// ValidInteractionType reports whether t is one of the recognized
// interaction type tags.
func ValidInteractionType(t string) bool {
	switch t {
	case InteractionView, InteractionLike, InteractionDislike,
		InteractionComplete, InteractionBookmark, InteractionShare:
		return true
	}
	return false
}

type UserInteraction struct {
	ID                   uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID               uuid.UUID `gorm:"type:uuid;not null;index;column:user_id" json:"user_id"`
	ContentID            uuid.UUID `gorm:"type:uuid;not null;index;column:content_id" json:"content_id"`
	InteractionType      string    `gorm:"not null;column:interaction_type" json:"interaction_type"`
	Rating               *int      `gorm:"column:rating" json:"rating,omitempty"` // 1-5
	FeedbackText         string    `gorm:"type:text;column:feedback_text" json:"feedback_text,omitempty"`
	TimeSpentMinutes     int       `gorm:"column:time_spent_minutes" json:"time_spent_minutes"`
	CompletionPercentage float64   `gorm:"default:0;column:completion_percentage" json:"completion_percentage"`
	CreatedAt            time.Time `gorm:"not null;default:now();index" json:"created_at"`
}

func (UserInteraction) TableName() string { return "user_interactions" }
