package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Recognized skill levels, ordered weakest to strongest.
const (
	SkillBeginner     = "beginner"
	SkillIntermediate = "intermediate"
	SkillAdvanced     = "advanced"
)

type UserPreference struct {
	ID                    uuid.UUID                             `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID                uuid.UUID                             `gorm:"type:uuid;not null;uniqueIndex;column:user_id" json:"user_id"`
	LearningDomains       datatypes.JSONSlice[string]           `gorm:"type:jsonb;column:learning_domains" json:"learning_domains"`
	SkillLevels           datatypes.JSONType[map[string]string] `gorm:"type:jsonb;column:skill_levels" json:"skill_levels"`
	PreferredContentTypes datatypes.JSONSlice[string]           `gorm:"type:jsonb;column:preferred_content_types" json:"preferred_content_types"`
	TimeConstraints       datatypes.JSONMap                     `gorm:"type:jsonb;column:time_constraints" json:"time_constraints"`
	LanguagePreferences   datatypes.JSONSlice[string]           `gorm:"type:jsonb;column:language_preferences" json:"language_preferences"`
	CreatedAt             time.Time                             `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt             time.Time                             `gorm:"not null;default:now()" json:"updated_at"`
}

func (UserPreference) TableName() string { return "user_preferences" }
