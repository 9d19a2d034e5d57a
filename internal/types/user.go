package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	RoleLearner = "learner"
	RoleAdmin   = "admin"
)

type User struct {
	ID            uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email         string    `gorm:"uniqueIndex;not null;column:email" json:"email"`
	PasswordHash  string    `gorm:"column:password_hash" json:"-"` // empty for OAuth-only accounts
	FullName      string    `gorm:"not null;column:full_name" json:"full_name"`
	Role          string    `gorm:"not null;default:learner;column:role" json:"role"`
	IsActive      bool      `gorm:"not null;default:true;column:is_active" json:"is_active"`
	EmailVerified bool      `gorm:"not null;default:false;column:email_verified" json:"email_verified"`
	CreatedAt     time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (User) TableName() string { return "users" }
