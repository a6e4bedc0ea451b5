package types

import (
	"time"

	"github.com/google/uuid"
)

// RoadmapProgress is the per (owner, role, tier) rollup row. Its
// completion_percentage is derived from the item rows beneath it and is
// rewritten inside the same transaction as any item mutation.
type RoadmapProgress struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_role_year;index" json:"user_id"`
	User                 *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	RoleID               string    `gorm:"not null;column:role_id;uniqueIndex:idx_user_role_year" json:"role_id"`
	YearID               string    `gorm:"not null;column:year_id;uniqueIndex:idx_user_role_year" json:"year_id"`
	CompletionPercentage int       `gorm:"not null;default:0;column:completion_percentage;check:completion_percentage >= 0 AND completion_percentage <= 100" json:"completion_percentage"`
	LastUpdated          time.Time `gorm:"not null;default:CURRENT_TIMESTAMP;column:last_updated" json:"last_updated"`
	CreatedAt            time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (RoadmapProgress) TableName() string { return "roadmap_progress" }
