package types

import (
	"time"

	"github.com/google/uuid"
)

// RoadmapSubSkillNote is the string-keyed breakdown under a skill. It is a
// qualitative sibling of RoadmapItemProgress and never feeds the parent's
// completion_percentage.
type RoadmapSubSkillNote struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RoadmapProgressID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_parent_skill_subskill;index" json:"roadmap_progress_id"`
	RoadmapProgress   *RoadmapProgress `gorm:"constraint:OnDelete:CASCADE;foreignKey:RoadmapProgressID;references:ID" json:"roadmap_progress,omitempty"`
	SkillName         string           `gorm:"not null;column:skill_name;uniqueIndex:idx_parent_skill_subskill" json:"skill_name"`
	SubSkillName      string           `gorm:"not null;column:sub_skill_name;uniqueIndex:idx_parent_skill_subskill" json:"sub_skill_name"`
	Completed         bool             `gorm:"not null;default:false;column:completed" json:"completed"`
	Notes             string           `gorm:"column:notes" json:"notes"`
	CreatedAt         time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (RoadmapSubSkillNote) TableName() string { return "roadmap_subskill_note" }
