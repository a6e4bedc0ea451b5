package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type RoadmapItemType string

const (
	ItemTypeSkills        RoadmapItemType = "skills"
	ItemTypeProjects      RoadmapItemType = "projects"
	ItemTypeFreeResources RoadmapItemType = "freeResources"
	ItemTypePaidResources RoadmapItemType = "paidResources"
)

// AllRoadmapItemTypes is the closed category set. Any other string is
// rejected at the boundary.
var AllRoadmapItemTypes = []RoadmapItemType{
	ItemTypeSkills,
	ItemTypeProjects,
	ItemTypeFreeResources,
	ItemTypePaidResources,
}

func (t RoadmapItemType) Valid() bool {
	switch t {
	case ItemTypeSkills, ItemTypeProjects, ItemTypeFreeResources, ItemTypePaidResources:
		return true
	}
	return false
}

// RoadmapItemProgress is one tracked leaf item under a RoadmapProgress
// parent. item_index is a position into the content catalog's list for that
// (role, tier, category); the subsystem trusts the caller on its range.
type RoadmapItemProgress struct {
	ID                uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	RoadmapProgressID uuid.UUID        `gorm:"type:uuid;not null;uniqueIndex:idx_parent_type_index;index" json:"roadmap_progress_id"`
	RoadmapProgress   *RoadmapProgress `gorm:"constraint:OnDelete:CASCADE;foreignKey:RoadmapProgressID;references:ID" json:"roadmap_progress,omitempty"`
	ItemType          RoadmapItemType  `gorm:"not null;column:item_type;uniqueIndex:idx_parent_type_index;index" json:"item_type"`
	ItemIndex         int              `gorm:"not null;column:item_index;uniqueIndex:idx_parent_type_index;check:item_index >= 0" json:"item_index"`
	Completed         bool             `gorm:"not null;default:false;column:completed;index" json:"completed"`
	CompletedAt       *time.Time       `gorm:"column:completed_at" json:"completed_at,omitempty"`
	Notes             string           `gorm:"column:notes" json:"notes"`
	Metadata          datatypes.JSON   `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt         time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt         time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (RoadmapItemProgress) TableName() string { return "roadmap_item_progress" }
