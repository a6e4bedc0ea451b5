package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathbyte/pathbyte-backend/internal/logger"
	"github.com/pathbyte/pathbyte-backend/internal/types"
)

type RoadmapSubSkillNoteRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, row *types.RoadmapSubSkillNote) (*types.RoadmapSubSkillNote, error)
	GetByKey(ctx context.Context, tx *gorm.DB, parentID uuid.UUID, skillName, subSkillName string) (*types.RoadmapSubSkillNote, error)
	GetByParentID(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) ([]*types.RoadmapSubSkillNote, error)
	FullDeleteByParentIDs(ctx context.Context, tx *gorm.DB, parentIDs []uuid.UUID) error
}

type roadmapSubSkillNoteRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoadmapSubSkillNoteRepo(db *gorm.DB, baseLog *logger.Logger) RoadmapSubSkillNoteRepo {
	return &roadmapSubSkillNoteRepo{db: db, log: baseLog.With("repo", "RoadmapSubSkillNoteRepo")}
}

func (r *roadmapSubSkillNoteRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.RoadmapSubSkillNote) (*types.RoadmapSubSkillNote, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil, nil
	}

	existing, err := r.GetByKey(ctx, transaction, row.RoadmapProgressID, row.SkillName, row.SubSkillName)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if existing == nil {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
			return nil, err
		}
		return row, nil
	}
	if err := transaction.WithContext(ctx).
		Model(&types.RoadmapSubSkillNote{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{
			"completed":  row.Completed,
			"notes":      row.Notes,
			"updated_at": now,
		}).Error; err != nil {
		return nil, err
	}
	return r.GetByKey(ctx, transaction, row.RoadmapProgressID, row.SkillName, row.SubSkillName)
}

func (r *roadmapSubSkillNoteRepo) GetByKey(ctx context.Context, tx *gorm.DB, parentID uuid.UUID, skillName, subSkillName string) (*types.RoadmapSubSkillNote, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.RoadmapSubSkillNote
	err := transaction.WithContext(ctx).
		Where("roadmap_progress_id = ? AND skill_name = ? AND sub_skill_name = ?", parentID, skillName, subSkillName).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *roadmapSubSkillNoteRepo) GetByParentID(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) ([]*types.RoadmapSubSkillNote, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.RoadmapSubSkillNote
	if parentID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("roadmap_progress_id = ?", parentID).
		Order("skill_name, sub_skill_name").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *roadmapSubSkillNoteRepo) FullDeleteByParentIDs(ctx context.Context, tx *gorm.DB, parentIDs []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(parentIDs) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("roadmap_progress_id IN ?", parentIDs).
		Delete(&types.RoadmapSubSkillNote{}).Error
}
