package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathbyte/pathbyte-backend/internal/logger"
	"github.com/pathbyte/pathbyte-backend/internal/types"
)

type RoadmapItemProgressRepo interface {
	// Upsert writes one item record keyed by (parent, item_type, item_index),
	// applying the completed_at transition rule: set on false->true, cleared
	// on true->false, untouched otherwise.
	Upsert(ctx context.Context, tx *gorm.DB, row *types.RoadmapItemProgress) (*types.RoadmapItemProgress, error)
	GetByKey(ctx context.Context, tx *gorm.DB, parentID uuid.UUID, itemType types.RoadmapItemType, itemIndex int) (*types.RoadmapItemProgress, error)
	GetByParentID(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) ([]*types.RoadmapItemProgress, error)
	GetByParentIDs(ctx context.Context, tx *gorm.DB, parentIDs []uuid.UUID) ([]*types.RoadmapItemProgress, error)
	CountByParentID(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) (completed int64, total int64, err error)
	CreateBatch(ctx context.Context, tx *gorm.DB, rows []*types.RoadmapItemProgress) error
	FullDeleteByParentIDs(ctx context.Context, tx *gorm.DB, parentIDs []uuid.UUID) error
}

type roadmapItemProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoadmapItemProgressRepo(db *gorm.DB, baseLog *logger.Logger) RoadmapItemProgressRepo {
	return &roadmapItemProgressRepo{db: db, log: baseLog.With("repo", "RoadmapItemProgressRepo")}
}

func (r *roadmapItemProgressRepo) Upsert(ctx context.Context, tx *gorm.DB, row *types.RoadmapItemProgress) (*types.RoadmapItemProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if row == nil {
		return nil, nil
	}

	existing, err := r.GetByKey(ctx, transaction, row.RoadmapProgressID, row.ItemType, row.ItemIndex)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if existing == nil {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
		if row.Completed {
			row.CompletedAt = &now
		} else {
			row.CompletedAt = nil
		}
		if err := transaction.WithContext(ctx).Create(row).Error; err != nil {
			return nil, err
		}
		return row, nil
	}

	updates := map[string]interface{}{
		"completed":  row.Completed,
		"notes":      row.Notes,
		"updated_at": now,
	}
	if row.Metadata != nil {
		updates["metadata"] = row.Metadata
	}
	switch {
	case row.Completed && !existing.Completed:
		updates["completed_at"] = &now
	case !row.Completed && existing.Completed:
		updates["completed_at"] = gorm.Expr("NULL")
	}
	if err := transaction.WithContext(ctx).
		Model(&types.RoadmapItemProgress{}).
		Where("id = ?", existing.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}
	return r.GetByKey(ctx, transaction, row.RoadmapProgressID, row.ItemType, row.ItemIndex)
}

func (r *roadmapItemProgressRepo) GetByKey(ctx context.Context, tx *gorm.DB, parentID uuid.UUID, itemType types.RoadmapItemType, itemIndex int) (*types.RoadmapItemProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.RoadmapItemProgress
	err := transaction.WithContext(ctx).
		Where("roadmap_progress_id = ? AND item_type = ? AND item_index = ?", parentID, itemType, itemIndex).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *roadmapItemProgressRepo) GetByParentID(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) ([]*types.RoadmapItemProgress, error) {
	return r.GetByParentIDs(ctx, tx, []uuid.UUID{parentID})
}

func (r *roadmapItemProgressRepo) GetByParentIDs(ctx context.Context, tx *gorm.DB, parentIDs []uuid.UUID) ([]*types.RoadmapItemProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.RoadmapItemProgress
	if len(parentIDs) == 0 {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("roadmap_progress_id IN ?", parentIDs).
		Order("item_type, item_index").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *roadmapItemProgressRepo) CountByParentID(ctx context.Context, tx *gorm.DB, parentID uuid.UUID) (int64, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var total int64
	if err := transaction.WithContext(ctx).
		Model(&types.RoadmapItemProgress{}).
		Where("roadmap_progress_id = ?", parentID).
		Count(&total).Error; err != nil {
		return 0, 0, err
	}
	var completed int64
	if err := transaction.WithContext(ctx).
		Model(&types.RoadmapItemProgress{}).
		Where("roadmap_progress_id = ? AND completed = ?", parentID, true).
		Count(&completed).Error; err != nil {
		return 0, 0, err
	}
	return completed, total, nil
}

func (r *roadmapItemProgressRepo) CreateBatch(ctx context.Context, tx *gorm.DB, rows []*types.RoadmapItemProgress) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(rows) == 0 {
		return nil
	}
	for _, row := range rows {
		if row.ID == uuid.Nil {
			row.ID = uuid.New()
		}
	}
	return transaction.WithContext(ctx).Create(&rows).Error
}

func (r *roadmapItemProgressRepo) FullDeleteByParentIDs(ctx context.Context, tx *gorm.DB, parentIDs []uuid.UUID) error {
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
		Delete(&types.RoadmapItemProgress{}).Error
}
