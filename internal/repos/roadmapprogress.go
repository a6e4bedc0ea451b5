package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathbyte/pathbyte-backend/internal/logger"
	"github.com/pathbyte/pathbyte-backend/internal/types"
)

type RoadmapProgressRepo interface {
	// GetOrCreate lazily materializes the (user, role, tier) parent row. The
	// unique index on that triple makes concurrent creates collapse to one row.
	GetOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, roleID, yearID string) (*types.RoadmapProgress, error)
	GetByKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, roleID, yearID string) (*types.RoadmapProgress, error)
	GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.RoadmapProgress, error)
	UpdateCompletion(ctx context.Context, tx *gorm.DB, id uuid.UUID, percentage int) error
	FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error
	FullDeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error
}

type roadmapProgressRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRoadmapProgressRepo(db *gorm.DB, baseLog *logger.Logger) RoadmapProgressRepo {
	return &roadmapProgressRepo{db: db, log: baseLog.With("repo", "RoadmapProgressRepo")}
}

func (r *roadmapProgressRepo) GetOrCreate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, roleID, yearID string) (*types.RoadmapProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	row := &types.RoadmapProgress{
		ID:          uuid.New(),
		UserID:      userID,
		RoleID:      roleID,
		YearID:      yearID,
		LastUpdated: time.Now().UTC(),
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND role_id = ? AND year_id = ?", userID, roleID, yearID).
		FirstOrCreate(row).Error; err != nil {
		return nil, err
	}
	return row, nil
}

func (r *roadmapProgressRepo) GetByKey(ctx context.Context, tx *gorm.DB, userID uuid.UUID, roleID, yearID string) (*types.RoadmapProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var result types.RoadmapProgress
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND role_id = ? AND year_id = ?", userID, roleID, yearID).
		First(&result).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *roadmapProgressRepo) GetByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.RoadmapProgress, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var results []*types.RoadmapProgress
	if userID == uuid.Nil {
		return results, nil
	}
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("role_id, year_id").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *roadmapProgressRepo) UpdateCompletion(ctx context.Context, tx *gorm.DB, id uuid.UUID, percentage int) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).
		Model(&types.RoadmapProgress{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"completion_percentage": percentage,
			"last_updated":          time.Now().UTC(),
		}).Error
}

func (r *roadmapProgressRepo) FullDeleteByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if len(ids) == 0 {
		return nil
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("id IN ?", ids).
		Delete(&types.RoadmapProgress{}).Error
}

func (r *roadmapProgressRepo) FullDeleteByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Unscoped().
		Where("user_id = ?", userID).
		Delete(&types.RoadmapProgress{}).Error
}
