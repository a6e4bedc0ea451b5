package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathbyte/pathbyte-backend/internal/logger"
	"github.com/pathbyte/pathbyte-backend/internal/platform/apierr"
	"github.com/pathbyte/pathbyte-backend/internal/repos"
	"github.com/pathbyte/pathbyte-backend/internal/requestdata"
	"github.com/pathbyte/pathbyte-backend/internal/types"
)

type UserService interface {
	GetMe(ctx context.Context) (*types.User, error)
	UpdateRoadmapPrefs(ctx context.Context, roleID, tierID string) (*types.User, error)
	DeleteAccount(ctx context.Context) error
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo repos.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo repos.UserRepo) UserService {
	return &userService{
		db:       db,
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) GetMe(ctx context.Context) (*types.User, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthorized")
	}
	found, err := us.userRepo.GetByIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if len(found) == 0 || found[0] == nil {
		return nil, apierr.NotFound("user does not exist")
	}
	return found[0], nil
}

// UpdateRoadmapPrefs remembers the role/tier the user last selected so the
// frontend can reopen their roadmap where they left off.
func (us *userService) UpdateRoadmapPrefs(ctx context.Context, roleID, tierID string) (*types.User, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return nil, apierr.Unauthorized("unauthorized")
	}
	roleID = strings.TrimSpace(roleID)
	tierID = strings.TrimSpace(tierID)
	if roleID == "" || tierID == "" {
		return nil, apierr.InvalidArgument("roleId and tierId required")
	}

	prefs, err := json.Marshal(map[string]string{
		"roleId": roleID,
		"tierId": tierID,
	})
	if err != nil {
		return nil, err
	}

	var out *types.User
	if err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := us.userRepo.UpdateRoadmapPrefs(ctx, tx, rd.UserID, prefs); err != nil {
			return fmt.Errorf("update roadmap prefs: %w", err)
		}
		found, err := us.userRepo.GetByIDs(ctx, tx, []uuid.UUID{rd.UserID})
		if err != nil || len(found) == 0 || found[0] == nil {
			return apierr.NotFound("user does not exist")
		}
		out = found[0]
		return nil
	}); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAccount removes the user row; the progress tree underneath goes with
// it through the cascading foreign keys.
func (us *userService) DeleteAccount(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return apierr.Unauthorized("unauthorized")
	}
	return us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := us.userRepo.GetByIDs(ctx, tx, []uuid.UUID{rd.UserID})
		if err != nil {
			return fmt.Errorf("fetch user: %w", err)
		}
		if len(found) == 0 || found[0] == nil {
			return apierr.NotFound("user does not exist")
		}
		return us.userRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{rd.UserID})
	})
}
