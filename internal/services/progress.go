package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/pathbyte/pathbyte-backend/internal/logger"
	"github.com/pathbyte/pathbyte-backend/internal/platform/apierr"
	"github.com/pathbyte/pathbyte-backend/internal/progress"
	"github.com/pathbyte/pathbyte-backend/internal/repos"
	"github.com/pathbyte/pathbyte-backend/internal/requestdata"
	"github.com/pathbyte/pathbyte-backend/internal/snapshot"
	"github.com/pathbyte/pathbyte-backend/internal/types"
)

// ProgressService is the single facade presentation code consumes for the
// roadmap progress tree. The database implementation below and the local
// fallback store implement the same surface and share one rollup formula, so
// a toggle acknowledged by either can never be followed by a stale rollup
// read.
type ProgressService interface {
	// ToggleItem upserts one item's completion state and returns the
	// parent tier's recomputed percentage. A nil notes pointer leaves any
	// existing notes untouched.
	ToggleItem(ctx context.Context, roleID, tierID string, itemType types.RoadmapItemType, itemIndex int, completed bool, notes *string) (int, error)
	GetTierProgress(ctx context.Context, roleID, tierID string) (int, error)
	GetItemProgress(ctx context.Context, roleID, tierID string, itemType types.RoadmapItemType, itemIndex int) (bool, error)
	// GetItemState returns the record, or the explicit untracked state
	// (completed=false, empty notes) when the item was never toggled.
	GetItemState(ctx context.Context, roleID, tierID string, itemType types.RoadmapItemType, itemIndex int) (snapshot.ItemState, error)
	ListTierItems(ctx context.Context, roleID, tierID string) ([]*types.RoadmapItemProgress, error)
	SetSubSkillNote(ctx context.Context, roleID, tierID, skillName, subSkillName string, completed bool, notes string) error
	GetSubSkillNote(ctx context.Context, roleID, tierID, skillName, subSkillName string) (snapshot.ItemState, error)
	ExportSnapshot(ctx context.Context) (snapshot.Document, error)
	ImportSnapshot(ctx context.Context, raw []byte) error
	ResetTier(ctx context.Context, roleID, tierID string) error
}

type progressService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     repos.UserRepo
	progressRepo repos.RoadmapProgressRepo
	itemRepo     repos.RoadmapItemProgressRepo
	subSkillRepo repos.RoadmapSubSkillNoteRepo
	notifier     ProgressNotifier
}

func NewProgressService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	progressRepo repos.RoadmapProgressRepo,
	itemRepo repos.RoadmapItemProgressRepo,
	subSkillRepo repos.RoadmapSubSkillNoteRepo,
	notifier ProgressNotifier,
) ProgressService {
	if notifier == nil {
		notifier = NopProgressNotifier{}
	}
	return &progressService{
		db:           db,
		log:          log.With("service", "ProgressService"),
		userRepo:     userRepo,
		progressRepo: progressRepo,
		itemRepo:     itemRepo,
		subSkillRepo: subSkillRepo,
		notifier:     notifier,
	}
}

func validateItemKey(roleID, tierID string, itemType types.RoadmapItemType, itemIndex int) error {
	if strings.TrimSpace(roleID) == "" || strings.TrimSpace(tierID) == "" {
		return apierr.InvalidArgument("roleId and tierId required")
	}
	if !itemType.Valid() {
		return apierr.InvalidArgument("unknown item type %q", itemType)
	}
	if itemIndex < 0 {
		return apierr.InvalidArgument("item index must be >= 0, got %d", itemIndex)
	}
	return nil
}

func ownerFromContext(ctx context.Context) (uuid.UUID, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, apierr.Unauthorized("unauthorized")
	}
	return rd.UserID, nil
}

// ensureOwner guards lazy parent creation: a parent cannot be created for an
// owner that no longer exists (e.g. a deleted account).
func (ps *progressService) ensureOwner(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	found, err := ps.userRepo.GetByIDs(ctx, tx, []uuid.UUID{userID})
	if err != nil {
		return fmt.Errorf("fetch owner: %w", err)
	}
	if len(found) == 0 || found[0] == nil {
		return apierr.NotFound("owner does not exist")
	}
	return nil
}

func (ps *progressService) ToggleItem(ctx context.Context, roleID, tierID string, itemType types.RoadmapItemType, itemIndex int, completed bool, notes *string) (int, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return 0, err
	}
	if err := validateItemKey(roleID, tierID, itemType, itemIndex); err != nil {
		return 0, err
	}

	var percentage int
	if err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ps.ensureOwner(ctx, tx, userID); err != nil {
			return err
		}
		parent, err := ps.progressRepo.GetOrCreate(ctx, tx, userID, roleID, tierID)
		if err != nil {
			return fmt.Errorf("get or create parent: %w", err)
		}

		row := &types.RoadmapItemProgress{
			RoadmapProgressID: parent.ID,
			ItemType:          itemType,
			ItemIndex:         itemIndex,
			Completed:         completed,
		}
		if notes != nil {
			row.Notes = *notes
		} else {
			existing, err := ps.itemRepo.GetByKey(ctx, tx, parent.ID, itemType, itemIndex)
			if err != nil {
				return err
			}
			if existing != nil {
				row.Notes = existing.Notes
			}
		}
		if _, err := ps.itemRepo.Upsert(ctx, tx, row); err != nil {
			return fmt.Errorf("upsert item: %w", err)
		}

		// On Postgres the rollup trigger has already rewritten the parent by
		// now; recomputing here keeps engines without the trigger honest and
		// gives the caller its percentage without a second round trip.
		completedCount, totalCount, err := ps.itemRepo.CountByParentID(ctx, tx, parent.ID)
		if err != nil {
			return fmt.Errorf("count items: %w", err)
		}
		percentage = progress.ComputeCompletionCounts(int(completedCount), int(totalCount))
		if err := ps.progressRepo.UpdateCompletion(ctx, tx, parent.ID, percentage); err != nil {
			return fmt.Errorf("update rollup: %w", err)
		}
		return nil
	}); err != nil {
		return 0, err
	}

	ps.notifier.ProgressUpdated(ctx, userID, roleID, tierID, percentage)
	return percentage, nil
}

func (ps *progressService) GetTierProgress(ctx context.Context, roleID, tierID string) (int, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return 0, err
	}
	parent, err := ps.progressRepo.GetByKey(ctx, nil, userID, roleID, tierID)
	if err != nil {
		return 0, fmt.Errorf("fetch parent: %w", err)
	}
	if parent == nil {
		return 0, nil
	}
	return parent.CompletionPercentage, nil
}

func (ps *progressService) GetItemProgress(ctx context.Context, roleID, tierID string, itemType types.RoadmapItemType, itemIndex int) (bool, error) {
	state, err := ps.GetItemState(ctx, roleID, tierID, itemType, itemIndex)
	if err != nil {
		return false, err
	}
	return state.Completed, nil
}

func (ps *progressService) GetItemState(ctx context.Context, roleID, tierID string, itemType types.RoadmapItemType, itemIndex int) (snapshot.ItemState, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return snapshot.ItemState{}, err
	}
	if err := validateItemKey(roleID, tierID, itemType, itemIndex); err != nil {
		return snapshot.ItemState{}, err
	}
	parent, err := ps.progressRepo.GetByKey(ctx, nil, userID, roleID, tierID)
	if err != nil {
		return snapshot.ItemState{}, fmt.Errorf("fetch parent: %w", err)
	}
	if parent == nil {
		return snapshot.ItemState{}, nil
	}
	item, err := ps.itemRepo.GetByKey(ctx, nil, parent.ID, itemType, itemIndex)
	if err != nil {
		return snapshot.ItemState{}, fmt.Errorf("fetch item: %w", err)
	}
	if item == nil {
		return snapshot.ItemState{}, nil
	}
	return snapshot.ItemState{Completed: item.Completed, Notes: item.Notes}, nil
}

func (ps *progressService) ListTierItems(ctx context.Context, roleID, tierID string) ([]*types.RoadmapItemProgress, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	parent, err := ps.progressRepo.GetByKey(ctx, nil, userID, roleID, tierID)
	if err != nil {
		return nil, fmt.Errorf("fetch parent: %w", err)
	}
	if parent == nil {
		return []*types.RoadmapItemProgress{}, nil
	}
	return ps.itemRepo.GetByParentID(ctx, nil, parent.ID)
}

func (ps *progressService) SetSubSkillNote(ctx context.Context, roleID, tierID, skillName, subSkillName string, completed bool, notes string) error {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(roleID) == "" || strings.TrimSpace(tierID) == "" {
		return apierr.InvalidArgument("roleId and tierId required")
	}
	skillName = strings.TrimSpace(skillName)
	subSkillName = strings.TrimSpace(subSkillName)
	if skillName == "" || subSkillName == "" {
		return apierr.InvalidArgument("skill and subSkill names required")
	}

	return ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ps.ensureOwner(ctx, tx, userID); err != nil {
			return err
		}
		parent, err := ps.progressRepo.GetOrCreate(ctx, tx, userID, roleID, tierID)
		if err != nil {
			return fmt.Errorf("get or create parent: %w", err)
		}
		// Sub-skill rows never touch the parent's completion_percentage.
		_, err = ps.subSkillRepo.Upsert(ctx, tx, &types.RoadmapSubSkillNote{
			RoadmapProgressID: parent.ID,
			SkillName:         skillName,
			SubSkillName:      subSkillName,
			Completed:         completed,
			Notes:             notes,
		})
		return err
	})
}

func (ps *progressService) GetSubSkillNote(ctx context.Context, roleID, tierID, skillName, subSkillName string) (snapshot.ItemState, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return snapshot.ItemState{}, err
	}
	parent, err := ps.progressRepo.GetByKey(ctx, nil, userID, roleID, tierID)
	if err != nil {
		return snapshot.ItemState{}, fmt.Errorf("fetch parent: %w", err)
	}
	if parent == nil {
		return snapshot.ItemState{}, nil
	}
	note, err := ps.subSkillRepo.GetByKey(ctx, nil, parent.ID, strings.TrimSpace(skillName), strings.TrimSpace(subSkillName))
	if err != nil {
		return snapshot.ItemState{}, fmt.Errorf("fetch sub-skill note: %w", err)
	}
	if note == nil {
		return snapshot.ItemState{}, nil
	}
	return snapshot.ItemState{Completed: note.Completed, Notes: note.Notes}, nil
}

func (ps *progressService) ExportSnapshot(ctx context.Context) (snapshot.Document, error) {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return nil, err
	}
	parents, err := ps.progressRepo.GetByUserID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch parents: %w", err)
	}

	doc := make(snapshot.Document)
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, parent := range parents {
		g.Go(func() error {
			items, err := ps.itemRepo.GetByParentID(gctx, nil, parent.ID)
			if err != nil {
				return fmt.Errorf("fetch items for %s/%s: %w", parent.RoleID, parent.YearID, err)
			}
			tier := buildTierSnapshot(parent.CompletionPercentage, items)

			mu.Lock()
			defer mu.Unlock()
			role, ok := doc[parent.RoleID]
			if !ok {
				role = snapshot.RoleSnapshot{TierProgress: make(map[string]snapshot.TierSnapshot)}
			}
			role.TierProgress[parent.YearID] = tier
			doc[parent.RoleID] = role
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Derives overallProgress per role; tier percentages are already
	// consistent by the rollup invariant.
	doc.Recompute()
	return doc, nil
}

func buildTierSnapshot(percentage int, items []*types.RoadmapItemProgress) snapshot.TierSnapshot {
	tier := snapshot.TierSnapshot{
		Percentage:    percentage,
		Skills:        []*snapshot.ItemState{},
		Projects:      []*snapshot.ItemState{},
		FreeResources: []*snapshot.ItemState{},
		PaidResources: []*snapshot.ItemState{},
	}
	for _, item := range items {
		states := tier.Items(item.ItemType)
		for len(states) <= item.ItemIndex {
			states = append(states, nil)
		}
		states[item.ItemIndex] = &snapshot.ItemState{Completed: item.Completed, Notes: item.Notes}
		tier.SetItems(item.ItemType, states)
	}
	return tier
}

// ImportSnapshot validates the document fully before touching any row, then
// replaces every tier the document names inside one transaction. Tiers not
// present in the document are left untouched, as are sub-skill notes.
func (ps *progressService) ImportSnapshot(ctx context.Context, raw []byte) error {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return err
	}
	doc, err := snapshot.Decode(raw)
	if err != nil {
		return err
	}

	importedAt := time.Now().UTC()
	if err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ps.ensureOwner(ctx, tx, userID); err != nil {
			return err
		}
		// Deterministic apply order.
		roleIDs := make([]string, 0, len(doc))
		for roleID := range doc {
			roleIDs = append(roleIDs, roleID)
		}
		sort.Strings(roleIDs)

		for _, roleID := range roleIDs {
			role := doc[roleID]
			tierIDs := make([]string, 0, len(role.TierProgress))
			for tierID := range role.TierProgress {
				tierIDs = append(tierIDs, tierID)
			}
			sort.Strings(tierIDs)

			for _, tierID := range tierIDs {
				tier := role.TierProgress[tierID]
				parent, err := ps.progressRepo.GetOrCreate(ctx, tx, userID, roleID, tierID)
				if err != nil {
					return fmt.Errorf("get or create parent %s/%s: %w", roleID, tierID, err)
				}
				if err := ps.itemRepo.FullDeleteByParentIDs(ctx, tx, []uuid.UUID{parent.ID}); err != nil {
					return fmt.Errorf("clear items %s/%s: %w", roleID, tierID, err)
				}

				var rows []*types.RoadmapItemProgress
				for _, itemType := range types.AllRoadmapItemTypes {
					for idx, state := range tier.Items(itemType) {
						if state == nil {
							continue
						}
						row := &types.RoadmapItemProgress{
							RoadmapProgressID: parent.ID,
							ItemType:          itemType,
							ItemIndex:         idx,
							Completed:         state.Completed,
							Notes:             state.Notes,
						}
						if state.Completed {
							row.CompletedAt = &importedAt
						}
						rows = append(rows, row)
					}
				}
				if err := ps.itemRepo.CreateBatch(ctx, tx, rows); err != nil {
					return fmt.Errorf("create items %s/%s: %w", roleID, tierID, err)
				}

				percentage := progress.ComputeCompletion(tier.Flags())
				if err := ps.progressRepo.UpdateCompletion(ctx, tx, parent.ID, percentage); err != nil {
					return fmt.Errorf("update rollup %s/%s: %w", roleID, tierID, err)
				}
			}
		}
		return nil
	}); err != nil {
		return err
	}

	ps.notifier.SnapshotImported(ctx, userID)
	return nil
}

func (ps *progressService) ResetTier(ctx context.Context, roleID, tierID string) error {
	userID, err := ownerFromContext(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(roleID) == "" || strings.TrimSpace(tierID) == "" {
		return apierr.InvalidArgument("roleId and tierId required")
	}

	if err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		parent, err := ps.progressRepo.GetByKey(ctx, tx, userID, roleID, tierID)
		if err != nil {
			return fmt.Errorf("fetch parent: %w", err)
		}
		if parent == nil {
			// Never-created tier already reads as 0.
			return nil
		}
		if err := ps.itemRepo.FullDeleteByParentIDs(ctx, tx, []uuid.UUID{parent.ID}); err != nil {
			return fmt.Errorf("clear items: %w", err)
		}
		return ps.progressRepo.UpdateCompletion(ctx, tx, parent.ID, 0)
	}); err != nil {
		return err
	}

	ps.notifier.TierReset(ctx, userID, roleID, tierID)
	return nil
}
