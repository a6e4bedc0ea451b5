package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pathbyte/pathbyte-backend/internal/repos/testutil"
	"github.com/pathbyte/pathbyte-backend/internal/types"
)

func seedParent(t *testing.T, tx *gorm.DB) *types.RoadmapProgress {
	t.Helper()
	ctx := context.Background()
	db := testutil.DB(t)

	users, err := NewUserRepo(db, testutil.Logger(t)).Create(ctx, tx, []*types.User{{
		Email:     "itemrepo-" + t.Name() + "@example.com",
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
	}})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	parent, err := NewRoadmapProgressRepo(db, testutil.Logger(t)).GetOrCreate(ctx, tx, users[0].ID, "backend", "0-1")
	if err != nil {
		t.Fatalf("GetOrCreate parent: %v", err)
	}
	return parent
}

func TestRoadmapItemProgressRepoUpsert(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := NewRoadmapItemProgressRepo(db, testutil.Logger(t))
	parent := seedParent(t, tx)

	created, err := repo.Upsert(ctx, tx, &types.RoadmapItemProgress{
		RoadmapProgressID: parent.ID,
		ItemType:          types.ItemTypeSkills,
		ItemIndex:         0,
		Completed:         true,
		Notes:             "first pass",
	})
	if err != nil {
		t.Fatalf("Upsert (create): %v", err)
	}
	if !created.Completed || created.CompletedAt == nil {
		t.Fatalf("completed item must carry completed_at: %+v", created)
	}

	// Same key again: must update in place, not create a second row.
	updated, err := repo.Upsert(ctx, tx, &types.RoadmapItemProgress{
		RoadmapProgressID: parent.ID,
		ItemType:          types.ItemTypeSkills,
		ItemIndex:         0,
		Completed:         false,
		Notes:             "second pass",
	})
	if err != nil {
		t.Fatalf("Upsert (update): %v", err)
	}
	if updated.ID != created.ID {
		t.Fatalf("upsert created a duplicate row for the same key")
	}
	if updated.Completed {
		t.Fatalf("completed flag did not persist false")
	}
	if updated.CompletedAt != nil {
		t.Fatalf("completed_at must clear on the true->false transition")
	}
	if updated.Notes != "second pass" {
		t.Fatalf("notes = %q, want %q", updated.Notes, "second pass")
	}

	all, err := repo.GetByParentID(ctx, tx, parent.ID)
	if err != nil {
		t.Fatalf("GetByParentID: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 row after repeated upserts, got %d", len(all))
	}
}

func TestRoadmapItemProgressRepoCounts(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	repo := NewRoadmapItemProgressRepo(db, testutil.Logger(t))
	parent := seedParent(t, tx)

	for i, completed := range []bool{true, true, false} {
		if _, err := repo.Upsert(ctx, tx, &types.RoadmapItemProgress{
			RoadmapProgressID: parent.ID,
			ItemType:          types.ItemTypeProjects,
			ItemIndex:         i,
			Completed:         completed,
		}); err != nil {
			t.Fatalf("Upsert %d: %v", i, err)
		}
	}

	completed, total, err := repo.CountByParentID(ctx, tx, parent.ID)
	if err != nil {
		t.Fatalf("CountByParentID: %v", err)
	}
	if completed != 2 || total != 3 {
		t.Fatalf("counts = (%d, %d), want (2, 3)", completed, total)
	}

	if err := repo.FullDeleteByParentIDs(ctx, tx, []uuid.UUID{parent.ID}); err != nil {
		t.Fatalf("FullDeleteByParentIDs: %v", err)
	}
	completed, total, err = repo.CountByParentID(ctx, tx, parent.ID)
	if err != nil {
		t.Fatalf("CountByParentID (after delete): %v", err)
	}
	if completed != 0 || total != 0 {
		t.Fatalf("counts after delete = (%d, %d), want (0, 0)", completed, total)
	}
}
