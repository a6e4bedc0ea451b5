package repos

import (
	"context"
	"testing"

	"github.com/pathbyte/pathbyte-backend/internal/repos/testutil"
	"github.com/pathbyte/pathbyte-backend/internal/types"
)

func TestRoadmapProgressRepoGetOrCreate(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	ctx := context.Background()

	userRepo := NewUserRepo(db, testutil.Logger(t))
	repo := NewRoadmapProgressRepo(db, testutil.Logger(t))

	users, err := userRepo.Create(ctx, tx, []*types.User{{
		Email:     "progressrepo@example.com",
		Password:  "pw",
		FirstName: "A",
		LastName:  "B",
	}})
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}
	userID := users[0].ID

	first, err := repo.GetOrCreate(ctx, tx, userID, "frontend", "0-1")
	if err != nil {
		t.Fatalf("GetOrCreate: %v", err)
	}
	if first.CompletionPercentage != 0 {
		t.Fatalf("new parent percentage = %d, want 0", first.CompletionPercentage)
	}

	second, err := repo.GetOrCreate(ctx, tx, userID, "frontend", "0-1")
	if err != nil {
		t.Fatalf("GetOrCreate (again): %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("GetOrCreate created a duplicate row for the same (user, role, tier)")
	}

	other, err := repo.GetOrCreate(ctx, tx, userID, "frontend", "1-3")
	if err != nil {
		t.Fatalf("GetOrCreate (other tier): %v", err)
	}
	if other.ID == first.ID {
		t.Fatalf("distinct tiers must not share a parent row")
	}

	if err := repo.UpdateCompletion(ctx, tx, first.ID, 66); err != nil {
		t.Fatalf("UpdateCompletion: %v", err)
	}
	got, err := repo.GetByKey(ctx, tx, userID, "frontend", "0-1")
	if err != nil {
		t.Fatalf("GetByKey: %v", err)
	}
	if got == nil || got.CompletionPercentage != 66 {
		t.Fatalf("GetByKey after UpdateCompletion: %+v", got)
	}

	all, err := repo.GetByUserID(ctx, tx, userID)
	if err != nil {
		t.Fatalf("GetByUserID: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("GetByUserID: expected 2 parents, got %d", len(all))
	}

	missing, err := repo.GetByKey(ctx, tx, userID, "frontend", "5+")
	if err != nil {
		t.Fatalf("GetByKey (missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("GetByKey (missing): expected nil, got %+v", missing)
	}
}
