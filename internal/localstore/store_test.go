package localstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/pathbyte/pathbyte-backend/internal/logger"
	"github.com/pathbyte/pathbyte-backend/internal/requestdata"
	"github.com/pathbyte/pathbyte-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func testContext(userID uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: userID})
}

func TestStatePersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	userID := uuid.New()
	ctx := testContext(userID)

	store, err := New(testLogger(t), path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := store.ToggleItem(ctx, "frontend", "0-1", types.ItemTypeSkills, 0, true, nil); err != nil {
		t.Fatalf("ToggleItem: %v", err)
	}
	if err := store.SetSubSkillNote(ctx, "frontend", "0-1", "CSS", "Flexbox", true, "done"); err != nil {
		t.Fatalf("SetSubSkillNote: %v", err)
	}

	// A fresh store on the same path sees the same state.
	reopened, err := New(testLogger(t), path)
	if err != nil {
		t.Fatalf("New (reopen): %v", err)
	}
	pct, err := reopened.GetTierProgress(ctx, "frontend", "0-1")
	if err != nil {
		t.Fatalf("GetTierProgress: %v", err)
	}
	if pct != 100 {
		t.Fatalf("persisted percentage = %d, want 100", pct)
	}
	note, err := reopened.GetSubSkillNote(ctx, "frontend", "0-1", "CSS", "Flexbox")
	if err != nil {
		t.Fatalf("GetSubSkillNote: %v", err)
	}
	if !note.Completed || note.Notes != "done" {
		t.Fatalf("persisted sub-skill note = %+v", note)
	}
}

func TestOwnersAreIsolated(t *testing.T) {
	store, err := New(testLogger(t), "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	alice := testContext(uuid.New())
	bob := testContext(uuid.New())

	if _, err := store.ToggleItem(alice, "frontend", "0-1", types.ItemTypeSkills, 0, true, nil); err != nil {
		t.Fatalf("ToggleItem: %v", err)
	}
	pct, err := store.GetTierProgress(bob, "frontend", "0-1")
	if err != nil {
		t.Fatalf("GetTierProgress: %v", err)
	}
	if pct != 0 {
		t.Fatalf("one owner's toggle leaked into another's tree: %d", pct)
	}
}

func TestMissingFileIsEmptyStore(t *testing.T) {
	store, err := New(testLogger(t), filepath.Join(t.TempDir(), "does-not-exist.json"))
	if err != nil {
		t.Fatalf("New on missing file: %v", err)
	}
	pct, err := store.GetTierProgress(testContext(uuid.New()), "frontend", "0-1")
	if err != nil {
		t.Fatalf("GetTierProgress: %v", err)
	}
	if pct != 0 {
		t.Fatalf("empty store reads %d, want 0", pct)
	}
}
