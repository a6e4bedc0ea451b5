package services_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/google/uuid"

	"github.com/pathbyte/pathbyte-backend/internal/localstore"
	"github.com/pathbyte/pathbyte-backend/internal/platform/apierr"
	"github.com/pathbyte/pathbyte-backend/internal/repos"
	"github.com/pathbyte/pathbyte-backend/internal/repos/testutil"
	"github.com/pathbyte/pathbyte-backend/internal/requestdata"
	"github.com/pathbyte/pathbyte-backend/internal/services"
	"github.com/pathbyte/pathbyte-backend/internal/snapshot"
	"github.com/pathbyte/pathbyte-backend/internal/types"
)

// The database facade and the local store must be interchangeable: every
// test below runs against both and asserts identical observable behavior.
func eachImpl(t *testing.T, run func(t *testing.T, svc services.ProgressService, ctx context.Context)) {
	t.Helper()

	t.Run("db", func(t *testing.T) {
		db := testutil.DB(t)
		log := testutil.Logger(t)
		userRepo := repos.NewUserRepo(db, log)

		users, err := userRepo.Create(context.Background(), nil, []*types.User{{
			Email:     "progress-" + uuid.NewString() + "@example.com",
			Password:  "pw",
			FirstName: "A",
			LastName:  "B",
		}})
		if err != nil {
			t.Fatalf("seed user: %v", err)
		}

		svc := services.NewProgressService(
			db,
			log,
			userRepo,
			repos.NewRoadmapProgressRepo(db, log),
			repos.NewRoadmapItemProgressRepo(db, log),
			repos.NewRoadmapSubSkillNoteRepo(db, log),
			services.NopProgressNotifier{},
		)
		run(t, svc, authedContext(users[0].ID))
	})

	t.Run("local", func(t *testing.T) {
		store, err := localstore.New(testutil.Logger(t), "")
		if err != nil {
			t.Fatalf("init local store: %v", err)
		}
		run(t, store, authedContext(uuid.New()))
	})
}

func authedContext(userID uuid.UUID) context.Context {
	return requestdata.WithRequestData(context.Background(), &requestdata.RequestData{UserID: userID})
}

func mustToggle(t *testing.T, svc services.ProgressService, ctx context.Context, roleID, tierID string, itemType types.RoadmapItemType, idx int, completed bool) int {
	t.Helper()
	pct, err := svc.ToggleItem(ctx, roleID, tierID, itemType, idx, completed, nil)
	if err != nil {
		t.Fatalf("ToggleItem(%s, %d, %v): %v", itemType, idx, completed, err)
	}
	return pct
}

func TestToggleReadAfterWrite(t *testing.T) {
	eachImpl(t, func(t *testing.T, svc services.ProgressService, ctx context.Context) {
		returned := mustToggle(t, svc, ctx, "frontend", "0-1", types.ItemTypeSkills, 0, true)
		if returned != 100 {
			t.Fatalf("single completed item: returned %d, want 100", returned)
		}
		read, err := svc.GetTierProgress(ctx, "frontend", "0-1")
		if err != nil {
			t.Fatalf("GetTierProgress: %v", err)
		}
		if read != returned {
			t.Fatalf("read %d right after toggle returned %d", read, returned)
		}
	})
}

func TestToggleIdempotence(t *testing.T) {
	eachImpl(t, func(t *testing.T, svc services.ProgressService, ctx context.Context) {
		mustToggle(t, svc, ctx, "frontend", "0-1", types.ItemTypeSkills, 0, true)
		mustToggle(t, svc, ctx, "frontend", "0-1", types.ItemTypeSkills, 1, false)

		first := mustToggle(t, svc, ctx, "frontend", "0-1", types.ItemTypeSkills, 0, true)
		second := mustToggle(t, svc, ctx, "frontend", "0-1", types.ItemTypeSkills, 0, true)
		if first != second {
			t.Fatalf("repeated toggle changed the rollup: %d then %d", first, second)
		}

		items, err := svc.ListTierItems(ctx, "frontend", "0-1")
		if err != nil {
			t.Fatalf("ListTierItems: %v", err)
		}
		if len(items) != 2 {
			t.Fatalf("repeated toggle duplicated an item row: %d rows", len(items))
		}
	})
}

// The reference scenario: six tracked items split over two categories. The
// rollup pools them with no per-category weighting, truncating fractions.
func TestRollupScenario(t *testing.T) {
	eachImpl(t, func(t *testing.T, svc services.ProgressService, ctx context.Context) {
		for i := 0; i < 4; i++ {
			mustToggle(t, svc, ctx, "backend", "1-3", types.ItemTypeSkills, i, false)
		}
		for i := 0; i < 2; i++ {
			mustToggle(t, svc, ctx, "backend", "1-3", types.ItemTypeProjects, i, false)
		}

		mustToggle(t, svc, ctx, "backend", "1-3", types.ItemTypeSkills, 0, true)
		mustToggle(t, svc, ctx, "backend", "1-3", types.ItemTypeSkills, 1, true)
		pct := mustToggle(t, svc, ctx, "backend", "1-3", types.ItemTypeSkills, 2, true)
		if pct != 50 {
			t.Fatalf("3 of 6 completed: %d, want 50", pct)
		}

		pct = mustToggle(t, svc, ctx, "backend", "1-3", types.ItemTypeProjects, 0, true)
		if pct != 66 {
			t.Fatalf("4 of 6 completed: %d, want 66 (truncated)", pct)
		}

		pct = mustToggle(t, svc, ctx, "backend", "1-3", types.ItemTypeSkills, 1, false)
		if pct != 50 {
			t.Fatalf("back to 3 of 6: %d, want 50", pct)
		}
	})
}

func TestNewTierReadsZero(t *testing.T) {
	eachImpl(t, func(t *testing.T, svc services.ProgressService, ctx context.Context) {
		pct, err := svc.GetTierProgress(ctx, "devops", "5+")
		if err != nil {
			t.Fatalf("GetTierProgress on untouched tier: %v", err)
		}
		if pct != 0 {
			t.Fatalf("untouched tier reads %d, want 0", pct)
		}

		state, err := svc.GetItemState(ctx, "devops", "5+", types.ItemTypeProjects, 3)
		if err != nil {
			t.Fatalf("GetItemState on untouched tier: %v", err)
		}
		if state.Completed || state.Notes != "" {
			t.Fatalf("untracked item state = %+v, want zero value", state)
		}
	})
}

func TestExportImportRoundTrip(t *testing.T) {
	eachImpl(t, func(t *testing.T, svc services.ProgressService, ctx context.Context) {
		mustToggle(t, svc, ctx, "frontend", "0-1", types.ItemTypeSkills, 0, true)
		mustToggle(t, svc, ctx, "frontend", "0-1", types.ItemTypeSkills, 2, false)
		mustToggle(t, svc, ctx, "frontend", "1-3", types.ItemTypeFreeResources, 1, true)
		mustToggle(t, svc, ctx, "devops", "0-1", types.ItemTypePaidResources, 0, true)

		before, err := svc.ExportSnapshot(ctx)
		if err != nil {
			t.Fatalf("ExportSnapshot: %v", err)
		}
		raw, err := snapshot.Encode(before)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if err := svc.ImportSnapshot(ctx, raw); err != nil {
			t.Fatalf("ImportSnapshot: %v", err)
		}
		after, err := svc.ExportSnapshot(ctx)
		if err != nil {
			t.Fatalf("ExportSnapshot (after import): %v", err)
		}
		if !reflect.DeepEqual(before, after) {
			t.Fatalf("import of own export changed state:\nbefore: %+v\nafter:  %+v", before, after)
		}
	})
}

func TestMalformedImportLeavesStateUntouched(t *testing.T) {
	eachImpl(t, func(t *testing.T, svc services.ProgressService, ctx context.Context) {
		mustToggle(t, svc, ctx, "frontend", "0-1", types.ItemTypeSkills, 0, true)

		cases := [][]byte{
			nil,
			[]byte(`not json`),
			[]byte(`{"frontend": {"tierProgress": {}}}`),
			[]byte(`{"frontend": {"overallProgress": 150, "tierProgress": {}}}`),
			[]byte(`{"frontend": {"overallProgress": 10, "tierProgress": {"0-1": {"percentage": 10}}}}`),
		}
		for _, raw := range cases {
			err := svc.ImportSnapshot(ctx, raw)
			if !apierr.IsCode(err, apierr.CodeMalformedDocument) {
				t.Fatalf("import %q: error = %v, want MALFORMED_DOCUMENT", raw, err)
			}
		}

		pct, err := svc.GetTierProgress(ctx, "frontend", "0-1")
		if err != nil {
			t.Fatalf("GetTierProgress: %v", err)
		}
		if pct != 100 {
			t.Fatalf("rejected imports must not touch state: pct = %d, want 100", pct)
		}
	})
}

func TestImportReplacesNamedTiersOnly(t *testing.T) {
	eachImpl(t, func(t *testing.T, svc services.ProgressService, ctx context.Context) {
		mustToggle(t, svc, ctx, "frontend", "0-1", types.ItemTypeSkills, 0, true)
		mustToggle(t, svc, ctx, "frontend", "1-3", types.ItemTypeSkills, 0, true)

		// The document names only tier 0-1; 1-3 must survive the import.
		raw := []byte(`{"frontend": {"overallProgress": 0, "tierProgress": {"0-1": {
			"percentage": 0,
			"skills": [{"completed": false}, {"completed": true}],
			"projects": [],
			"freeResources": [],
			"paidResources": []
		}}}}`)
		if err := svc.ImportSnapshot(ctx, raw); err != nil {
			t.Fatalf("ImportSnapshot: %v", err)
		}

		pct, err := svc.GetTierProgress(ctx, "frontend", "0-1")
		if err != nil {
			t.Fatalf("GetTierProgress (replaced): %v", err)
		}
		if pct != 50 {
			t.Fatalf("imported tier reads %d, want 50 recomputed from items", pct)
		}

		untouched, err := svc.GetTierProgress(ctx, "frontend", "1-3")
		if err != nil {
			t.Fatalf("GetTierProgress (untouched): %v", err)
		}
		if untouched != 100 {
			t.Fatalf("tier absent from the document was modified: %d, want 100", untouched)
		}
	})
}

func TestResetTier(t *testing.T) {
	eachImpl(t, func(t *testing.T, svc services.ProgressService, ctx context.Context) {
		mustToggle(t, svc, ctx, "backend", "3-5", types.ItemTypeSkills, 0, true)
		mustToggle(t, svc, ctx, "backend", "3-5", types.ItemTypeSkills, 1, true)

		if err := svc.ResetTier(ctx, "backend", "3-5"); err != nil {
			t.Fatalf("ResetTier: %v", err)
		}
		pct, err := svc.GetTierProgress(ctx, "backend", "3-5")
		if err != nil {
			t.Fatalf("GetTierProgress: %v", err)
		}
		if pct != 0 {
			t.Fatalf("reset tier reads %d, want 0", pct)
		}
		items, err := svc.ListTierItems(ctx, "backend", "3-5")
		if err != nil {
			t.Fatalf("ListTierItems: %v", err)
		}
		if len(items) != 0 {
			t.Fatalf("reset tier still has %d items", len(items))
		}

		// Resetting a tier that never existed is not an error.
		if err := svc.ResetTier(ctx, "backend", "5+"); err != nil {
			t.Fatalf("ResetTier on untouched tier: %v", err)
		}
	})
}

func TestSubSkillNotesStayOutOfRollup(t *testing.T) {
	eachImpl(t, func(t *testing.T, svc services.ProgressService, ctx context.Context) {
		mustToggle(t, svc, ctx, "frontend", "0-1", types.ItemTypeSkills, 0, true)
		mustToggle(t, svc, ctx, "frontend", "0-1", types.ItemTypeSkills, 1, false)

		if err := svc.SetSubSkillNote(ctx, "frontend", "0-1", "JavaScript", "Closures", false, "revisit"); err != nil {
			t.Fatalf("SetSubSkillNote: %v", err)
		}
		note, err := svc.GetSubSkillNote(ctx, "frontend", "0-1", "JavaScript", "Closures")
		if err != nil {
			t.Fatalf("GetSubSkillNote: %v", err)
		}
		if note.Completed || note.Notes != "revisit" {
			t.Fatalf("sub-skill note = %+v", note)
		}

		pct, err := svc.GetTierProgress(ctx, "frontend", "0-1")
		if err != nil {
			t.Fatalf("GetTierProgress: %v", err)
		}
		if pct != 50 {
			t.Fatalf("sub-skill note leaked into the rollup: %d, want 50", pct)
		}
	})
}

func TestValidationAndAuth(t *testing.T) {
	eachImpl(t, func(t *testing.T, svc services.ProgressService, ctx context.Context) {
		if _, err := svc.ToggleItem(ctx, "frontend", "0-1", "badges", 0, true, nil); !apierr.IsCode(err, apierr.CodeInvalidArgument) {
			t.Fatalf("unknown item type: error = %v, want INVALID_ARGUMENT", err)
		}
		if _, err := svc.ToggleItem(ctx, "frontend", "0-1", types.ItemTypeSkills, -1, true, nil); !apierr.IsCode(err, apierr.CodeInvalidArgument) {
			t.Fatalf("negative index: error = %v, want INVALID_ARGUMENT", err)
		}
		if _, err := svc.ToggleItem(ctx, "", "0-1", types.ItemTypeSkills, 0, true, nil); !apierr.IsCode(err, apierr.CodeInvalidArgument) {
			t.Fatalf("empty roleId: error = %v, want INVALID_ARGUMENT", err)
		}
		if _, err := svc.ToggleItem(context.Background(), "frontend", "0-1", types.ItemTypeSkills, 0, true, nil); !apierr.IsCode(err, apierr.CodeUnauthorized) {
			t.Fatalf("missing identity: error = %v, want UNAUTHORIZED", err)
		}
	})
}

func TestToggleKeepsNotesWhenNil(t *testing.T) {
	eachImpl(t, func(t *testing.T, svc services.ProgressService, ctx context.Context) {
		notes := "remember the grid section"
		if _, err := svc.ToggleItem(ctx, "frontend", "0-1", types.ItemTypeSkills, 0, true, &notes); err != nil {
			t.Fatalf("ToggleItem with notes: %v", err)
		}
		// nil notes on a later toggle must not erase what is there.
		mustToggle(t, svc, ctx, "frontend", "0-1", types.ItemTypeSkills, 0, false)

		state, err := svc.GetItemState(ctx, "frontend", "0-1", types.ItemTypeSkills, 0)
		if err != nil {
			t.Fatalf("GetItemState: %v", err)
		}
		if state.Completed {
			t.Fatalf("completed flag did not flip back")
		}
		if state.Notes != notes {
			t.Fatalf("notes = %q, want %q preserved", state.Notes, notes)
		}
	})
}
