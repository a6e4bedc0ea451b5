package snapshot

import (
	"testing"

	"github.com/pathbyte/pathbyte-backend/internal/platform/apierr"
)

func item(completed bool, notes string) *ItemState {
	return &ItemState{Completed: completed, Notes: notes}
}

func validDoc() []byte {
	return []byte(`{
		"frontend": {
			"overallProgress": 50,
			"tierProgress": {
				"0-1": {
					"percentage": 50,
					"skills": [{"completed": true}, null, {"completed": false, "notes": "halfway"}],
					"projects": [],
					"freeResources": [],
					"paidResources": []
				}
			}
		}
	}`)
}

func TestDecode_ValidDocument(t *testing.T) {
	doc, err := Decode(validDoc())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	role, ok := doc["frontend"]
	if !ok {
		t.Fatalf("missing frontend role")
	}
	tier, ok := role.TierProgress["0-1"]
	if !ok {
		t.Fatalf("missing 0-1 tier")
	}
	if len(tier.Skills) != 3 {
		t.Fatalf("expected 3 skill positions, got %d", len(tier.Skills))
	}
	if tier.Skills[0] == nil || !tier.Skills[0].Completed {
		t.Fatalf("skill 0 should be tracked and completed")
	}
	if tier.Skills[1] != nil {
		t.Fatalf("skill 1 should be an untracked null position")
	}
	if tier.Skills[2] == nil || tier.Skills[2].Notes != "halfway" {
		t.Fatalf("skill 2 should carry its notes, got %+v", tier.Skills[2])
	}
}

func TestDecode_RejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"not an object", `[1,2,3]`},
		{"role not object", `{"frontend": 3}`},
		{"missing overallProgress", `{"frontend": {"tierProgress": {}}}`},
		{"missing tierProgress", `{"frontend": {"overallProgress": 10}}`},
		{"null tierProgress", `{"frontend": {"overallProgress": 10, "tierProgress": null}}`},
		{"overall out of range", `{"frontend": {"overallProgress": 140, "tierProgress": {}}}`},
		{"overall wrong type", `{"frontend": {"overallProgress": "ten", "tierProgress": {}}}`},
		{"tier missing skills", `{"frontend": {"overallProgress": 0, "tierProgress": {"0-1": {"percentage": 0, "projects": [], "freeResources": [], "paidResources": []}}}}`},
		{"tier percentage out of range", `{"frontend": {"overallProgress": 0, "tierProgress": {"0-1": {"percentage": 101, "skills": [], "projects": [], "freeResources": [], "paidResources": []}}}}`},
	}
	for _, tt := range tests {
		_, err := Decode([]byte(tt.raw))
		if err == nil {
			t.Fatalf("%s: expected error", tt.name)
		}
		if !apierr.IsCode(err, apierr.CodeMalformedDocument) {
			t.Fatalf("%s: expected MALFORMED_DOCUMENT, got %v", tt.name, err)
		}
	}
}

func TestRecompute_OverridesStoredPercentages(t *testing.T) {
	doc := Document{
		"frontend": {
			OverallProgress: 99,
			TierProgress: map[string]TierSnapshot{
				"0-1": {
					Percentage: 99,
					Skills:     []*ItemState{item(true, ""), item(true, ""), item(true, ""), item(false, "")},
					Projects:   []*ItemState{item(false, ""), item(false, "")},
				},
			},
		},
	}
	doc.Recompute()
	if got := doc["frontend"].TierProgress["0-1"].Percentage; got != 50 {
		t.Fatalf("tier percentage: got %d want 50", got)
	}
	if got := doc["frontend"].OverallProgress; got != 50 {
		t.Fatalf("overallProgress: got %d want 50", got)
	}
}

func TestRecompute_UntrackedPositionsExcluded(t *testing.T) {
	doc := Document{
		"backend": {
			TierProgress: map[string]TierSnapshot{
				"1-3": {
					// 3 positions but only 2 tracked: 1/2 -> 50, not 1/3.
					Skills: []*ItemState{item(true, ""), nil, item(false, "")},
				},
			},
		},
	}
	doc.Recompute()
	if got := doc["backend"].TierProgress["1-3"].Percentage; got != 50 {
		t.Fatalf("expected untracked gap to be excluded, got %d", got)
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	doc := Document{
		"backend": {
			OverallProgress: 25,
			TierProgress: map[string]TierSnapshot{
				"1-3": {
					Percentage:    25,
					Skills:        []*ItemState{item(true, "done"), nil},
					Projects:      []*ItemState{item(false, ""), item(false, ""), item(false, "")},
					FreeResources: []*ItemState{},
					PaidResources: []*ItemState{},
				},
			},
		},
	}
	raw, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	tier := got["backend"].TierProgress["1-3"]
	if tier.Percentage != 25 || len(tier.Skills) != 2 || len(tier.Projects) != 3 {
		t.Fatalf("round trip mismatch: %+v", tier)
	}
	if tier.Skills[0] == nil || tier.Skills[0].Notes != "done" || tier.Skills[1] != nil {
		t.Fatalf("skills did not survive round trip: %+v", tier.Skills)
	}
}

func TestTierSnapshot_FlagsPoolsAllCategories(t *testing.T) {
	tier := TierSnapshot{
		Skills:        []*ItemState{item(true, ""), item(false, "")},
		Projects:      []*ItemState{item(true, "")},
		FreeResources: []*ItemState{item(false, ""), nil},
		PaidResources: []*ItemState{item(true, "")},
	}
	flags := tier.Flags()
	if len(flags) != 5 {
		t.Fatalf("expected 5 pooled flags (nulls excluded), got %d", len(flags))
	}
	completed := 0
	for _, f := range flags {
		if f {
			completed++
		}
	}
	if completed != 3 {
		t.Fatalf("expected 3 completed, got %d", completed)
	}
}
