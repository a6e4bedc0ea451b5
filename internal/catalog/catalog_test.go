package catalog

import (
	"testing"

	"github.com/pathbyte/pathbyte-backend/internal/types"
)

func TestLoad_ParsesEmbeddedCatalog(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(c.Roles()) < 2 {
		t.Fatalf("expected at least 2 roles, got %d", len(c.Roles()))
	}
	role, ok := c.Role("frontend")
	if !ok {
		t.Fatalf("missing frontend role")
	}
	if len(role.Tiers) != 4 {
		t.Fatalf("frontend should have 4 tiers, got %d", len(role.Tiers))
	}
}

func TestTierLookup(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tier, ok := c.Tier("backend", "0-1")
	if !ok {
		t.Fatalf("missing backend 0-1 tier")
	}
	if len(tier.Skills) == 0 || len(tier.Projects) == 0 {
		t.Fatalf("tier content should not be empty: %+v", tier)
	}
	if _, ok := c.Tier("backend", "99"); ok {
		t.Fatalf("unknown tier should not resolve")
	}
	if _, ok := c.Tier("cobol", "0-1"); ok {
		t.Fatalf("unknown role should not resolve")
	}
}

func TestItemCount(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tier, _ := c.Tier("frontend", "0-1")
	if got := c.ItemCount("frontend", "0-1", types.ItemTypeSkills); got != len(tier.Skills) {
		t.Fatalf("skills count: got %d want %d", got, len(tier.Skills))
	}
	if got := c.ItemCount("frontend", "0-1", types.RoadmapItemType("bogus")); got != 0 {
		t.Fatalf("unknown item type should count 0, got %d", got)
	}
	if got := c.ItemCount("nope", "0-1", types.ItemTypeSkills); got != 0 {
		t.Fatalf("unknown role should count 0, got %d", got)
	}
}
