// Package snapshot defines the export/import document for one owner's
// progress tree. Both the database-backed facade and the local fallback store
// encode and validate snapshots through this package, so the wire shape
// cannot drift between them.
package snapshot

import (
	"encoding/json"

	"github.com/pathbyte/pathbyte-backend/internal/platform/apierr"
	"github.com/pathbyte/pathbyte-backend/internal/progress"
	"github.com/pathbyte/pathbyte-backend/internal/types"
)

type ItemState struct {
	Completed bool   `json:"completed"`
	Notes     string `json:"notes,omitempty"`
}

// TierSnapshot's item arrays are positional: element i is the item at
// itemIndex i. A null element is an untracked position; a non-null element
// with completed=false is a tracked-but-incomplete item. The distinction
// matters because tracked items count toward the rollup denominator.
type TierSnapshot struct {
	Percentage    int          `json:"percentage"`
	Skills        []*ItemState `json:"skills"`
	Projects      []*ItemState `json:"projects"`
	FreeResources []*ItemState `json:"freeResources"`
	PaidResources []*ItemState `json:"paidResources"`
}

type RoleSnapshot struct {
	OverallProgress int                     `json:"overallProgress"`
	TierProgress    map[string]TierSnapshot `json:"tierProgress"`
}

// Document is keyed by roleId.
type Document map[string]RoleSnapshot

func (t TierSnapshot) Items(itemType types.RoadmapItemType) []*ItemState {
	switch itemType {
	case types.ItemTypeSkills:
		return t.Skills
	case types.ItemTypeProjects:
		return t.Projects
	case types.ItemTypeFreeResources:
		return t.FreeResources
	case types.ItemTypePaidResources:
		return t.PaidResources
	}
	return nil
}

func (t *TierSnapshot) SetItems(itemType types.RoadmapItemType, items []*ItemState) {
	switch itemType {
	case types.ItemTypeSkills:
		t.Skills = items
	case types.ItemTypeProjects:
		t.Projects = items
	case types.ItemTypeFreeResources:
		t.FreeResources = items
	case types.ItemTypePaidResources:
		t.PaidResources = items
	}
}

// Flags pools the completed flags of every tracked item across all four
// categories. Untracked (null) positions do not contribute to the pool.
func (t TierSnapshot) Flags() []bool {
	var flags []bool
	for _, itemType := range types.AllRoadmapItemTypes {
		for _, item := range t.Items(itemType) {
			if item == nil {
				continue
			}
			flags = append(flags, item.Completed)
		}
	}
	return flags
}

// Recompute rewrites every derived percentage in the document from the item
// flags, so an imported document's stored percentages never become
// authoritative.
func (d Document) Recompute() {
	for roleID, role := range d {
		var roleFlags []bool
		for tierID, tier := range role.TierProgress {
			flags := tier.Flags()
			tier.Percentage = progress.ComputeCompletion(flags)
			role.TierProgress[tierID] = tier
			roleFlags = append(roleFlags, flags...)
		}
		role.OverallProgress = progress.ComputeCompletion(roleFlags)
		d[roleID] = role
	}
}

func Encode(d Document) ([]byte, error) {
	return json.Marshal(d)
}

// Decode parses and shape-validates a snapshot document. Any missing
// required key, wrong type, or out-of-range percentage yields a
// MALFORMED_DOCUMENT error; nothing may have been applied by then.
func Decode(raw []byte) (Document, error) {
	if len(raw) == 0 {
		return nil, apierr.MalformedDocument("empty snapshot document")
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, apierr.MalformedDocument("snapshot is not a JSON object: %v", err)
	}

	doc := make(Document, len(top))
	for roleID, rawRole := range top {
		if roleID == "" {
			return nil, apierr.MalformedDocument("empty roleId key")
		}
		var roleKeys map[string]json.RawMessage
		if err := json.Unmarshal(rawRole, &roleKeys); err != nil {
			return nil, apierr.MalformedDocument("role %q is not an object: %v", roleID, err)
		}
		if _, ok := roleKeys["overallProgress"]; !ok {
			return nil, apierr.MalformedDocument("role %q missing overallProgress", roleID)
		}
		if _, ok := roleKeys["tierProgress"]; !ok {
			return nil, apierr.MalformedDocument("role %q missing tierProgress", roleID)
		}

		var role RoleSnapshot
		if err := json.Unmarshal(rawRole, &role); err != nil {
			return nil, apierr.MalformedDocument("role %q has wrong field types: %v", roleID, err)
		}
		if role.OverallProgress < 0 || role.OverallProgress > 100 {
			return nil, apierr.MalformedDocument("role %q overallProgress %d outside [0,100]", roleID, role.OverallProgress)
		}
		if role.TierProgress == nil {
			return nil, apierr.MalformedDocument("role %q tierProgress is null", roleID)
		}

		var rawTiers map[string]json.RawMessage
		_ = json.Unmarshal(roleKeys["tierProgress"], &rawTiers)
		for tierID, rawTier := range rawTiers {
			var tierKeys map[string]json.RawMessage
			if err := json.Unmarshal(rawTier, &tierKeys); err != nil {
				return nil, apierr.MalformedDocument("role %q tier %q is not an object: %v", roleID, tierID, err)
			}
			for _, required := range []string{"percentage", "skills", "projects", "freeResources", "paidResources"} {
				if _, ok := tierKeys[required]; !ok {
					return nil, apierr.MalformedDocument("role %q tier %q missing %s", roleID, tierID, required)
				}
			}
			tier := role.TierProgress[tierID]
			if tier.Percentage < 0 || tier.Percentage > 100 {
				return nil, apierr.MalformedDocument("role %q tier %q percentage %d outside [0,100]", roleID, tierID, tier.Percentage)
			}
		}
		doc[roleID] = role
	}
	return doc, nil
}
