// Package catalog serves the versioned roadmap content: the ordered skill,
// project and resource lists per (role, tier). Item indexes stored by the
// progress subsystem are positions into these lists; the progress subsystem
// itself does not validate indexes against the catalog and trusts its caller.
package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/pathbyte/pathbyte-backend/internal/types"
)

//go:embed roadmaps.yaml
var roadmapsYAML []byte

type Tier struct {
	ID            string   `yaml:"id" json:"id"`
	Label         string   `yaml:"label" json:"label"`
	Skills        []string `yaml:"skills" json:"skills"`
	Projects      []string `yaml:"projects" json:"projects"`
	FreeResources []string `yaml:"freeResources" json:"freeResources"`
	PaidResources []string `yaml:"paidResources" json:"paidResources"`
}

type Role struct {
	ID    string `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Tiers []Tier `yaml:"tiers" json:"tiers"`
}

type Catalog struct {
	roles  []Role
	byRole map[string]*Role
}

func Load() (*Catalog, error) {
	var data struct {
		Roles []Role `yaml:"roles"`
	}
	if err := yaml.Unmarshal(roadmapsYAML, &data); err != nil {
		return nil, fmt.Errorf("parse roadmap catalog: %w", err)
	}
	if len(data.Roles) == 0 {
		return nil, fmt.Errorf("roadmap catalog is empty")
	}
	c := &Catalog{roles: data.Roles, byRole: make(map[string]*Role, len(data.Roles))}
	for i := range c.roles {
		role := &c.roles[i]
		if _, dup := c.byRole[role.ID]; dup {
			return nil, fmt.Errorf("duplicate role %q in roadmap catalog", role.ID)
		}
		c.byRole[role.ID] = role
	}
	return c, nil
}

func (c *Catalog) Roles() []Role {
	return c.roles
}

func (c *Catalog) Role(roleID string) (*Role, bool) {
	r, ok := c.byRole[roleID]
	return r, ok
}

func (c *Catalog) Tier(roleID, tierID string) (*Tier, bool) {
	role, ok := c.byRole[roleID]
	if !ok {
		return nil, false
	}
	for i := range role.Tiers {
		if role.Tiers[i].ID == tierID {
			return &role.Tiers[i], true
		}
	}
	return nil, false
}

// ItemCount returns the catalog list length for one category, or 0 when the
// (role, tier) is unknown.
func (c *Catalog) ItemCount(roleID, tierID string, itemType types.RoadmapItemType) int {
	tier, ok := c.Tier(roleID, tierID)
	if !ok {
		return 0
	}
	switch itemType {
	case types.ItemTypeSkills:
		return len(tier.Skills)
	case types.ItemTypeProjects:
		return len(tier.Projects)
	case types.ItemTypeFreeResources:
		return len(tier.FreeResources)
	case types.ItemTypePaidResources:
		return len(tier.PaidResources)
	}
	return 0
}
