package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/pathbyte/pathbyte-backend/internal/catalog"
	"github.com/pathbyte/pathbyte-backend/internal/platform/apierr"
)

type RoadmapHandler struct {
	catalog *catalog.Catalog
}

func NewRoadmapHandler(cat *catalog.Catalog) *RoadmapHandler {
	return &RoadmapHandler{catalog: cat}
}

func (rh *RoadmapHandler) ListRoadmaps(c *gin.Context) {
	RespondOK(c, gin.H{"roles": rh.catalog.Roles()})
}

func (rh *RoadmapHandler) GetTier(c *gin.Context) {
	roleID := c.Param("roleId")
	tierID := c.Param("tierId")
	tier, ok := rh.catalog.Tier(roleID, tierID)
	if !ok {
		RespondError(c, apierr.NotFound("no roadmap tier %s/%s", roleID, tierID))
		return
	}
	RespondOK(c, gin.H{"tier": tier})
}
