package handlers

import (
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pathbyte/pathbyte-backend/internal/logger"
	"github.com/pathbyte/pathbyte-backend/internal/platform/apierr"
	"github.com/pathbyte/pathbyte-backend/internal/services"
	"github.com/pathbyte/pathbyte-backend/internal/types"
)

// importBodyLimit caps snapshot uploads; a legitimate full export for every
// role and tier is a few kilobytes.
const importBodyLimit = 1 << 20

type ProgressHandler struct {
	log             *logger.Logger
	progressService services.ProgressService
}

func NewProgressHandler(log *logger.Logger, progressService services.ProgressService) *ProgressHandler {
	return &ProgressHandler{
		log:             log.With("handler", "ProgressHandler"),
		progressService: progressService,
	}
}

// ToggleItem handles PUT /progress/:roleId/:tierId/items. The response
// carries the tier percentage recomputed in the same transaction as the
// toggle, so the client never renders a stale rollup.
func (ph *ProgressHandler) ToggleItem(c *gin.Context) {
	var req struct {
		ItemType  string  `json:"itemType"`
		ItemIndex *int    `json:"itemIndex"`
		Completed bool    `json:"completed"`
		Notes     *string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.InvalidArgument("invalid request body"))
		return
	}
	if req.ItemIndex == nil {
		RespondError(c, apierr.InvalidArgument("itemIndex required"))
		return
	}
	percentage, err := ph.progressService.ToggleItem(
		c.Request.Context(),
		c.Param("roleId"),
		c.Param("tierId"),
		types.RoadmapItemType(req.ItemType),
		*req.ItemIndex,
		req.Completed,
		req.Notes,
	)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"percentage": percentage})
}

func (ph *ProgressHandler) GetTierProgress(c *gin.Context) {
	percentage, err := ph.progressService.GetTierProgress(c.Request.Context(), c.Param("roleId"), c.Param("tierId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"percentage": percentage})
}

func (ph *ProgressHandler) ListTierItems(c *gin.Context) {
	items, err := ph.progressService.ListTierItems(c.Request.Context(), c.Param("roleId"), c.Param("tierId"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"items": items})
}

func (ph *ProgressHandler) GetItemState(c *gin.Context) {
	itemIndex, err := strconv.Atoi(c.Query("itemIndex"))
	if err != nil {
		RespondError(c, apierr.InvalidArgument("itemIndex must be an integer"))
		return
	}
	state, err := ph.progressService.GetItemState(
		c.Request.Context(),
		c.Param("roleId"),
		c.Param("tierId"),
		types.RoadmapItemType(c.Query("itemType")),
		itemIndex,
	)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"item": state})
}

func (ph *ProgressHandler) SetSubSkillNote(c *gin.Context) {
	var req struct {
		SkillName    string `json:"skillName"`
		SubSkillName string `json:"subSkillName"`
		Completed    bool   `json:"completed"`
		Notes        string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.InvalidArgument("invalid request body"))
		return
	}
	err := ph.progressService.SetSubSkillNote(
		c.Request.Context(),
		c.Param("roleId"),
		c.Param("tierId"),
		req.SkillName,
		req.SubSkillName,
		req.Completed,
		req.Notes,
	)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (ph *ProgressHandler) GetSubSkillNote(c *gin.Context) {
	state, err := ph.progressService.GetSubSkillNote(
		c.Request.Context(),
		c.Param("roleId"),
		c.Param("tierId"),
		c.Query("skillName"),
		c.Query("subSkillName"),
	)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"subSkill": state})
}

func (ph *ProgressHandler) ExportSnapshot(c *gin.Context) {
	doc, err := ph.progressService.ExportSnapshot(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, doc)
}

// ImportSnapshot passes the raw body through so the snapshot codec is the
// only place that decides what a well-formed document is.
func (ph *ProgressHandler) ImportSnapshot(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, importBodyLimit))
	if err != nil {
		RespondError(c, apierr.InvalidArgument("unreadable request body"))
		return
	}
	if err := ph.progressService.ImportSnapshot(c.Request.Context(), raw); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}

func (ph *ProgressHandler) ResetTier(c *gin.Context) {
	if err := ph.progressService.ResetTier(c.Request.Context(), c.Param("roleId"), c.Param("tierId")); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
