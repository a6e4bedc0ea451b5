package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/pathbyte/pathbyte-backend/internal/platform/apierr"
	"github.com/pathbyte/pathbyte-backend/internal/services"
)

type UserHandler struct {
	userService services.UserService
}

func NewUserHandler(userService services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (uh *UserHandler) GetMe(c *gin.Context) {
	me, err := uh.userService.GetMe(c.Request.Context())
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"me": me})
}

func (uh *UserHandler) UpdateRoadmapPrefs(c *gin.Context) {
	var req struct {
		RoleID string `json:"roleId"`
		TierID string `json:"tierId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, apierr.InvalidArgument("invalid request body"))
		return
	}
	me, err := uh.userService.UpdateRoadmapPrefs(c.Request.Context(), req.RoleID, req.TierID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"me": me})
}

func (uh *UserHandler) DeleteAccount(c *gin.Context) {
	if err := uh.userService.DeleteAccount(c.Request.Context()); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"success": true})
}
