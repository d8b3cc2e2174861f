package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/osaretin/rosca-server/internal/models"
)

// CreateGroup handles POST /api/groups
func (h *Handler) CreateGroup(c *gin.Context) {
	var req models.CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.svc.CreateGroup(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListGroups handles GET /api/groups
func (h *Handler) ListGroups(c *gin.Context) {
	resp, err := h.svc.ListGroups(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetGroup handles GET /api/groups/:groupId
func (h *Handler) GetGroup(c *gin.Context) {
	resp, err := h.svc.GetGroup(c.Request.Context(), userID(c), c.Param("groupId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateGroup handles PUT /api/groups/:groupId
func (h *Handler) UpdateGroup(c *gin.Context) {
	var req models.UpdateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.svc.UpdateGroup(c.Request.Context(), userID(c), c.Param("groupId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// DeleteGroup handles DELETE /api/groups/:groupId
func (h *Handler) DeleteGroup(c *gin.Context) {
	if err := h.svc.DeleteGroup(c.Request.Context(), userID(c), c.Param("groupId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "group deleted"})
}

// ArchiveGroup handles POST /api/groups/:groupId/archive
func (h *Handler) ArchiveGroup(c *gin.Context) {
	if err := h.svc.ArchiveGroup(c.Request.Context(), userID(c), c.Param("groupId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "group archived"})
}

// UnarchiveGroup handles POST /api/groups/:groupId/unarchive
func (h *Handler) UnarchiveGroup(c *gin.Context) {
	if err := h.svc.UnarchiveGroup(c.Request.Context(), userID(c), c.Param("groupId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "group restored"})
}

// JoinGroup handles POST /api/join
func (h *Handler) JoinGroup(c *gin.Context) {
	var req models.JoinGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.svc.JoinGroup(c.Request.Context(), userID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// MoveMember handles POST /api/groups/:groupId/members/:memberId/move
func (h *Handler) MoveMember(c *gin.Context) {
	var req models.MoveMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.svc.MoveMember(c.Request.Context(), userID(c), c.Param("groupId"), c.Param("memberId"), req.Direction)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RestoreMember handles POST /api/groups/:groupId/members/:memberId/restore
func (h *Handler) RestoreMember(c *gin.Context) {
	resp, err := h.svc.RestoreMember(c.Request.Context(), userID(c), c.Param("groupId"), c.Param("memberId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
