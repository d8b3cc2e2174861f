package api

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/osaretin/rosca-server/internal/models"
)

// ListActivity handles GET /api/groups/:groupId/activity
func (h *Handler) ListActivity(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))

	resp, err := h.svc.ListActivity(c.Request.Context(), userID(c), c.Param("groupId"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListNotifications handles GET /api/notifications
func (h *Handler) ListNotifications(c *gin.Context) {
	resp, err := h.svc.ListNotifications(c.Request.Context(), userID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// MarkNotificationRead handles POST /api/notifications/:notificationId/read
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	if err := h.svc.MarkNotificationRead(c.Request.Context(), userID(c), c.Param("notificationId")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{Status: "success"})
}

// ClearNotifications handles DELETE /api/notifications
func (h *Handler) ClearNotifications(c *gin.Context) {
	if err := h.svc.ClearNotifications(c.Request.Context(), userID(c)); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.StatusResponse{Status: "success", Message: "notifications cleared"})
}

// StreamGroupEvents handles GET /api/groups/:groupId/events. It streams
// advisory row-update events over SSE. Delivery is at-most-once with no
// replay; clients must re-read state rather than trust the stream.
func (h *Handler) StreamGroupEvents(c *gin.Context) {
	groupID := c.Param("groupId")

	// Membership check; the fetch result itself is discarded.
	if _, err := h.svc.GetGroup(c.Request.Context(), userID(c), groupID); err != nil {
		respondError(c, err)
		return
	}

	events, cancel := h.hub.Subscribe(groupID)
	defer cancel()

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("update", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
