package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/osaretin/rosca-server/internal/models"
	"github.com/osaretin/rosca-server/internal/push"
	"github.com/osaretin/rosca-server/internal/service"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler holds the dependencies for the API handlers
type Handler struct {
	svc service.Service
	hub *push.Hub
}

// NewHandler creates a new API handler
func NewHandler(svc service.Service, hub *push.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

// SetupRoutes registers all routes on the router
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	api.Use(AuthMiddleware())

	// Groups
	api.POST("/groups", h.CreateGroup)
	api.GET("/groups", h.ListGroups)
	api.GET("/groups/:groupId", h.GetGroup)
	api.PUT("/groups/:groupId", h.UpdateGroup)
	api.DELETE("/groups/:groupId", h.DeleteGroup)
	api.POST("/groups/:groupId/archive", h.ArchiveGroup)
	api.POST("/groups/:groupId/unarchive", h.UnarchiveGroup)
	api.POST("/join", h.JoinGroup)

	// Queue
	api.POST("/groups/:groupId/members/:memberId/move", h.MoveMember)
	api.POST("/groups/:groupId/members/:memberId/restore", h.RestoreMember)

	// Cycles and payments
	api.POST("/groups/:groupId/cycles", h.StartCycle)
	api.GET("/groups/:groupId/cycles", h.ListCycles)
	api.GET("/groups/:groupId/cycles/active", h.GetActiveCycle)
	api.POST("/cycles/:cycleId/close", h.CloseCycle)
	api.POST("/cycles/:cycleId/remind-all", h.RemindAll)
	api.POST("/logs/:logId/mark-sent", h.MarkPaymentSent)
	api.POST("/logs/:logId/verify", h.VerifyPayment)
	api.POST("/logs/:logId/reject", h.RejectPayment)
	api.POST("/logs/:logId/remind", h.RemindMember)

	// Activity and notifications
	api.GET("/groups/:groupId/activity", h.ListActivity)
	api.GET("/groups/:groupId/events", h.StreamGroupEvents)
	api.GET("/notifications", h.ListNotifications)
	api.POST("/notifications/:notificationId/read", h.MarkNotificationRead)
	api.DELETE("/notifications", h.ClearNotifications)
}

// userID returns the authenticated user id set by the auth middleware.
func userID(c *gin.Context) string {
	return c.GetString("userId")
}

// respondError maps business errors onto HTTP status codes. Store failures
// surface as a generic message so internals never leak to clients.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrGroupNotFound),
		errors.Is(err, models.ErrMemberNotFound),
		errors.Is(err, models.ErrCycleNotFound),
		errors.Is(err, models.ErrLogNotFound),
		errors.Is(err, models.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Status:  "error",
			Code:    "NOT_FOUND",
			Message: err.Error(),
		})
	case errors.Is(err, models.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, models.ErrorResponse{
			Status:  "error",
			Code:    "FORBIDDEN",
			Message: err.Error(),
		})
	case errors.Is(err, models.ErrCycleAlreadyActive),
		errors.Is(err, models.ErrCycleNotActive),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrMemberNotLocked),
		errors.Is(err, models.ErrGroupArchived),
		errors.Is(err, models.ErrAlreadyMember):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Status:  "error",
			Code:    "CONFLICT",
			Message: err.Error(),
		})
	case errors.Is(err, models.ErrInvalidDateRange),
		errors.Is(err, models.ErrInvalidInviteCode):
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Status:  "error",
			Code:    "VALIDATION_ERROR",
			Message: err.Error(),
		})
	case errors.Is(err, models.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
			Status:  "error",
			Code:    "RATE_LIMITED",
			Message: err.Error(),
		})
	default:
		slog.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Status:  "error",
			Code:    "INTERNAL_ERROR",
			Message: "an unexpected error occurred",
		})
	}
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Status:  "error",
		Code:    "VALIDATION_ERROR",
		Message: err.Error(),
	})
}
