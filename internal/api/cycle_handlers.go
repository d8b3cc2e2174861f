package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/osaretin/rosca-server/internal/models"
)

// StartCycle handles POST /api/groups/:groupId/cycles
func (h *Handler) StartCycle(c *gin.Context) {
	var req models.StartCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	resp, err := h.svc.StartCycle(c.Request.Context(), userID(c), c.Param("groupId"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// ListCycles handles GET /api/groups/:groupId/cycles
func (h *Handler) ListCycles(c *gin.Context) {
	resp, err := h.svc.ListCycles(c.Request.Context(), userID(c), c.Param("groupId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetActiveCycle handles GET /api/groups/:groupId/cycles/active
func (h *Handler) GetActiveCycle(c *gin.Context) {
	resp, err := h.svc.GetActiveCycle(c.Request.Context(), userID(c), c.Param("groupId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CloseCycle handles POST /api/cycles/:cycleId/close
func (h *Handler) CloseCycle(c *gin.Context) {
	resp, err := h.svc.CloseCycle(c.Request.Context(), userID(c), c.Param("cycleId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RemindAll handles POST /api/cycles/:cycleId/remind-all
func (h *Handler) RemindAll(c *gin.Context) {
	resp, err := h.svc.RemindAll(c.Request.Context(), userID(c), c.Param("cycleId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// MarkPaymentSent handles POST /api/logs/:logId/mark-sent
func (h *Handler) MarkPaymentSent(c *gin.Context) {
	resp, err := h.svc.MarkPaymentSent(c.Request.Context(), userID(c), c.Param("logId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// VerifyPayment handles POST /api/logs/:logId/verify
func (h *Handler) VerifyPayment(c *gin.Context) {
	resp, err := h.svc.VerifyPayment(c.Request.Context(), userID(c), c.Param("logId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RejectPayment handles POST /api/logs/:logId/reject
func (h *Handler) RejectPayment(c *gin.Context) {
	resp, err := h.svc.RejectPayment(c.Request.Context(), userID(c), c.Param("logId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RemindMember handles POST /api/logs/:logId/remind
func (h *Handler) RemindMember(c *gin.Context) {
	resp, err := h.svc.RemindMember(c.Request.Context(), userID(c), c.Param("logId"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
