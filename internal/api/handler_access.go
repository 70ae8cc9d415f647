package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// PendingAccessRequests handles GET /api/iot/pending_access_requests.
func (h *Handler) PendingAccessRequests(c *gin.Context) {
	adminUserID, err := strconv.ParseInt(c.Query("admin_user_id"), 10, 64)
	if err != nil {
		badRequest(c, "admin_user_id required")
		return
	}

	requests, err := h.store.PendingRequestsForAdmin(c.Request.Context(), adminUserID)
	if err != nil {
		fail(c, err, "pending_access_requests failed")
		return
	}
	ok(c, "Pending requests fetched", gin.H{"requests": requests})
}

type accessDecisionRequest struct {
	RequestID   int64 `json:"request_id" binding:"required"`
	AdminUserID int64 `json:"admin_user_id" binding:"required"`
}

// ApproveAccess handles POST /api/iot/approve_access.
func (h *Handler) ApproveAccess(c *gin.Context) {
	var req accessDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request_id and admin_user_id are required")
		return
	}

	if err := h.store.ApproveAccess(c.Request.Context(), req.RequestID, req.AdminUserID); err != nil {
		fail(c, err, "approve_access failed")
		return
	}
	ok(c, "Access approved", nil)
}

// RejectAccess handles POST /api/iot/reject_access.
func (h *Handler) RejectAccess(c *gin.Context) {
	var req accessDecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "request_id and admin_user_id are required")
		return
	}

	if err := h.store.RejectAccess(c.Request.Context(), req.RequestID, req.AdminUserID); err != nil {
		fail(c, err, "reject_access failed")
		return
	}
	ok(c, "Request rejected", nil)
}

type removeAccessRequest struct {
	DeviceID    int64 `json:"device_id" binding:"required"`
	UserID      int64 `json:"user_id" binding:"required"`
	AdminUserID int64 `json:"admin_user_id" binding:"required"`
}

// RemoveAccess handles POST /api/iot/remove_access.
func (h *Handler) RemoveAccess(c *gin.Context) {
	var req removeAccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "device_id, user_id and admin_user_id are required")
		return
	}

	if err := h.store.RemoveAccess(c.Request.Context(), req.DeviceID, req.UserID, req.AdminUserID); err != nil {
		fail(c, err, "remove_access failed")
		return
	}
	ok(c, "Access removed", nil)
}
