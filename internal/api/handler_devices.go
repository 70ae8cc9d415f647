package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

type addDeviceRequest struct {
	UserID     int64  `json:"user_id" binding:"required"`
	DeviceCode string `json:"device_code" binding:"required"`
}

// AddDevice handles POST /api/iot/add_device. A new code registers the
// device with the caller as admin; a known code files an access request
// and alerts the device admin.
func (h *Handler) AddDevice(c *gin.Context) {
	var req addDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "user_id and device_code are required")
		return
	}

	result, err := h.store.RegisterOrRequestAccess(c.Request.Context(), req.UserID, req.DeviceCode)
	if err != nil {
		fail(c, err, "add_device failed")
		return
	}

	if result.Created {
		ok(c, "Device created and you are now the admin", gin.H{"device_id": result.DeviceID})
		return
	}
	h.pool.Dispatch(result.RequestID)
	ok(c, "Access request sent", gin.H{"device_id": result.DeviceID})
}

// MyDevices handles GET and POST /api/iot/my_devices.
func (h *Handler) MyDevices(c *gin.Context) {
	var userID int64
	if raw := c.Query("user_id"); raw != "" {
		userID, _ = strconv.ParseInt(raw, 10, 64)
	} else {
		var body struct {
			UserID int64 `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&body); err == nil {
			userID = body.UserID
		}
	}
	if userID == 0 {
		badRequest(c, "user_id required")
		return
	}

	devices, err := h.store.DevicesForUser(c.Request.Context(), userID)
	if err != nil {
		fail(c, err, "my_devices failed")
		return
	}
	ok(c, "Devices fetched", gin.H{"devices": devices})
}

type renameDeviceRequest struct {
	DeviceID int64  `json:"device_id" binding:"required"`
	NewName  string `json:"new_name" binding:"required"`
}

// RenameDevice handles POST /api/iot/rename_device.
func (h *Handler) RenameDevice(c *gin.Context) {
	var req renameDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "device_id and new_name are required")
		return
	}

	if err := h.store.RenameDevice(c.Request.Context(), req.DeviceID, req.NewName); err != nil {
		fail(c, err, "rename_device failed")
		return
	}
	ok(c, "Device renamed", nil)
}

// DeviceMembers handles GET /api/iot/device_members.
func (h *Handler) DeviceMembers(c *gin.Context) {
	deviceID, err := strconv.ParseInt(c.Query("device_id"), 10, 64)
	if err != nil {
		badRequest(c, "device_id required")
		return
	}

	members, err := h.store.DeviceMembers(c.Request.Context(), deviceID)
	if err != nil {
		fail(c, err, "device_members failed")
		return
	}
	ok(c, "Members fetched", gin.H{"members": members})
}

type changeAdminRequest struct {
	DeviceID           int64 `json:"device_id" binding:"required"`
	CurrentAdminUserID int64 `json:"current_admin_user_id" binding:"required"`
	NewAdminUserID     int64 `json:"new_admin_user_id" binding:"required"`
}

// ChangeAdmin handles POST /api/iot/change_admin.
func (h *Handler) ChangeAdmin(c *gin.Context) {
	var req changeAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "device_id, current_admin_user_id and new_admin_user_id are required")
		return
	}

	if err := h.store.ChangeAdmin(c.Request.Context(), req.DeviceID, req.CurrentAdminUserID, req.NewAdminUserID); err != nil {
		fail(c, err, "change_admin failed")
		return
	}
	ok(c, "Admin changed", nil)
}

type deleteDeviceRequest struct {
	DeviceID int64 `json:"device_id" binding:"required"`
	UserID   int64 `json:"user_id" binding:"required"`
}

// DeleteDevice handles POST /api/iot/delete_device.
func (h *Handler) DeleteDevice(c *gin.Context) {
	var req deleteDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "device_id and user_id are required")
		return
	}

	result, err := h.store.DeleteDevice(c.Request.Context(), req.DeviceID, req.UserID)
	if err != nil {
		fail(c, err, "delete_device failed")
		return
	}

	switch {
	case result.ByAdmin:
		ok(c, "Device deleted completely (admin removed device)", nil)
	case result.DeviceDeleted:
		ok(c, "Device deleted because no members left", nil)
	default:
		ok(c, "Device removed from user successfully", nil)
	}
}

type controlDeviceRequest struct {
	DeviceID int64  `json:"device_id" binding:"required"`
	UserID   int64  `json:"user_id" binding:"required"`
	Command  string `json:"command" binding:"required"`
}

// ControlDevice handles POST /api/iot/control_device. Commands travel
// to devices out of band; the API only acknowledges them.
func (h *Handler) ControlDevice(c *gin.Context) {
	var req controlDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "device_id, user_id and command are required")
		return
	}
	ok(c, "Command acknowledged: "+req.Command, nil)
}
