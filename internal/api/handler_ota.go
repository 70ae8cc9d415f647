package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// OtaCheck handles GET /api/ota/:device_id. Every check records the
// reported version as a heartbeat before comparing against the newest
// released firmware.
func (h *Handler) OtaCheck(c *gin.Context) {
	deviceCode := c.Param("device_id")
	version := c.Query("version")

	fw, err := h.store.CheckForUpdate(c.Request.Context(), deviceCode, version)
	if err != nil {
		fail(c, err, "ota check failed for "+deviceCode)
		return
	}

	if fw == nil {
		c.JSON(http.StatusOK, gin.H{"update": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"update":   true,
		"version":  fw.Version,
		"url":      firmwareURL(h.cfg.OTA.FirmwareBaseURL, fw.FilePath),
		"checksum": fw.Checksum,
	})
}

func firmwareURL(base, path string) string {
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}

type otaStatusRequest struct {
	Version string `json:"version" binding:"required"`
}

// OtaStatus handles POST /api/ota/:device_id/status, the device's
// confirmation of a completed flash.
func (h *Handler) OtaStatus(c *gin.Context) {
	deviceCode := c.Param("device_id")

	var req otaStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false})
		return
	}

	if err := h.store.ReportOtaStatus(c.Request.Context(), deviceCode, req.Version); err != nil {
		fail(c, err, "ota status failed for "+deviceCode)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
