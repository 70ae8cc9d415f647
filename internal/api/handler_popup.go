package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetPopup handles GET /api/iot/popup, returning the active broadcast
// banner if one is configured.
func (h *Handler) GetPopup(c *gin.Context) {
	popup, err := h.store.ActivePopup(c.Request.Context())
	if err != nil {
		log.Printf("popup fetch failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"show": false})
		return
	}

	if popup == nil {
		c.JSON(http.StatusOK, gin.H{"show": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"show":        true,
		"message":     popup.Message,
		"button_name": popup.ButtonName,
		"button_url":  popup.ButtonURL,
	})
}

// Tester handles GET /api/iot/tester, a liveness probe.
func (h *Handler) Tester(c *gin.Context) {
	ok(c, "IoT backend is running", nil)
}
