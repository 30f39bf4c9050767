package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-site-api/internal/settings"
)

// GetAllSettings handles GET /api/settings
func (h *Handler) GetAllSettings(c *gin.Context) {
	respondQuery(c, h.settings.All(c.Request.Context()))
}

// GetSetting handles GET /api/settings/:key
func (h *Handler) GetSetting(c *gin.Context) {
	respondQuery(c, h.settings.Get(c.Request.Context(), c.Param("key")))
}

// UpdateSetting handles PUT /api/admin/settings/:key
// The request body is the full replacement value of the section.
func (h *Handler) UpdateSetting(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil || !json.Valid(body) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Request body must be valid JSON"})
		return
	}

	if err := h.settings.Update(c.Request.Context(), c.Param("key"), json.RawMessage(body)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": settings.MsgSaved})
}
