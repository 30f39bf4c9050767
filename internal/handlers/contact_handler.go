package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-site-api/internal/contact"
)

// SubmitContact handles POST /api/contact
func (h *Handler) SubmitContact(c *gin.Context) {
	var req contact.Submission
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if _, err := h.contact.Submit(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": contact.MsgSent})
}
