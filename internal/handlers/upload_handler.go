package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// UploadImage handles POST /api/admin/uploads
// Expects a multipart form with the image in the "file" field.
func (h *Handler) UploadImage(c *gin.Context) {
	if h.uploads == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Image uploads are not configured"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please select an image file"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}
	defer f.Close()

	// one byte past the limit is enough to reject oversized files
	data, err := io.ReadAll(io.LimitReader(f, h.uploads.MaxBytes()+1))
	if err != nil {
		h.log.Warn("reading upload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read uploaded file"})
		return
	}

	url, err := h.uploads.UploadImage(c.Request.Context(), fh.Filename, data)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Image uploaded successfully", "url": url})
}
