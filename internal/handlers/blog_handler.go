package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"portfolio-site-api/internal/blog"
	"portfolio-site-api/internal/models"
)

const msgPostNotFound = "Blog post not found"

// GetPublishedPosts handles GET /api/posts
func (h *Handler) GetPublishedPosts(c *gin.Context) {
	respondQuery(c, h.blog.List(c.Request.Context(), false))
}

// GetPublishedPost handles GET /api/posts/:id
// Drafts are reported as missing.
func (h *Handler) GetPublishedPost(c *gin.Context) {
	snap := h.blog.Get(c.Request.Context(), c.Param("id"))
	if snap.Found && (snap.Value == nil || !snap.Value.Published) {
		c.JSON(http.StatusNotFound, gin.H{"error": msgPostNotFound})
		return
	}
	respondQuery(c, snap)
}

// GetAllPosts handles GET /api/admin/posts
func (h *Handler) GetAllPosts(c *gin.Context) {
	respondQuery(c, h.blog.List(c.Request.Context(), true))
}

// GetPost handles GET /api/admin/posts/:id
func (h *Handler) GetPost(c *gin.Context) {
	snap := h.blog.Get(c.Request.Context(), c.Param("id"))
	if snap.Found && snap.Value == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": msgPostNotFound})
		return
	}
	respondQuery(c, snap)
}

// CreatePost handles POST /api/admin/posts
func (h *Handler) CreatePost(c *gin.Context) {
	var req models.BlogPostInsert
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	post, err := h.blog.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": blog.MsgCreated, "post": post})
}

// UpdatePost handles PATCH /api/admin/posts/:id
func (h *Handler) UpdatePost(c *gin.Context) {
	var req models.BlogPostUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	post, err := h.blog.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": blog.MsgUpdated, "post": post})
}

// TogglePublished handles POST /api/admin/posts/:id/toggle-published
func (h *Handler) TogglePublished(c *gin.Context) {
	post, err := h.blog.TogglePublished(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": blog.MsgUpdated, "post": post})
}

// DeletePost handles DELETE /api/admin/posts/:id
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.blog.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": blog.MsgDeleted})
}

// Dashboard handles GET /api/admin/dashboard
func (h *Handler) Dashboard(c *gin.Context) {
	stats, err := h.blog.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
