package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"portfolio-site-api/internal/apperrors"
	"portfolio-site-api/internal/auth"
	"portfolio-site-api/internal/blog"
	"portfolio-site-api/internal/cache"
	"portfolio-site-api/internal/contact"
	"portfolio-site-api/internal/logger"
	"portfolio-site-api/internal/media"
	"portfolio-site-api/internal/realtime"
	"portfolio-site-api/internal/settings"
)

// Handler serves the HTTP API on top of the domain services.
type Handler struct {
	settings *settings.Service
	blog     *blog.Service
	contact  *contact.Service
	uploads  *media.Uploader
	auth     *auth.Authenticator
	hub      *realtime.Hub
	log      *zap.Logger
}

// Deps lists the services a Handler needs. Uploads may be nil when object
// storage is not configured.
type Deps struct {
	Settings *settings.Service
	Blog     *blog.Service
	Contact  *contact.Service
	Uploads  *media.Uploader
	Auth     *auth.Authenticator
	Hub      *realtime.Hub
}

func New(deps Deps) *Handler {
	return &Handler{
		settings: deps.Settings,
		blog:     deps.Blog,
		contact:  deps.Contact,
		uploads:  deps.Uploads,
		auth:     deps.Auth,
		hub:      deps.Hub,
		log:      logger.WithModule("handlers"),
	}
}

// respondError renders err as {"error", "code", "fields"} with the status of
// its AppError.
func respondError(c *gin.Context, err error) {
	appErr := apperrors.FromError(err)
	body := gin.H{
		"error": appErr.Message,
		"code":  appErr.Kind,
	}
	if len(appErr.Fields) > 0 {
		body["fields"] = appErr.Fields
	}
	if appErr.StatusCode >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(appErr.StatusCode, body)
}

// respondQuery renders a cache snapshot as {data, isLoading, error}. Data
// served alongside a failed refresh is still a 200.
func respondQuery[V any](c *gin.Context, snap cache.Snapshot[V]) {
	var errMsg any
	if snap.Err != nil {
		errMsg = apperrors.FromError(snap.Err).Message
	}

	switch {
	case snap.Err == nil || snap.Found:
		c.JSON(http.StatusOK, gin.H{
			"data":      snap.Value,
			"isLoading": snap.Loading,
			"error":     errMsg,
		})
	case errors.Is(snap.Err, context.Canceled), errors.Is(snap.Err, context.DeadlineExceeded):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"data":      nil,
			"isLoading": true,
			"error":     snap.Err.Error(),
		})
	default:
		respondError(c, snap.Err)
	}
}
