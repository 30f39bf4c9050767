package routes

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portfolio-site-api/internal/handlers"
	"portfolio-site-api/internal/middleware"
)

// Options configures the router.
type Options struct {
	Handler          *handlers.Handler
	Tokens           middleware.TokenValidator
	AllowedOrigins   []string
	MetricsPath      string
	ContactPerSecond float64
	LoginPerSecond   float64
	// ClientIPHeader is read for rate limiting when set; only use it behind a
	// proxy that overwrites it
	ClientIPHeader string
}

const msgRateLimited = "Too many requests, please try again later."

func SetupRoutes(opts Options) *gin.Engine {
	ginRouter := gin.New()
	ginRouter.Use(middleware.Recovery(), middleware.Logger(), middleware.Metrics())
	ginRouter.Use(cors.New(corsConfig(opts.AllowedOrigins)))

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Portfolio site API is running",
		})
	})
	metricsPath := opts.MetricsPath
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	ginRouter.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	h := opts.Handler
	ginRouter.GET("/ws", h.PublicWebSocket)

	// Public routes (no authentication required)
	api := ginRouter.Group("/api")
	{
		api.POST("/login", middleware.RateLimit(opts.LoginPerSecond, msgRateLimited, opts.ClientIPHeader), h.Login)
		api.GET("/settings", h.GetAllSettings)
		api.GET("/settings/:key", h.GetSetting)
		api.GET("/posts", h.GetPublishedPosts)
		api.GET("/posts/:id", h.GetPublishedPost)
		api.POST("/contact", middleware.RateLimit(opts.ContactPerSecond, msgRateLimited, opts.ClientIPHeader), h.SubmitContact)
	}

	// Admin routes (authentication required)
	admin := api.Group("/admin")
	admin.Use(middleware.JWTAuthMiddleware(opts.Tokens))
	{
		admin.PUT("/settings/:key", h.UpdateSetting)

		admin.GET("/posts", h.GetAllPosts)
		admin.GET("/posts/:id", h.GetPost)
		admin.POST("/posts", h.CreatePost)
		admin.PATCH("/posts/:id", h.UpdatePost)
		admin.POST("/posts/:id/toggle-published", h.TogglePublished)
		admin.DELETE("/posts/:id", h.DeletePost)

		admin.POST("/uploads", h.UploadImage)
		admin.GET("/dashboard", h.Dashboard)
		admin.GET("/ws", h.AdminWebSocket)
	}

	return ginRouter
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "Cache-Control", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || slices.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
