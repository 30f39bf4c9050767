package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"portfolio-site-api/internal/auth"
	"portfolio-site-api/internal/blog"
	"portfolio-site-api/internal/cache"
	"portfolio-site-api/internal/config"
	"portfolio-site-api/internal/contact"
	"portfolio-site-api/internal/database"
	"portfolio-site-api/internal/events"
	"portfolio-site-api/internal/handlers"
	"portfolio-site-api/internal/logger"
	"portfolio-site-api/internal/maintenance"
	"portfolio-site-api/internal/media"
	"portfolio-site-api/internal/realtime"
	"portfolio-site-api/internal/routes"
	"portfolio-site-api/internal/settings"
	"portfolio-site-api/internal/store"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(ctx context.Context) (err error) {
	cfg, err := config.Load(configPaths()...)
	if err != nil {
		return err
	}
	if err := logger.Init(cfg.Server.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.WithModule("server")

	if !strings.EqualFold(cfg.Server.LogLevel, "debug") {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := checkJWTSecret(cfg, log); err != nil {
		return err
	}

	db, err := database.Open(cfg.Database, cfg.Server.LogLevel)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("database handle: %w", err)
	}
	defer func() { err = multierr.Append(err, sqlDB.Close()) }()

	if err := database.Migrate(db); err != nil {
		return err
	}
	if _, err := database.SeedSettings(ctx, db); err != nil {
		return err
	}

	bus, err := openBus(ctx, cfg.Events)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, bus.Close()) }()

	hub := realtime.NewHub()
	relay := events.NewRelay(bus, cfg.Events.Topic, nil)

	settingsSvc := settings.NewService(
		store.NewSettingsRepository(db),
		cache.Policy{Fresh: cfg.Cache.Settings.Fresh, Retain: cfg.Cache.Settings.Retain},
		hub, relay,
	)
	blogSvc := blog.NewService(
		store.NewBlogRepository(db),
		cache.Policy{Fresh: cfg.Cache.Blog.Fresh, Retain: cfg.Cache.Blog.Retain},
		hub, relay,
	)
	relay.Attach(events.CacheSettings, settingsSvc.Cache())
	relay.Attach(events.CacheBlog, blogSvc)

	mailer, err := contact.NewSMTPMailer(cfg.Email)
	if err != nil {
		return err
	}
	contactSvc := contact.NewService(store.NewContactRepository(db), mailer, cfg.Contact.Recipient)

	var uploads *media.Uploader
	if cfg.Storage.Bucket != "" {
		objects, err := media.NewS3Store(ctx, cfg.Storage)
		if err != nil {
			log.Warn("image uploads disabled", zap.Error(err))
		} else {
			uploads = media.NewUploader(objects, cfg.Storage.MaxImageBytes)
		}
	}

	tokens := auth.NewTokenManager(cfg.Auth)
	if cfg.Auth.AdminEmail == "" || cfg.Auth.AdminPasswordHash == "" {
		log.Warn("admin credentials not configured; admin login will always fail")
	}

	h := handlers.New(handlers.Deps{
		Settings: settingsSvc,
		Blog:     blogSvc,
		Contact:  contactSvc,
		Uploads:  uploads,
		Auth:     auth.NewAuthenticator(cfg.Auth, tokens),
		Hub:      hub,
	})
	router := routes.SetupRoutes(routes.Options{
		Handler:          h,
		Tokens:           tokens,
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		MetricsPath:      cfg.Server.MetricsPath,
		ContactPerSecond: cfg.Limits.ContactPerSecond,
		LoginPerSecond:   cfg.Limits.LoginPerSecond,
		ClientIPHeader:   cfg.Limits.ClientIPHeader,
	})

	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()

	settingsSvc.Prefetch(runCtx)

	settingsEvents, unsubSettings := settingsSvc.Cache().Subscribe()
	defer unsubSettings()
	listEvents, unsubLists := blogSvc.Lists().Subscribe()
	defer unsubLists()
	postEvents, unsubPosts := blogSvc.Posts().Subscribe()
	defer unsubPosts()
	go hub.Bridge(runCtx, settingsEvents, listEvents)
	// post keys carry draft ids
	go hub.BridgeAdmin(runCtx, postEvents)

	go func() {
		if err := relay.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("invalidation relay stopped", zap.Error(err))
		}
	}()

	janitorOpts := []maintenance.Option{maintenance.WithSchedule(cfg.Cache.PurgeSchedule)}
	if cfg.Cache.RewarmSettings {
		janitorOpts = append(janitorOpts, maintenance.WithWarmers(settingsSvc))
	}
	janitor := maintenance.NewJanitor([]maintenance.Purger{settingsSvc, blogSvc}, janitorOpts...)
	if err := janitor.Start(); err != nil {
		return fmt.Errorf("start cache janitor: %w", err)
	}
	defer func() { <-janitor.Stop().Done() }()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", server.Addr),
			zap.String("events", cfg.Events.Driver),
			zap.String("instance", relay.Instance()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	if err, ok := <-serverErr; ok && err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info("server stopped gracefully")
	return nil
}

// checkJWTSecret refuses the empty or default secret outside debug mode; anyone
// can sign admin tokens with it.
func checkJWTSecret(cfg *config.Config, log *zap.Logger) error {
	if !cfg.Auth.InsecureSecret() {
		return nil
	}
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		log.Warn("using the development JWT secret; set PORTFOLIO_AUTH_JWT_SECRET before deploying")
		return nil
	}
	return errors.New("auth.jwt_secret is empty or the development default; set PORTFOLIO_AUTH_JWT_SECRET")
}

func openBus(ctx context.Context, cfg config.EventsConfig) (events.Bus, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return events.NoopBus{}, nil
	case "nats":
		bus, err := events.NewNATSBus(cfg.NATSURL)
		if err != nil {
			return nil, fmt.Errorf("connect nats: %w", err)
		}
		return bus, nil
	case "redis":
		bus, err := events.NewRedisBus(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		return bus, nil
	default:
		return nil, fmt.Errorf("unsupported events driver %q", cfg.Driver)
	}
}
