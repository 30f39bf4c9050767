package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"portfolio-site-api/internal/config"
	"portfolio-site-api/internal/logger"
	"portfolio-site-api/internal/models"
)

// Open connects to the configured store. SQLite uses glebarez/sqlite, a pure Go
// driver (no CGO); Postgres is the production store.
func Open(cfg config.DatabaseConfig, logLevel string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: gormlogger.Default.LogMode(gormLogLevel(logLevel))}

	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		path := cfg.Path
		if cfg.DSN != "" {
			path = cfg.DSN
		}
		dialector = sqlite.Open(path)
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("database: postgres requires a dsn")
		}
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("database: unsupported driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("database: open %s: %w", cfg.Driver, err)
	}
	return db, nil
}

// Migrate creates or updates the tables (it will create tables if they don't exist).
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.SiteSetting{},
		&models.BlogPost{},
		&models.ContactMessage{},
	); err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}
	return nil
}

// SeedSettings inserts a default row for every section that has none.
// Existing rows are never overwritten. It returns the keys it created.
func SeedSettings(ctx context.Context, db *gorm.DB) ([]models.SectionKey, error) {
	var created []models.SectionKey
	defaults := models.DefaultSettings()
	for _, key := range models.SectionKeys {
		raw, err := json.Marshal(defaults[key])
		if err != nil {
			return created, fmt.Errorf("database: encode default %s: %w", key, err)
		}
		res := db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.SiteSetting{Key: string(key), Value: datatypes.JSON(raw)})
		if res.Error != nil {
			return created, fmt.Errorf("database: seed %s: %w", key, res.Error)
		}
		if res.RowsAffected > 0 {
			created = append(created, key)
		}
	}
	if len(created) > 0 {
		logger.WithModule("database").Info("seeded settings sections", zap.Int("count", len(created)))
	}
	return created, nil
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return gormlogger.Info
	case "warn", "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
