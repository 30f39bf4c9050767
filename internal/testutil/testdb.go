package testutil

import (
	"context"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"portfolio-site-api/internal/database"
)

// NewInMemoryDB creates an in-memory SQLite DB, runs migrations and seeds the
// default settings sections.
func NewInMemoryDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	// every pooled connection would otherwise get its own empty database
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	if _, err := database.SeedSettings(context.Background(), db); err != nil {
		return nil, err
	}
	return db, nil
}
