package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"portfolio-site-api/internal/config"
	"portfolio-site-api/internal/models"
)

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"}, "info")
	require.Error(t, err)

	_, err = Open(config.DatabaseConfig{Driver: "postgres"}, "info")
	require.Error(t, err)
}

func TestSeedSettings_IsIdempotent(t *testing.T) {
	db, err := Open(config.DatabaseConfig{Driver: "sqlite", Path: ":memory:"}, "error")
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	created, err := SeedSettings(context.Background(), db)
	require.NoError(t, err)
	require.Len(t, created, len(models.SectionKeys))

	require.NoError(t, db.Model(&models.SiteSetting{}).
		Where("key = ?", "hero").
		Update("value", `{"title":"custom"}`).Error)

	created, err = SeedSettings(context.Background(), db)
	require.NoError(t, err)
	require.Empty(t, created)

	var hero models.SiteSetting
	require.NoError(t, db.First(&hero, "key = ?", "hero").Error)
	require.JSONEq(t, `{"title":"custom"}`, string(hero.Value))
}
