package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"portfolio-site-api/internal/apperrors"
	"portfolio-site-api/internal/models"
)

// SettingsRepository reads and writes the site_settings table.
type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// GetSetting returns the value stored for key, or nil when the row is missing.
func (r *SettingsRepository) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	var row models.SiteSetting
	err := r.db.WithContext(ctx).Select("key", "value").Take(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select setting %q: %w", key, err)
	}
	return json.RawMessage(row.Value), nil
}

// ListSettings returns every settings row in one round trip.
func (r *SettingsRepository) ListSettings(ctx context.Context) ([]models.SiteSetting, error) {
	var rows []models.SiteSetting
	if err := r.db.WithContext(ctx).Order("key").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select settings: %w", err)
	}
	return rows, nil
}

// UpdateSetting replaces the value of an existing row.
func (r *SettingsRepository) UpdateSetting(ctx context.Context, key string, value json.RawMessage) error {
	res := r.db.WithContext(ctx).
		Model(&models.SiteSetting{}).
		Where("key = ?", key).
		Updates(map[string]any{"value": datatypes.JSON(value)})
	if res.Error != nil {
		return fmt.Errorf("update setting %q: %w", key, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update setting %q: %w", key, apperrors.ErrNotFound)
	}
	return nil
}
