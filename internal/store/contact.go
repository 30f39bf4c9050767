package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"portfolio-site-api/internal/models"
)

// ContactRepository stores contact form submissions.
type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) InsertContactMessage(ctx context.Context, msg *models.ContactMessage) error {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	return nil
}
