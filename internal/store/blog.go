package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"portfolio-site-api/internal/apperrors"
	"portfolio-site-api/internal/models"
)

// BlogRepository reads and writes the blog_posts table.
type BlogRepository struct {
	db *gorm.DB
}

func NewBlogRepository(db *gorm.DB) *BlogRepository {
	return &BlogRepository{db: db}
}

// ListPosts returns posts newest first. Without includeUnpublished only
// published posts are selected.
func (r *BlogRepository) ListPosts(ctx context.Context, includeUnpublished bool) ([]models.BlogPost, error) {
	query := r.db.WithContext(ctx).Model(&models.BlogPost{})
	if !includeUnpublished {
		query = query.Where("published = ?", true)
	}
	var posts []models.BlogPost
	if err := query.Order("created_at desc").Find(&posts).Error; err != nil {
		return nil, fmt.Errorf("select blog posts: %w", err)
	}
	return posts, nil
}

// GetPost returns the post with id, or nil when it does not exist.
func (r *BlogRepository) GetPost(ctx context.Context, id string) (*models.BlogPost, error) {
	var post models.BlogPost
	err := r.db.WithContext(ctx).Take(&post, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select blog post %q: %w", id, err)
	}
	return &post, nil
}

// InsertPost creates a post and returns the stored row.
func (r *BlogRepository) InsertPost(ctx context.Context, in models.BlogPostInsert) (*models.BlogPost, error) {
	post := models.BlogPost{
		Title:     in.Title,
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		ImageURL:  in.ImageURL,
		Category:  in.Category,
		Published: in.Published,
	}
	if err := r.db.WithContext(ctx).Create(&post).Error; err != nil {
		return nil, fmt.Errorf("insert blog post: %w", err)
	}
	return &post, nil
}

// UpdatePost applies a partial update and returns the stored row.
func (r *BlogRepository) UpdatePost(ctx context.Context, id string, upd models.BlogPostUpdate) (*models.BlogPost, error) {
	cols := upd.Columns()
	if len(cols) > 0 {
		res := r.db.WithContext(ctx).Model(&models.BlogPost{}).Where("id = ?", id).Updates(cols)
		if res.Error != nil {
			return nil, fmt.Errorf("update blog post %q: %w", id, res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, fmt.Errorf("update blog post %q: %w", id, apperrors.ErrNotFound)
		}
	}
	post, err := r.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, fmt.Errorf("update blog post %q: %w", id, apperrors.ErrNotFound)
	}
	return post, nil
}

// DeletePost removes a post.
func (r *BlogRepository) DeletePost(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.BlogPost{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete blog post %q: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete blog post %q: %w", id, apperrors.ErrNotFound)
	}
	return nil
}
