package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BlogPost is a blog entry managed from the admin panel.
type BlogPost struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"not null"`
	Excerpt   string    `json:"excerpt"`
	Content   string    `json:"content"`
	ImageURL  string    `json:"image_url" gorm:"column:image_url"`
	Category  string    `json:"category"`
	Published bool      `json:"published" gorm:"not null;default:false;index"`
	CreatedAt time.Time `json:"created_at" gorm:"index"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for BlogPost
func (BlogPost) TableName() string {
	return "blog_posts"
}

// BeforeCreate assigns an id when the caller did not.
func (p *BlogPost) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// BlogPostInsert carries the writable fields of a new post.
type BlogPostInsert struct {
	Title     string `json:"title"`
	Excerpt   string `json:"excerpt"`
	Content   string `json:"content"`
	ImageURL  string `json:"image_url"`
	Category  string `json:"category"`
	Published bool   `json:"published"`
}

// BlogPostUpdate is a partial update; nil fields are left untouched.
type BlogPostUpdate struct {
	Title     *string `json:"title"`
	Excerpt   *string `json:"excerpt"`
	Content   *string `json:"content"`
	ImageURL  *string `json:"image_url"`
	Category  *string `json:"category"`
	Published *bool   `json:"published"`
}

// Columns returns the column/value pairs to write.
func (u BlogPostUpdate) Columns() map[string]any {
	cols := make(map[string]any)
	if u.Title != nil {
		cols["title"] = *u.Title
	}
	if u.Excerpt != nil {
		cols["excerpt"] = *u.Excerpt
	}
	if u.Content != nil {
		cols["content"] = *u.Content
	}
	if u.ImageURL != nil {
		cols["image_url"] = *u.ImageURL
	}
	if u.Category != nil {
		cols["category"] = *u.Category
	}
	if u.Published != nil {
		cols["published"] = *u.Published
	}
	return cols
}

// BlogStats summarises posts for the admin dashboard.
type BlogStats struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Drafts    int `json:"drafts"`
}
