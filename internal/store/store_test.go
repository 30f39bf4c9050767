package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfolio-site-api/internal/apperrors"
	"portfolio-site-api/internal/models"
	"portfolio-site-api/internal/testutil"
)

func TestSettingsRepository_GetListUpdate(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	repo := NewSettingsRepository(db)
	ctx := context.Background()

	rows, err := repo.ListSettings(ctx)
	require.NoError(t, err)
	require.Len(t, rows, len(models.SectionKeys))

	require.NoError(t, repo.UpdateSetting(ctx, "theme", json.RawMessage(`{"primaryColor":"220 90% 50%"}`)))
	value, err := repo.GetSetting(ctx, "theme")
	require.NoError(t, err)
	require.JSONEq(t, `{"primaryColor":"220 90% 50%"}`, string(value))

	missing, err := repo.GetSetting(ctx, "footer")
	require.NoError(t, err)
	require.Nil(t, missing)

	err = repo.UpdateSetting(ctx, "footer", json.RawMessage(`{}`))
	require.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestBlogRepository_ListFiltersAndOrders(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	repo := NewBlogRepository(db)
	ctx := context.Background()

	older, err := repo.InsertPost(ctx, models.BlogPostInsert{Title: "Older", Published: true})
	require.NoError(t, err)
	draft, err := repo.InsertPost(ctx, models.BlogPostInsert{Title: "Draft"})
	require.NoError(t, err)
	newer, err := repo.InsertPost(ctx, models.BlogPostInsert{Title: "Newer", Published: true})
	require.NoError(t, err)
	require.NotEmpty(t, older.ID)
	require.False(t, draft.Published)

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{older.ID, draft.ID, newer.ID} {
		require.NoError(t, db.Model(&models.BlogPost{}).Where("id = ?", id).
			UpdateColumn("created_at", base.Add(time.Duration(i)*time.Hour)).Error)
	}

	all, err := repo.ListPosts(ctx, true)
	require.NoError(t, err)
	require.Equal(t, []string{newer.ID, draft.ID, older.ID}, ids(all))

	published, err := repo.ListPosts(ctx, false)
	require.NoError(t, err)
	require.Equal(t, []string{newer.ID, older.ID}, ids(published))
}

func TestBlogRepository_UpdateAndDelete(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	repo := NewBlogRepository(db)
	ctx := context.Background()

	post, err := repo.InsertPost(ctx, models.BlogPostInsert{Title: "Post", Category: "go"})
	require.NoError(t, err)

	published := true
	updated, err := repo.UpdatePost(ctx, post.ID, models.BlogPostUpdate{Published: &published})
	require.NoError(t, err)
	require.True(t, updated.Published)
	require.Equal(t, "go", updated.Category)
	require.Equal(t, post.ID, updated.ID)
	require.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	unpublished := false
	updated, err = repo.UpdatePost(ctx, post.ID, models.BlogPostUpdate{Published: &unpublished})
	require.NoError(t, err)
	require.False(t, updated.Published)

	_, err = repo.UpdatePost(ctx, "missing", models.BlogPostUpdate{Published: &published})
	require.True(t, errors.Is(err, apperrors.ErrNotFound))

	require.NoError(t, repo.DeletePost(ctx, post.ID))
	gone, err := repo.GetPost(ctx, post.ID)
	require.NoError(t, err)
	require.Nil(t, gone)
	require.True(t, errors.Is(repo.DeletePost(ctx, post.ID), apperrors.ErrNotFound))
}

func TestContactRepository_Insert(t *testing.T) {
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	repo := NewContactRepository(db)

	msg := &models.ContactMessage{Name: "Al", Email: "al@example.com", Message: "Hello there!"}
	require.NoError(t, repo.InsertContactMessage(context.Background(), msg))
	require.NotEmpty(t, msg.ID)

	var count int64
	require.NoError(t, db.Model(&models.ContactMessage{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func ids(posts []models.BlogPost) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.ID
	}
	return out
}
