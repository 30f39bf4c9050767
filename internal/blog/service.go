// Package blog caches blog post lists and single posts and applies admin
// mutations to them.
package blog

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"portfolio-site-api/internal/apperrors"
	"portfolio-site-api/internal/cache"
	"portfolio-site-api/internal/events"
	"portfolio-site-api/internal/logger"
	"portfolio-site-api/internal/metrics"
	"portfolio-site-api/internal/models"
)

const (
	listPrefix = "blog-posts:"
	postPrefix = "blog-post:"
)

// ListKey is the cache key of one list partition.
func ListKey(includeUnpublished bool) string {
	return fmt.Sprintf("%s%t", listPrefix, includeUnpublished)
}

// PostKey is the cache key of a single post.
func PostKey(id string) string {
	return postPrefix + id
}

const (
	MsgCreated = "Blog post created successfully!"
	MsgUpdated = "Blog post updated successfully!"
	MsgDeleted = "Blog post deleted successfully!"

	msgTitleRequired = "Title is required"
)

type Store interface {
	ListPosts(ctx context.Context, includeUnpublished bool) ([]models.BlogPost, error)
	GetPost(ctx context.Context, id string) (*models.BlogPost, error)
	InsertPost(ctx context.Context, in models.BlogPostInsert) (*models.BlogPost, error)
	UpdatePost(ctx context.Context, id string, upd models.BlogPostUpdate) (*models.BlogPost, error)
	DeletePost(ctx context.Context, id string) error
}

type Notifier interface {
	NotifySuccess(message string)
	NotifyError(message string)
}

type Announcer interface {
	Announce(ctx context.Context, inv events.Invalidation) error
}

type Service struct {
	store    Store
	lists    *cache.QueryCache[[]models.BlogPost]
	posts    *cache.QueryCache[*models.BlogPost]
	notifier Notifier
	announce Announcer
	log      *zap.Logger
}

// NewService builds the blog service. notifier and announcer may be nil.
func NewService(store Store, policy cache.Policy, notifier Notifier, announcer Announcer) *Service {
	return &Service{
		store:    store,
		lists:    cache.NewQueryCache[[]models.BlogPost]("blog-posts", policy),
		posts:    cache.NewQueryCache[*models.BlogPost]("blog-post", policy),
		notifier: notifier,
		announce: announcer,
		log:      logger.WithModule("blog"),
	}
}

func (s *Service) Lists() *cache.QueryCache[[]models.BlogPost] { return s.lists }
func (s *Service) Posts() *cache.QueryCache[*models.BlogPost]  { return s.posts }

// List returns posts newest first. Drafts are only included when asked for.
func (s *Service) List(ctx context.Context, includeUnpublished bool) cache.Snapshot[[]models.BlogPost] {
	return s.lists.Get(ctx, ListKey(includeUnpublished), func(ctx context.Context) ([]models.BlogPost, error) {
		return s.store.ListPosts(ctx, includeUnpublished)
	})
}

// Get returns one post. A missing row is a nil Value, not an error.
func (s *Service) Get(ctx context.Context, id string) cache.Snapshot[*models.BlogPost] {
	return s.posts.Get(ctx, PostKey(id), func(ctx context.Context) (*models.BlogPost, error) {
		return s.store.GetPost(ctx, id)
	})
}

// Stats counts posts from the full list partition.
func (s *Service) Stats(ctx context.Context) (models.BlogStats, error) {
	snap := s.List(ctx, true)
	if snap.Err != nil && !snap.Found {
		return models.BlogStats{}, snap.Err
	}
	stats := models.BlogStats{Total: len(snap.Value)}
	for _, p := range snap.Value {
		if p.Published {
			stats.Published++
		}
	}
	stats.Drafts = stats.Total - stats.Published
	return stats, nil
}

func (s *Service) Create(ctx context.Context, in models.BlogPostInsert) (*models.BlogPost, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, apperrors.FieldValidation("title", msgTitleRequired)
	}

	post, err := s.store.InsertPost(ctx, in)
	if err != nil {
		return nil, s.failed(err, "create", "Failed to create blog post: ")
	}

	s.lists.InvalidatePrefix(listPrefix)
	s.succeeded(ctx, "create", MsgCreated, events.Invalidation{
		Cache:    events.CacheBlog,
		Prefixes: []string{listPrefix},
	})
	return post, nil
}

// Update applies a partial update. Only non-nil fields are written.
func (s *Service) Update(ctx context.Context, id string, upd models.BlogPostUpdate) (*models.BlogPost, error) {
	if upd.Title != nil {
		title := strings.TrimSpace(*upd.Title)
		if title == "" {
			return nil, apperrors.FieldValidation("title", msgTitleRequired)
		}
		upd.Title = &title
	}

	post, err := s.store.UpdatePost(ctx, id, upd)
	if err != nil {
		return nil, s.failed(err, "update", "Failed to update blog post: ")
	}

	s.lists.InvalidatePrefix(listPrefix)
	s.posts.Invalidate(PostKey(id))
	s.succeeded(ctx, "update", MsgUpdated, events.Invalidation{
		Cache:    events.CacheBlog,
		Keys:     []string{PostKey(id)},
		Prefixes: []string{listPrefix},
	})
	return post, nil
}

// TogglePublished flips the published flag of the stored post.
func (s *Service) TogglePublished(ctx context.Context, id string) (*models.BlogPost, error) {
	current, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, s.failed(err, "update", "Failed to update blog post: ")
	}
	if current == nil {
		return nil, s.failed(fmt.Errorf("blog post %q: %w", id, apperrors.ErrNotFound), "update", "Failed to update blog post: ")
	}
	published := !current.Published
	return s.Update(ctx, id, models.BlogPostUpdate{Published: &published})
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeletePost(ctx, id); err != nil {
		return s.failed(err, "delete", "Failed to delete blog post: ")
	}

	s.lists.InvalidatePrefix(listPrefix)
	s.posts.Remove(PostKey(id))
	s.succeeded(ctx, "delete", MsgDeleted, events.Invalidation{
		Cache:    events.CacheBlog,
		Prefixes: []string{listPrefix},
		Removed:  []string{PostKey(id)},
	})
	return nil
}

func (s *Service) failed(err error, action, prefix string) error {
	appErr := apperrors.RemoteWrite(err)
	metrics.Mutations.WithLabelValues("blog", action, "failure").Inc()
	s.log.Warn("blog mutation failed", zap.String("action", action), zap.Error(err))
	if s.notifier != nil {
		s.notifier.NotifyError(prefix + appErr.Message)
	}
	return appErr
}

func (s *Service) succeeded(ctx context.Context, action, message string, inv events.Invalidation) {
	metrics.Mutations.WithLabelValues("blog", action, "success").Inc()
	if s.announce != nil {
		if err := s.announce.Announce(ctx, inv); err != nil {
			s.log.Warn("announcing blog invalidation", zap.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.NotifySuccess(message)
	}
}

// Invalidate, InvalidatePrefix and Remove route keys to the list or post cache
// so the service can receive remote invalidations as one target.

func (s *Service) Invalidate(key string) {
	if strings.HasPrefix(key, listPrefix) {
		s.lists.Invalidate(key)
		return
	}
	s.posts.Invalidate(key)
}

func (s *Service) InvalidatePrefix(prefix string) {
	if strings.HasPrefix(prefix, listPrefix) || strings.HasPrefix(listPrefix, prefix) {
		s.lists.InvalidatePrefix(prefix)
	}
	if strings.HasPrefix(prefix, postPrefix) || strings.HasPrefix(postPrefix, prefix) {
		s.posts.InvalidatePrefix(prefix)
	}
}

func (s *Service) Remove(key string) {
	if strings.HasPrefix(key, listPrefix) {
		s.lists.Remove(key)
		return
	}
	s.posts.Remove(key)
}

// PurgeExpired drops entries of both caches past retention.
func (s *Service) PurgeExpired() int {
	return s.lists.PurgeExpired() + s.posts.PurgeExpired()
}
