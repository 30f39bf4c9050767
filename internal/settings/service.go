// Package settings serves the site settings sections (hero, about, contact,
// social, theme) through a read-through query cache.
package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"portfolio-site-api/internal/apperrors"
	"portfolio-site-api/internal/cache"
	"portfolio-site-api/internal/events"
	"portfolio-site-api/internal/logger"
	"portfolio-site-api/internal/metrics"
	"portfolio-site-api/internal/models"
)

// AllKey caches every section in one JSON object.
const AllKey = "all"

const (
	MsgSaved      = "Settings saved successfully!"
	msgSaveFailed = "Failed to save settings: "
)

// Store is the persistence the service reads from and writes to.
type Store interface {
	GetSetting(ctx context.Context, key string) (json.RawMessage, error)
	ListSettings(ctx context.Context) ([]models.SiteSetting, error)
	UpdateSetting(ctx context.Context, key string, value json.RawMessage) error
}

// Notifier delivers user-visible mutation outcomes.
type Notifier interface {
	NotifySuccess(message string)
	NotifyError(message string)
}

// Announcer tells other instances which entries to drop.
type Announcer interface {
	Announce(ctx context.Context, inv events.Invalidation) error
}

type Service struct {
	store    Store
	cache    *cache.QueryCache[json.RawMessage]
	notifier Notifier
	announce Announcer
	log      *zap.Logger

	prefetch prefetchState
}

// NewService builds the settings service. notifier and announcer may be nil.
func NewService(store Store, policy cache.Policy, notifier Notifier, announcer Announcer) *Service {
	return &Service{
		store:    store,
		cache:    cache.NewQueryCache[json.RawMessage](events.CacheSettings, policy),
		notifier: notifier,
		announce: announcer,
		log:      logger.WithModule("settings"),
	}
}

// Cache exposes the underlying cache for subscriptions, purging and remote
// invalidation.
func (s *Service) Cache() *cache.QueryCache[json.RawMessage] {
	return s.cache
}

// Get returns the value of one section. A nil Value with Found set means the
// row does not exist.
func (s *Service) Get(ctx context.Context, key string) cache.Snapshot[json.RawMessage] {
	if !models.SectionKey(key).Valid() {
		return cache.Snapshot[json.RawMessage]{Err: unknownSection(key)}
	}
	return s.cache.Get(ctx, key, func(ctx context.Context) (json.RawMessage, error) {
		return s.store.GetSetting(ctx, key)
	})
}

// All returns every section as one JSON object keyed by section name.
func (s *Service) All(ctx context.Context) cache.Snapshot[json.RawMessage] {
	return s.cache.Get(ctx, AllKey, func(ctx context.Context) (json.RawMessage, error) {
		rows, err := s.store.ListSettings(ctx)
		if err != nil {
			return nil, err
		}
		return combine(rows)
	})
}

// Update replaces the value of a section. The cache is only touched after the
// store confirms the write.
func (s *Service) Update(ctx context.Context, key string, value json.RawMessage) error {
	if err := validate(key, value); err != nil {
		return err
	}

	if err := s.store.UpdateSetting(ctx, key, value); err != nil {
		appErr := apperrors.RemoteWrite(err)
		metrics.Mutations.WithLabelValues("settings", "update", "failure").Inc()
		s.log.Warn("settings update failed", zap.String("key", key), zap.Error(err))
		s.notifyError(msgSaveFailed + appErr.Message)
		return appErr
	}

	s.cache.Invalidate(key)
	s.cache.Invalidate(AllKey)
	metrics.Mutations.WithLabelValues("settings", "update", "success").Inc()
	s.log.Info("settings updated", zap.String("key", key))

	if s.announce != nil {
		inv := events.Invalidation{Cache: events.CacheSettings, Keys: []string{key, AllKey}}
		if err := s.announce.Announce(ctx, inv); err != nil {
			s.log.Warn("announcing settings invalidation", zap.Error(err))
		}
	}
	s.notifySuccess(MsgSaved)
	return nil
}

func (s *Service) notifySuccess(msg string) {
	if s.notifier != nil {
		s.notifier.NotifySuccess(msg)
	}
}

func (s *Service) notifyError(msg string) {
	if s.notifier != nil {
		s.notifier.NotifyError(msg)
	}
}

// Decode unmarshals a cached section into its typed form. A nil value decodes
// to the zero T.
func Decode[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decoding settings: %w", err)
	}
	return out, nil
}

func combine(rows []models.SiteSetting) (json.RawMessage, error) {
	all := make(map[string]json.RawMessage, len(rows))
	for _, row := range rows {
		all[row.Key] = json.RawMessage(row.Value)
	}
	data, err := json.Marshal(all)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	return data, nil
}

var hslPattern = regexp.MustCompile(`^\d{1,3}(\.\d+)? \d{1,3}(\.\d+)?% \d{1,3}(\.\d+)?%$`)

const msgHSL = `Color must be an HSL value like "16 90% 50%"`

func validate(key string, value json.RawMessage) error {
	if !models.SectionKey(key).Valid() {
		return unknownSection(key)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(value, &doc); err != nil || doc == nil {
		return apperrors.FieldValidation("value", "Settings value must be a JSON object")
	}
	if models.SectionKey(key) != models.SectionTheme {
		return nil
	}

	theme, err := Decode[models.ThemeSettings](value)
	if err != nil {
		return apperrors.FieldValidation("value", "Theme colors must be strings")
	}
	fields := map[string]string{}
	if theme.PrimaryColor != "" && !hslPattern.MatchString(theme.PrimaryColor) {
		fields["primaryColor"] = msgHSL
	}
	if theme.AccentColor != "" && !hslPattern.MatchString(theme.AccentColor) {
		fields["accentColor"] = msgHSL
	}
	if len(fields) > 0 {
		return apperrors.Validation(msgHSL, fields)
	}
	return nil
}

func unknownSection(key string) error {
	return apperrors.FieldValidation("key", fmt.Sprintf("Unknown settings section %q", key))
}

// PurgeExpired drops sections past retention.
func (s *Service) PurgeExpired() int {
	return s.cache.PurgeExpired()
}
