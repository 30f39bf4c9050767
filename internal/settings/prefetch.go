package settings

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

type prefetchState struct {
	mu   sync.Mutex
	keys []string
}

// Prefetch loads every section in one round trip and seeds the cache with each
// section and the combined entry. It does nothing while a previous successful
// prefetch is still fresh. Failures are logged; reads then fetch on demand.
// Rows read before a concurrent update are not seeded.
func (s *Service) Prefetch(ctx context.Context) {
	s.prefetch.mu.Lock()
	defer s.prefetch.mu.Unlock()

	if s.prefetchedFresh() {
		s.log.Debug("settings prefetch skipped, cache is fresh")
		return
	}

	mark := s.cache.Mark()
	rows, err := s.store.ListSettings(ctx)
	if err != nil {
		s.log.Warn("settings prefetch failed", zap.Error(err))
		return
	}
	all, err := combine(rows)
	if err != nil {
		s.log.Warn("settings prefetch failed", zap.Error(err))
		return
	}

	keys := make([]string, 0, len(rows)+1)
	for _, row := range rows {
		if !s.cache.SetIfUnchanged(row.Key, json.RawMessage(row.Value), mark) {
			s.log.Debug("settings prefetch discarded, settings changed during read")
			return
		}
		keys = append(keys, row.Key)
	}
	if !s.cache.SetIfUnchanged(AllKey, all, mark) {
		s.log.Debug("settings prefetch discarded, settings changed during read")
		return
	}
	s.prefetch.keys = append(keys, AllKey)
	s.log.Info("settings prefetched", zap.Int("sections", len(rows)))
}

func (s *Service) prefetchedFresh() bool {
	if len(s.prefetch.keys) == 0 {
		return false
	}
	for _, key := range s.prefetch.keys {
		if !s.cache.Fresh(key) {
			return false
		}
	}
	return true
}
