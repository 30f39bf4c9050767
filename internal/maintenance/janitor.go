// Package maintenance runs periodic cache housekeeping.
package maintenance

import (
	"context"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"portfolio-site-api/internal/logger"
)

const defaultPurgeSpec = "@every 1m"

// Purger drops cache entries past their retention window.
type Purger interface {
	PurgeExpired() int
}

// Warmer reloads data ahead of reads. Prefetch must be cheap when the data is
// already fresh.
type Warmer interface {
	Prefetch(ctx context.Context)
}

// Janitor evicts expired cache entries on a schedule and keeps warmers warm.
type Janitor struct {
	purgers []Purger
	warmers []Warmer
	cron    *cron.Cron
	spec    string
	log     *zap.Logger
}

// Option customises the Janitor.
type Option func(*Janitor)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(j *Janitor) {
		if c != nil {
			j.cron = c
		}
	}
}

// WithSchedule overrides the cron specification of the purge job.
func WithSchedule(spec string) Option {
	return func(j *Janitor) {
		if spec != "" {
			j.spec = spec
		}
	}
}

// WithWarmers adds warmers run after every purge.
func WithWarmers(warmers ...Warmer) Option {
	return func(j *Janitor) {
		j.warmers = append(j.warmers, warmers...)
	}
}

func NewJanitor(purgers []Purger, opts ...Option) *Janitor {
	j := &Janitor{
		purgers: purgers,
		spec:    defaultPurgeSpec,
		log:     logger.WithModule("maintenance"),
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.cron == nil {
		j.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return j
}

// Start registers the purge job and launches the scheduler.
func (j *Janitor) Start() error {
	if len(j.purgers) == 0 && len(j.warmers) == 0 {
		return nil
	}
	if _, err := j.cron.AddFunc(j.spec, func() {
		j.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	j.cron.Start()
	j.log.Info("cache janitor started", zap.String("schedule", j.spec))
	return nil
}

// Stop halts the scheduler; the returned context is done when running jobs
// have finished.
func (j *Janitor) Stop() context.Context {
	return j.cron.Stop()
}

// RunOnce purges every cache and runs the warmers. It returns the number of
// evicted entries.
func (j *Janitor) RunOnce(ctx context.Context) int {
	total := 0
	for _, p := range j.purgers {
		total += p.PurgeExpired()
	}
	if total > 0 {
		j.log.Debug("evicted expired cache entries", zap.Int("count", total))
	}
	for _, w := range j.warmers {
		w.Prefetch(ctx)
	}
	return total
}
