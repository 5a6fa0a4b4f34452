// Package cache holds the in-memory caches used for generated content.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is a string keyed store of values of type T.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Len() int
}

// Sweeper is implemented by caches that can drop expired entries.
type Sweeper interface {
	Sweep() int
}

// Janitor periodically sweeps registered caches until its context ends.
type Janitor struct {
	logger   *slog.Logger
	interval time.Duration
	caches   map[string]Sweeper
}

func NewJanitor(logger *slog.Logger, interval time.Duration) *Janitor {
	return &Janitor{
		logger:   logger,
		interval: interval,
		caches:   make(map[string]Sweeper),
	}
}

// Register must be called before Run.
func (j *Janitor) Register(name string, c Sweeper) {
	j.caches[name] = c
}

// Run blocks until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	for name, c := range j.caches {
		if n := c.Sweep(); n > 0 {
			j.logger.DebugContext(ctx, "swept cache", "cache", name, "removed", n)
		}
	}
}
