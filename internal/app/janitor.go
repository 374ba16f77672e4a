package app

import (
	"context"
	"fmt"
	"time"

	"github.com/samvad-hq/tradedesk-client/internal/logger"
)

// CacheSweeper evicts expired cache entries.
type CacheSweeper interface {
	ClearExpiredCache() int
}

// Janitor periodically evicts expired cache entries so long-lived clients do
// not accumulate stale data.
type Janitor struct {
	cache    CacheSweeper
	interval time.Duration
	log      logger.Logger
}

// NewJanitor builds a janitor sweeping cache every interval.
func NewJanitor(cache CacheSweeper, interval time.Duration, log logger.Logger) *Janitor {
	if log == nil {
		log = logger.NopLogger()
	}
	return &Janitor{cache: cache, interval: interval, log: log}
}

// Run sweeps on every tick until the context is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	if j == nil || j.cache == nil {
		return fmt.Errorf("janitor is not initialized")
	}
	if j.interval <= 0 {
		return fmt.Errorf("janitor interval must be positive, got %s", j.interval)
	}

	j.log.InfoObj("cache janitor starting", "janitor_state", map[string]any{
		"interval": j.interval.String(),
	})

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.InfoObj("cache janitor exiting", "reason", ctx.Err().Error())
			return nil
		case <-ticker.C:
			j.SweepOnce()
		}
	}
}

// SweepOnce evicts expired entries and returns how many were removed.
func (j *Janitor) SweepOnce() int {
	removed := j.cache.ClearExpiredCache()
	if removed > 0 {
		j.log.DebugObj("cache janitor swept", "janitor_sweep", map[string]any{
			"removed": removed,
		})
	}
	return removed
}
