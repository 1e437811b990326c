// Package retention expires old channel messages on a cron schedule. This is
// a maintenance sweep over the store, never part of the request path.
package retention

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"github.com/chathub/internal/logger"
	"github.com/chathub/internal/store"
)

// DefaultCron runs the sweep hourly.
const DefaultCron = "0 * * * *"

// DefaultMaxAge matches the product rule: messages older than a day are gone.
const DefaultMaxAge = 24 * time.Hour

// Start validates cronExpr, runs one sweep immediately, and schedules
// further sweeps until ctx is canceled.
func Start(ctx context.Context, s *store.Store, cronExpr string, maxAge time.Duration) error {
	if cronExpr == "" {
		cronExpr = DefaultCron
	}
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if !gronx.IsValid(cronExpr) {
		return fmt.Errorf("invalid retention cron expression: %s", cronExpr)
	}

	runOnce(ctx, s, maxAge)
	go runScheduler(ctx, s, cronExpr, maxAge)
	logger.Infof("retention scheduler started cron=%q max_age=%s", cronExpr, maxAge)
	return nil
}

// runScheduler sleeps until the next cron tick and sweeps. gronx computes
// the tick, which keeps full cron syntax available in config.
func runScheduler(ctx context.Context, s *store.Store, cronExpr string, maxAge time.Duration) {
	for {
		next, err := gronx.NextTickAfter(cronExpr, time.Now().UTC(), false)
		if err != nil {
			logger.Errorf("retention next tick cron=%q: %v", cronExpr, err)
			select {
			case <-time.After(30 * time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}
		select {
		case <-time.After(time.Until(next)):
			runOnce(ctx, s, maxAge)
		case <-ctx.Done():
			logger.Info("retention scheduler stopping")
			return
		}
	}
}

func runOnce(ctx context.Context, s *store.Store, maxAge time.Duration) {
	removed, err := s.ExpireOldMessages(ctx, maxAge)
	if err != nil {
		logger.Errorf("retention sweep: %v", err)
		return
	}
	if removed > 0 {
		logger.Infof("retention sweep removed %d messages", removed)
	}
}
