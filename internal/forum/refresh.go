package forum

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/zetareticula/forumsync/internal/cache"
	"github.com/zetareticula/forumsync/internal/model"
)

// ScheduleRefresh queues keys for the refresher. Keys that are no longer stale
// or failed when their turn comes are dropped.
func (c *Client) ScheduleRefresh(keys ...cache.Key) {
	c.mu.Lock()
	for _, k := range keys {
		c.toRefresh[k] = struct{}{}
	}
	n := len(c.toRefresh)
	c.mu.Unlock()
	c.metrics.pending(n)
}

// Pending returns the keys awaiting refresh in string order.
func (c *Client) Pending() []cache.Key {
	c.mu.Lock()
	keys := make([]cache.Key, 0, len(c.toRefresh))
	for k := range c.toRefresh {
		keys = append(keys, k)
	}
	c.mu.Unlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// RefreshStale queues every stale key and runs one refresh pass.
func (c *Client) RefreshStale(ctx context.Context) error {
	c.ScheduleRefresh(c.store.Stale()...)
	return c.refreshPending(ctx)
}

func (c *Client) done(key cache.Key) {
	c.mu.Lock()
	delete(c.toRefresh, key)
	n := len(c.toRefresh)
	c.mu.Unlock()
	c.metrics.pending(n)
}

// refreshPending refetches the queued keys that are stale or failed. Keys that
// fail to refetch stay queued, except for entities the remote no longer has.
func (c *Client) refreshPending(ctx context.Context) error {
	var errs []error
	for _, key := range c.Pending() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch c.store.Status(key) {
		case cache.StatusStale, cache.StatusError:
			if _, err := c.refetch(ctx, key); err != nil {
				if !model.IsNotFound(err) {
					errs = append(errs, fmt.Errorf("refresh %s: %w", key, err))
					continue
				}
			}
		}
		c.done(key)
	}
	return errors.Join(errs...)
}

// refreshLoop refetches scheduled keys
func (c *Client) refreshLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			if err := c.refreshPending(c.ctx); err != nil && c.ctx.Err() == nil {
				c.log.V(1).Info("refresh pass incomplete", "error", err.Error())
			}
		}
	}
}

// collectStatistics gathers metrics
func (c *Client) collectStatistics() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.statisticsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			counts := c.store.Counts()
			c.metrics.sample(counts)
			c.log.Info("cache statistics",
				"fresh", counts[cache.StatusFresh],
				"stale", counts[cache.StatusStale],
				"error", counts[cache.StatusError],
				"pending", len(c.Pending()))
		}
	}
}
