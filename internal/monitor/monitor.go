// Package monitor keeps a polled, multi-viewer snapshot of access records
// consistent with the backing store. Writes are optimistic: the guarded
// store write happens first, the local cache is patched on success, and a
// full refresh reconciles afterwards. Poll results always replace the
// cache wholesale, bounding staleness to one polling interval.
package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"premisewatch/internal/access"
	"premisewatch/internal/metrics"
)

// Controller owns one view's cache and its polling timer. Each view (live
// monitoring, dashboard) constructs its own Controller and tears it down
// with Stop; there is no shared timer registry.
type Controller struct {
	svc      *access.Service
	view     string
	interval time.Duration
	limit    int
	logger   *log.Logger

	mu      sync.RWMutex
	records []access.AccessRecord

	cancel context.CancelFunc
	done   chan struct{}
}

// Config holds the parameters for New.
type Config struct {
	// View names the owning screen for logs and metrics.
	View string
	// Interval is the polling cadence. Defaults to 10s.
	Interval time.Duration
	// Limit caps how many records a refresh fetches. Defaults to 50.
	Limit int
}

// New creates a controller but does not start polling. Call Start to begin
// the background loop.
func New(svc *access.Service, cfg Config, logger *log.Logger) *Controller {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	limit := cfg.Limit
	if limit <= 0 {
		limit = 50
	}
	view := cfg.View
	if view == "" {
		view = "live"
	}
	return &Controller{
		svc:      svc,
		view:     view,
		interval: interval,
		limit:    limit,
		logger:   logger,
		done:     make(chan struct{}),
	}
}

// Start begins the polling loop: an immediate refresh, then one per
// interval. The loop exits when ctx is cancelled or Stop is called. A
// failed tick is logged and retried on the next tick; it never cancels
// the timer.
func (c *Controller) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.loop(ctx)
	c.logger.Printf("%s poller started (interval=%s, limit=%d)", c.view, c.interval, c.limit)
}

// Stop signals the poller to exit and waits for it to finish.
func (c *Controller) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *Controller) loop(ctx context.Context) {
	defer close(c.done)

	if err := c.Refresh(ctx); err != nil {
		c.logger.Printf("%s initial refresh failed: %v", c.view, err)
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Printf("%s refresh failed: %v", c.view, err)
			}
		}
	}
}

// Refresh re-fetches the full record set and replaces the cache wholesale.
// The latest refresh wins over any optimistic patch it races with.
func (c *Controller) Refresh(ctx context.Context) error {
	records, err := c.svc.Records(ctx, c.limit)
	if err != nil {
		metrics.Refreshes.WithLabelValues(c.view, "error").Inc()
		return err
	}
	c.mu.Lock()
	c.records = records
	c.mu.Unlock()
	metrics.Refreshes.WithLabelValues(c.view, "ok").Inc()
	return nil
}

// Records returns a copy of the cached snapshot.
func (c *Controller) Records() []access.AccessRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]access.AccessRecord, len(c.records))
	copy(out, c.records)
	return out
}

// Stats folds the cached snapshot into dashboard statistics.
func (c *Controller) Stats(now time.Time) access.DashboardStats {
	return access.ComputeStats(c.Records(), now)
}

// Zones groups the cached snapshot into per-zone occupancy.
func (c *Controller) Zones(now time.Time) map[string][]access.AccessRecord {
	return access.ZoneOccupancy(c.Records(), now, c.svc.Window())
}

// Extend widens a record's window through the guarded store write, then
// patches the cache optimistically.
func (c *Controller) Extend(ctx context.Context, id string, hours, minutes int) error {
	delta, err := c.svc.Extend(ctx, id, hours, minutes)
	return c.finish(ctx, err, id, func(rec *access.AccessRecord) {
		rec.EntryTime = rec.EntryTime.Add(delta)
	})
}

// Revoke revokes a record and patches the cache.
func (c *Controller) Revoke(ctx context.Context, id string) error {
	return c.finish(ctx, c.svc.Revoke(ctx, id), id, func(rec *access.AccessRecord) {
		rec.Status = access.StatusRevoked
	})
}

// Reinstate restores a Denied or Revoked record and patches the cache.
func (c *Controller) Reinstate(ctx context.Context, id string) error {
	return c.finish(ctx, c.svc.Reinstate(ctx, id), id, func(rec *access.AccessRecord) {
		rec.Status = access.StatusGranted
	})
}

// CheckOut closes a record and patches the cache.
func (c *Controller) CheckOut(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return c.finish(ctx, c.svc.CheckOut(ctx, id), id, func(rec *access.AccessRecord) {
		rec.Status = access.StatusCheckedOut
		rec.ExitTime = &now
	})
}

// finish completes a mutation per the consistency contract: a rejected
// guard forces an immediate resync (the optimistic copy must never
// survive a failed write); a successful write is applied locally and then
// reconciled with a full refresh.
func (c *Controller) finish(ctx context.Context, err error, id string, patch func(*access.AccessRecord)) error {
	if err != nil {
		if errors.Is(err, access.ErrPreconditionFailed) {
			metrics.Conflicts.Inc()
			if rerr := c.Refresh(ctx); rerr != nil {
				c.logger.Printf("%s resync after conflict failed: %v", c.view, rerr)
			}
		}
		return err
	}

	c.mu.Lock()
	for i := range c.records {
		if c.records[i].ID == id {
			patch(&c.records[i])
			break
		}
	}
	c.mu.Unlock()

	// Reconcile other fields that may have moved server-side meanwhile.
	if rerr := c.Refresh(ctx); rerr != nil {
		c.logger.Printf("%s reconcile refresh failed: %v", c.view, rerr)
	}
	return nil
}
