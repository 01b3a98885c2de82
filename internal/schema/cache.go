package schema

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// entry is one cached snapshot plus its staleness bookkeeping.
type entry struct {
	snapshot  Snapshot
	fetchedAt time.Time
	err       error
}

// Fetcher loads a fresh Snapshot for one database. Supplied by the
// caller so Cache stays dialect-agnostic.
type Fetcher func(ctx context.Context, dbName string) (Snapshot, error)

// Cache holds one entry per database, TTL-gated, single-flighted
// against concurrent refreshes for the same key, and able to serve a
// stale snapshot while a refresh is in flight rather than blocking
// every caller on the network round trip.
//
// Concurrent fetches for the same key are deduped with
// golang.org/x/sync/singleflight rather than a hand-rolled done-channel
// map.
type Cache struct {
	fetch Fetcher
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]*entry
	group   singleflight.Group

	stopBg chan struct{}
	bgDone chan struct{}
}

func NewCache(fetch Fetcher, ttl time.Duration) *Cache {
	return &Cache{
		fetch:   fetch,
		ttl:     ttl,
		entries: make(map[string]*entry),
	}
}

func (c *Cache) get(dbName string) (*entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[dbName]
	return e, ok
}

func (c *Cache) set(dbName string, e *entry) {
	c.mu.Lock()
	c.entries[dbName] = e
	c.mu.Unlock()
}

// Get returns the cached snapshot for dbName. A fresh entry is returned
// directly. A stale-but-present entry is also returned immediately, with
// a refresh kicked off in the background (deduplicated via singleflight,
// so concurrent staleness never triggers more than one fetch in flight);
// callers only block on the network round trip when nothing has ever
// been cached for dbName yet.
func (c *Cache) Get(ctx context.Context, dbName string) (Snapshot, error) {
	e, ok := c.get(dbName)
	if !ok {
		return c.refresh(ctx, dbName)
	}
	if time.Since(e.fetchedAt) >= c.ttl {
		c.refreshAsync(dbName)
	}
	return e.snapshot, nil
}

// refreshAsync kicks off a refresh for dbName without blocking the
// caller. Errors are swallowed here: refresh() already falls back to
// the previous snapshot on failure, and there is no caller waiting to
// hand an error to.
func (c *Cache) refreshAsync(dbName string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_, _ = c.refresh(ctx, dbName)
	}()
}

// GetStale returns whatever snapshot is cached, even if expired,
// without blocking on or triggering a refresh; ok is false if nothing
// is cached for dbName (never fetched, or invalidated since).
func (c *Cache) GetStale(dbName string) (Snapshot, bool) {
	if e, ok := c.get(dbName); ok {
		return e.snapshot, true
	}
	return Snapshot{}, false
}

func (c *Cache) refresh(ctx context.Context, dbName string) (Snapshot, error) {
	v, err, _ := c.group.Do(dbName, func() (interface{}, error) {
		snap, err := c.fetch(ctx, dbName)
		if err != nil {
			// Serve-stale-while-revalidate: a failed refresh falls back
			// to whatever was cached before.
			if e, ok := c.get(dbName); ok {
				return e.snapshot, nil
			}
			return Snapshot{}, err
		}
		c.set(dbName, &entry{snapshot: snap, fetchedAt: time.Now()})
		return snap, nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	return v.(Snapshot), nil
}

// Invalidate forces the next Get for dbName to refresh regardless of
// TTL.
func (c *Cache) Invalidate(dbName string) {
	c.mu.Lock()
	delete(c.entries, dbName)
	c.mu.Unlock()
}

// StartBackgroundRefresh launches a ticker loop that refreshes every
// currently-cached database at interval, so that request-path Get
// calls rarely pay a cold fetch. A refresh error for one database never
// kills the loop for the others.
func (c *Cache) StartBackgroundRefresh(interval time.Duration) {
	c.stopBg = make(chan struct{})
	c.bgDone = make(chan struct{})
	go func() {
		defer close(c.bgDone)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.stopBg:
				return
			case <-ticker.C:
				c.refreshAllCached()
			}
		}
	}()
}

func (c *Cache) refreshAllCached() {
	c.mu.RLock()
	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	c.mu.RUnlock()

	for _, name := range names {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, _ = c.refresh(ctx, name)
		cancel()
	}
}

// StopBackgroundRefresh stops the background loop, waiting up to
// deadline for the current tick to finish.
func (c *Cache) StopBackgroundRefresh(deadline time.Duration) {
	if c.stopBg == nil {
		return
	}
	close(c.stopBg)
	select {
	case <-c.bgDone:
	case <-time.After(deadline):
	}
}
