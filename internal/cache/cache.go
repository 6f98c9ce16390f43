// Package cache is the stale-while-revalidate screen cache. Callers read the
// cache first, fall back to the network, and write the network result back;
// the cache itself never touches the network.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/dvir/roombill-client/internal/store"
)

const (
	prefix = "screen_cache_"

	// DefaultMaxAge is how long an entry is served before readers treat it
	// as absent.
	DefaultMaxAge = 10 * time.Minute
)

type entry struct {
	Data json.RawMessage `json:"data"`
	TS   int64           `json:"ts"` // epoch milliseconds
}

type Cache struct {
	blobs  store.GeneralStore
	logger *slog.Logger
	maxAge time.Duration
	now    func() time.Time
}

type Option func(*Cache)

func WithMaxAge(d time.Duration) Option {
	return func(c *Cache) { c.maxAge = d }
}

func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func New(blobs store.GeneralStore, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{
		blobs:  blobs,
		logger: logger.With(slog.String("component", "screen_cache")),
		maxAge: DefaultMaxAge,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read returns the cached payload for key, or nil if there is no entry, the
// entry is malformed, or it is older than the max age. Read never fails.
func (c *Cache) Read(ctx context.Context, key string) json.RawMessage {
	raw, err := c.blobs.Get(ctx, prefix+key)
	if err != nil || raw == nil {
		return nil
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil || e.Data == nil {
		return nil
	}

	age := c.now().UnixMilli() - e.TS
	if age > c.maxAge.Milliseconds() {
		return nil
	}
	return e.Data
}

// ReadInto unmarshals the cached payload into dest and reports whether a
// fresh entry was found.
func (c *Cache) ReadInto(ctx context.Context, key string, dest any) bool {
	data := c.Read(ctx, key)
	if data == nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug("discarding malformed cache entry", slog.String("key", key))
		return false
	}
	return true
}

// Write stores the payload unconditionally. Writes are best-effort: a failure
// is logged and swallowed so a full or broken store never breaks a screen.
func (c *Cache) Write(ctx context.Context, key string, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		c.logger.Warn("cache write skipped", slog.String("key", key), slog.Any("error", err))
		return
	}
	payload, err := json.Marshal(entry{Data: raw, TS: c.now().UnixMilli()})
	if err != nil {
		c.logger.Warn("cache write skipped", slog.String("key", key), slog.Any("error", err))
		return
	}
	if err := c.blobs.Set(ctx, prefix+key, payload); err != nil {
		c.logger.Warn("cache write failed", slog.String("key", key), slog.Any("error", err))
	}
}

// Clear removes the entry for key. Best-effort.
func (c *Cache) Clear(ctx context.Context, key string) {
	if err := c.blobs.Remove(ctx, prefix+key); err != nil {
		c.logger.Warn("cache clear failed", slog.String("key", key), slog.Any("error", err))
	}
}
