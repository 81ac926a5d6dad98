package cache

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

const DefaultMaxDuplicateStreak = 10

// Source is the retrying fetch path; ok=false means the backend is exhausted.
type Source interface {
	FetchWithRetry(ctx context.Context, url string) (string, bool)
}

// Cache is a FIFO of prefetched facts plus the session's seen-set.
// Every queued fact is already in the seen-set and the seen-set never shrinks.
type Cache struct {
	mu    sync.Mutex
	queue []string
	seen  map[string]struct{}

	source             Source
	url                string
	maxDuplicateStreak int
	logger             *slog.Logger

	refills singleflight.Group
	pending atomic.Bool
	wg      sync.WaitGroup
}

func New(source Source, url string, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		seen:               make(map[string]struct{}),
		source:             source,
		url:                url,
		maxDuplicateStreak: DefaultMaxDuplicateStreak,
		logger:             logger,
	}
}

// Push queues a fact unless it was seen before. It reports whether the fact
// was queued.
func (c *Cache) Push(fact string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[fact]; ok {
		return false
	}
	c.seen[fact] = struct{}{}
	c.queue = append(c.queue, fact)
	return true
}

// Consume pops the oldest queued fact without blocking.
func (c *Cache) Consume() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.queue) == 0 {
		return "", false
	}
	f := c.queue[0]
	c.queue[0] = ""
	c.queue = c.queue[1:]
	return f, true
}

// MarkSeen records a fact that reached the screen without passing through
// the queue.
func (c *Cache) MarkSeen(fact string) {
	c.mu.Lock()
	c.seen[fact] = struct{}{}
	c.mu.Unlock()
}

// Claim marks a fact seen and reports whether it was new. A false result
// means a refill already queued it or it was shown before.
func (c *Cache) Claim(fact string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[fact]; ok {
		return false
	}
	c.seen[fact] = struct{}{}
	return true
}

func (c *Cache) Seen(fact string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.seen[fact]
	return ok
}

func (c *Cache) SeenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *Cache) Snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.queue...)
}

// Refill fetches sequentially until the queue holds target facts. It stops
// early when the source is exhausted, the context ends, or the source keeps
// returning facts that were already seen.
func (c *Cache) Refill(ctx context.Context, target int) int {
	added, dupes := 0, 0
	for c.Len() < target {
		if ctx.Err() != nil {
			return added
		}
		text, ok := c.source.FetchWithRetry(ctx, c.url)
		if !ok {
			c.logger.Debug("refill stopped, source exhausted", "added", added)
			return added
		}
		if !c.Push(text) {
			dupes++
			if dupes >= c.maxDuplicateStreak {
				c.logger.Debug("refill stopped, duplicate streak", "added", added, "dupes", dupes)
				return added
			}
			continue
		}
		dupes = 0
		added++
	}
	return added
}

// RefillAsync starts a background refill and returns immediately. Triggers
// that arrive while a refill is running join it; a trigger that joins too
// late to be seen by the running pass gets another pass.
func (c *Cache) RefillAsync(ctx context.Context, target int) {
	c.pending.Store(true)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for c.pending.Load() && ctx.Err() == nil {
			c.refills.Do("refill", func() (any, error) {
				added := 0
				for c.pending.Swap(false) {
					added += c.Refill(ctx, target)
				}
				c.logger.Debug("refill finished", "added", added, "queued", c.Len())
				return added, nil
			})
		}
	}()
}

// Wait blocks until background refills have returned.
func (c *Cache) Wait() {
	c.wg.Wait()
}
