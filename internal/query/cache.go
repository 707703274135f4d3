// Package query caches list pages and single entities read from the API and
// keeps mounted entries fresh: stale-while-revalidate reads, per-tag polling,
// retries on transient failures and invalidation by tag.
package query

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// ErrClosed is returned by reads after Close.
var ErrClosed = errors.New("query cache closed")

// Fetcher loads the data of one entry.
type Fetcher func(ctx context.Context) (any, error)

// Snapshot is a consistent view of one entry.
type Snapshot struct {
	Key       Key
	Data      any
	Err       error
	State     State
	FetchedAt time.Time
	// IsLoading is true while the first fetch of an entry without data runs.
	IsLoading bool
	// IsFetching is true while any fetch of the entry runs.
	IsFetching bool
	IsError    bool
}

type entry struct {
	key       Key
	fetch     Fetcher
	data      any
	hasData   bool
	err       error
	fetchedAt time.Time
	fetching  bool
	// stale is set by Invalidate; gen counts invalidations so a fetch that
	// started before one does not mark its result fresh.
	stale bool
	gen   uint64

	subs     map[uint64]func(Snapshot)
	stopPoll context.CancelFunc
	notifyMu sync.Mutex
}

// Cache is safe for concurrent use. Entries with at least one subscriber are
// pinned; the rest live in a bounded LRU.
type Cache struct {
	opts options

	mu       sync.Mutex
	active   map[Key]*entry
	inactive *lru.Cache[Key, *entry]
	nextSub  uint64
	closed   bool

	group  singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a cache. Call Close to stop background work.
func New(opts ...Option) (*Cache, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	inactive, err := lru.New[Key, *entry](o.size)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Cache{
		opts:     o,
		active:   make(map[Key]*entry),
		inactive: inactive,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Fetch reads key. Fresh data is returned without a request. Stale data is
// returned immediately while a background refetch runs. Without data the
// call waits for the fetch, including retries.
func (c *Cache) Fetch(ctx context.Context, key Key, fetch Fetcher) (Snapshot, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Snapshot{Key: key}, ErrClosed
	}
	e := c.lookup(key, fetch)
	hasData, stale := e.hasData, c.isStale(e)
	snap := c.snapshot(e)
	c.mu.Unlock()

	switch {
	case hasData && !stale:
		return snap, nil
	case hasData:
		c.revalidate(e)
		return snap, nil
	}
	return c.await(ctx, e)
}

// Refetch fetches key now regardless of staleness and waits for the result.
func (c *Cache) Refetch(ctx context.Context, key Key, fetch Fetcher) (Snapshot, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return Snapshot{Key: key}, ErrClosed
	}
	e := c.lookup(key, fetch)
	c.mu.Unlock()
	return c.await(ctx, e)
}

// Peek returns the cached view of key without fetching.
func (c *Cache) Peek(key Key) (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.active[key]
	if !ok {
		e, ok = c.inactive.Peek(key)
	}
	if !ok {
		return Snapshot{Key: key}, false
	}
	return c.snapshot(e), true
}

// Subscription is a mounted reader of one entry.
type Subscription struct {
	cache *Cache
	entry *entry
	id    uint64
	once  sync.Once
}

// Subscribe mounts fn on key. fn receives the current view immediately and
// again on every change; it may be called from background goroutines and
// must not subscribe to or wait on a read of the same key. A missing or
// stale entry is fetched in the background, and list entries of a tag with a
// poll interval are refetched on that interval until the last subscriber
// closes.
func (c *Cache) Subscribe(key Key, fetch Fetcher, fn func(Snapshot)) *Subscription {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		fn(Snapshot{Key: key, Err: ErrClosed, State: Error, IsError: true})
		return &Subscription{}
	}
	e := c.lookup(key, fetch)
	if _, ok := c.active[key]; !ok {
		c.inactive.Remove(key)
		c.active[key] = e
	}
	c.nextSub++
	id := c.nextSub
	if e.subs == nil {
		e.subs = make(map[uint64]func(Snapshot))
	}
	e.subs[id] = fn
	if every := c.opts.pollIntervals[key.Tag]; every > 0 && !key.IsDetail() && e.stopPoll == nil {
		ctx, cancel := context.WithCancel(c.ctx)
		e.stopPoll = cancel
		c.wg.Add(1)
		go c.poll(ctx, e, every)
	}
	needFetch := !e.fetching && (!e.hasData || c.isStale(e))
	c.mu.Unlock()

	e.notifyMu.Lock()
	c.mu.Lock()
	snap := c.snapshot(e)
	c.mu.Unlock()
	fn(snap)
	e.notifyMu.Unlock()

	if needFetch {
		c.revalidate(e)
	}
	return &Subscription{cache: c, entry: e, id: id}
}

// Close unmounts the subscriber. It is safe to call more than once.
func (s *Subscription) Close() {
	if s == nil || s.cache == nil {
		return
	}
	s.once.Do(func() { s.cache.unsubscribe(s.entry, s.id) })
}

// Refetch forces a fetch of the subscribed entry and waits for it.
func (s *Subscription) Refetch(ctx context.Context) (Snapshot, error) {
	if s == nil || s.cache == nil {
		return Snapshot{}, ErrClosed
	}
	return s.cache.await(ctx, s.entry)
}

// Snapshot returns the current view of the subscribed entry.
func (s *Subscription) Snapshot() Snapshot {
	if s == nil || s.cache == nil {
		return Snapshot{}
	}
	s.cache.mu.Lock()
	defer s.cache.mu.Unlock()
	return s.cache.snapshot(s.entry)
}

func (c *Cache) unsubscribe(e *entry, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(e.subs, id)
	if len(e.subs) > 0 {
		return
	}
	if e.stopPoll != nil {
		e.stopPoll()
		e.stopPoll = nil
	}
	if c.active[e.key] == e {
		delete(c.active, e.key)
		if !c.closed {
			c.inactive.Add(e.key, e)
		}
	}
}

// Invalidate marks every entry of tag stale, whatever its page, size, search
// or id. Mounted entries refetch right away; the rest on their next read.
func (c *Cache) Invalidate(tag string) {
	c.mu.Lock()
	var mounted []*entry
	for key, e := range c.active {
		if key.Tag == tag {
			e.stale = true
			e.gen++
			mounted = append(mounted, e)
		}
	}
	for _, key := range c.inactive.Keys() {
		if key.Tag != tag {
			continue
		}
		if e, ok := c.inactive.Peek(key); ok {
			e.stale = true
			e.gen++
		}
	}
	c.mu.Unlock()

	c.opts.logger.Debug("query cache invalidated", slog.String("tag", tag), slog.Int("mounted", len(mounted)))
	for _, e := range mounted {
		c.revalidate(e)
	}
}

// Refocus refetches every mounted entry, as a client does when its window
// regains focus.
func (c *Cache) Refocus() {
	c.mu.Lock()
	mounted := make([]*entry, 0, len(c.active))
	for _, e := range c.active {
		mounted = append(mounted, e)
	}
	c.mu.Unlock()

	for _, e := range mounted {
		c.revalidate(e)
	}
}

// Len returns the number of cached entries, mounted or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.active) + c.inactive.Len()
}

// Close stops pollers and cancels fetches in flight, then waits for
// background goroutines to exit.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, e := range c.active {
		if e.stopPoll != nil {
			e.stopPoll()
			e.stopPoll = nil
		}
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// lookup returns the entry of key, creating it if needed. A non-nil fetch
// replaces the stored one. Callers hold c.mu.
func (c *Cache) lookup(key Key, fetch Fetcher) *entry {
	e, ok := c.active[key]
	if !ok {
		e, ok = c.inactive.Get(key)
	}
	if !ok {
		e = &entry{key: key}
		c.inactive.Add(key, e)
	}
	if fetch != nil {
		e.fetch = fetch
	}
	return e
}

func (c *Cache) staleTime(key Key) time.Duration {
	if key.IsDetail() {
		return c.opts.detailStaleTime
	}
	return c.opts.staleTime
}

// isStale reports whether e must be refetched on the next read. Callers hold c.mu.
func (c *Cache) isStale(e *entry) bool {
	if !e.hasData || e.stale {
		return true
	}
	return c.opts.now().Sub(e.fetchedAt) >= c.staleTime(e.key)
}

// snapshot builds the view of e. Callers hold c.mu.
func (c *Cache) snapshot(e *entry) Snapshot {
	s := Snapshot{
		Key:        e.key,
		Data:       e.data,
		Err:        e.err,
		FetchedAt:  e.fetchedAt,
		IsFetching: e.fetching,
	}
	switch {
	case e.err != nil && !e.fetching:
		s.State = Error
	case !e.hasData && e.fetching:
		s.State = Loading
	case !e.hasData:
		s.State = Idle
	case c.isStale(e):
		s.State = Stale
	default:
		s.State = Fresh
	}
	s.IsLoading = s.State == Loading
	s.IsError = s.State == Error
	return s
}

// notify delivers the current view of e to its subscribers, one change at a time.
func (c *Cache) notify(e *entry) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()

	c.mu.Lock()
	snap := c.snapshot(e)
	subs := make([]func(Snapshot), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// revalidate fetches e in the background.
func (c *Cache) revalidate(e *entry) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		if _, err := c.await(c.ctx, e); err != nil && !errors.Is(err, context.Canceled) {
			c.opts.logger.Debug("background refetch failed",
				slog.String("key", e.key.String()),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// await joins the fetch of e in flight or starts one. The fetch itself runs
// on the cache context, so a caller giving up does not cancel it for others.
func (c *Cache) await(ctx context.Context, e *entry) (Snapshot, error) {
	ch := c.group.DoChan(e.key.String(), func() (any, error) {
		return nil, c.run(e)
	})
	select {
	case res := <-ch:
		c.mu.Lock()
		snap := c.snapshot(e)
		c.mu.Unlock()
		return snap, res.Err
	case <-ctx.Done():
		c.mu.Lock()
		snap := c.snapshot(e)
		c.mu.Unlock()
		return snap, ctx.Err()
	}
}

// run fetches e until a result is not overtaken by an invalidation while
// subscribers are mounted.
func (c *Cache) run(e *entry) error {
	for {
		c.mu.Lock()
		if e.fetch == nil {
			c.mu.Unlock()
			return errors.New("query " + e.key.String() + " has no fetcher")
		}
		e.fetching = true
		fetch, gen := e.fetch, e.gen
		c.mu.Unlock()
		c.notify(e)

		data, err := c.withRetry(c.ctx, e.key, fetch)

		c.mu.Lock()
		e.fetching = false
		again := false
		if err == nil {
			e.data, e.hasData, e.err = data, true, nil
			e.fetchedAt = c.opts.now()
			if e.gen == gen {
				e.stale = false
			} else {
				again = len(e.subs) > 0 && !c.closed
			}
		} else {
			e.err = err
		}
		c.mu.Unlock()
		c.notify(e)
		if again {
			continue
		}

		// An invalidation landing while subscribers were notified has joined
		// this flight and started nothing. Release the key, then refetch.
		c.group.Forget(e.key.String())
		c.mu.Lock()
		missed := err == nil && e.gen != gen && len(e.subs) > 0 && !c.closed
		c.mu.Unlock()
		if missed {
			c.revalidate(e)
		}
		return err
	}
}

func (c *Cache) withRetry(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	for attempt := 0; ; attempt++ {
		data, err := fetch(ctx)
		if err == nil {
			return data, nil
		}
		if attempt >= c.opts.retries || !c.opts.retryable(err) || ctx.Err() != nil {
			return nil, err
		}

		delay := c.opts.delay(attempt)
		c.opts.logger.Debug("query fetch failed, retrying",
			slog.String("key", key.String()),
			slog.Int("attempt", attempt+1),
			slog.Duration("delay", delay),
			slog.String("error", err.Error()),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, err
		case <-timer.C:
		}
	}
}

func (c *Cache) poll(ctx context.Context, e *entry, every time.Duration) {
	defer c.wg.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.await(ctx, e); err != nil && !errors.Is(err, context.Canceled) {
				c.opts.logger.Debug("poll refetch failed",
					slog.String("key", e.key.String()),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}
