package query

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	DefaultStaleTime       = 60 * time.Second
	DefaultDetailStaleTime = 5 * time.Minute
	DefaultRetries         = 3
	DefaultBackoff         = time.Second
	DefaultSize            = 256

	maxBackoff = 30 * time.Second
)

type options struct {
	staleTime       time.Duration
	detailStaleTime time.Duration
	pollIntervals   map[string]time.Duration
	retries         int
	backoff         time.Duration
	retryable       func(error) bool
	size            int
	now             func() time.Time
	logger          *slog.Logger
}

func defaultOptions() options {
	return options{
		staleTime:       DefaultStaleTime,
		detailStaleTime: DefaultDetailStaleTime,
		pollIntervals:   map[string]time.Duration{},
		retries:         DefaultRetries,
		backoff:         DefaultBackoff,
		retryable:       func(err error) bool { return !errors.Is(err, context.Canceled) },
		size:            DefaultSize,
		now:             time.Now,
		logger:          slog.Default(),
	}
}

// Option configures a Cache.
type Option func(*options)

// WithStaleTime sets how long a list page is served without refetching.
func WithStaleTime(d time.Duration) Option {
	return func(o *options) { o.staleTime = d }
}

// WithDetailStaleTime sets the stale time of single-entity entries.
func WithDetailStaleTime(d time.Duration) Option {
	return func(o *options) { o.detailStaleTime = d }
}

// WithPollInterval makes mounted list entries of tag refetch every d. Tags
// without an interval are not polled.
func WithPollInterval(tag string, d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.pollIntervals[tag] = d
		}
	}
}

// WithRetry sets how many times a failed fetch is retried and the base delay,
// which doubles after every attempt up to 30s.
func WithRetry(retries int, backoff time.Duration) Option {
	return func(o *options) {
		if retries >= 0 {
			o.retries = retries
		}
		if backoff > 0 {
			o.backoff = backoff
		}
	}
}

// WithRetryable decides which errors are worth retrying.
func WithRetryable(fn func(error) bool) Option {
	return func(o *options) {
		if fn != nil {
			o.retryable = fn
		}
	}
}

// WithSize bounds how many unmounted entries are kept.
func WithSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.size = n
		}
	}
}

// WithClock overrides the time source used for staleness.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func (o *options) delay(attempt int) time.Duration {
	d := o.backoff << attempt
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}
