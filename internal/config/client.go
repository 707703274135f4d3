package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ClientConfig holds settings for the SDK and the mailctl CLI.
type ClientConfig struct {
	BaseURL         string            `koanf:"base_url"`
	CookiePath      string            `koanf:"cookie_path"`
	RequestTimeout  string            `koanf:"request_timeout"`
	RefreshInterval string            `koanf:"refresh_interval"`
	StaleTime       string            `koanf:"stale_time"`
	DetailStaleTime string            `koanf:"detail_stale_time"`
	PollIntervals   map[string]string `koanf:"poll_intervals"`
	Retry           RetryConfig       `koanf:"retry"`
	DebounceDelay   string            `koanf:"debounce_delay"`
	CacheSize       int               `koanf:"cache_size"`
	BulkConcurrency int               `koanf:"bulk_concurrency"`
}

// RetryConfig controls query retries on transient failures.
type RetryConfig struct {
	Attempts int    `koanf:"attempts"`
	Backoff  string `koanf:"backoff"`
}

// ClientTimings is ClientConfig with every duration parsed.
type ClientTimings struct {
	RequestTimeout  time.Duration
	RefreshInterval time.Duration
	StaleTime       time.Duration
	DetailStaleTime time.Duration
	PollIntervals   map[string]time.Duration
	RetryBackoff    time.Duration
	DebounceDelay   time.Duration
}

const (
	defaultBaseURL         = "http://localhost:8080/api/v1"
	defaultCookiePath      = ".mailsync/cookies.json"
	defaultRequestTimeout  = "30s"
	defaultRefreshInterval = "5m"
	defaultStaleTime       = "60s"
	defaultDetailStaleTime = "5m"
	defaultRetryAttempts   = 3
	defaultRetryBackoff    = "500ms"
	defaultDebounceDelay   = "500ms"
	defaultCacheSize       = 256
	defaultBulkConcurrency = 8
)

// DefaultPollIntervals are the background refetch intervals per resource tag.
func DefaultPollIntervals() map[string]string {
	return map[string]string{
		"contact":       "180s",
		"contact-group": "180s",
		"campaign":      "180s",
		"ticket":        "180s",
		"domain":        "300s",
		"sender":        "300s",
		"plan":          "300s",
		"billing":       "300s",
	}
}

// Validate fills defaults for unset fields and rejects malformed values.
func (c *ClientConfig) Validate() error {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = defaultBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid client.base_url %q: must be an absolute http(s) URL", c.BaseURL)
	}

	c.CookiePath = strings.TrimSpace(c.CookiePath)
	if c.CookiePath == "" {
		c.CookiePath = defaultCookiePath
	}

	durations := []struct {
		name  string
		value *string
		def   string
	}{
		{"client.request_timeout", &c.RequestTimeout, defaultRequestTimeout},
		{"client.refresh_interval", &c.RefreshInterval, defaultRefreshInterval},
		{"client.stale_time", &c.StaleTime, defaultStaleTime},
		{"client.detail_stale_time", &c.DetailStaleTime, defaultDetailStaleTime},
		{"client.retry.backoff", &c.Retry.Backoff, defaultRetryBackoff},
		{"client.debounce_delay", &c.DebounceDelay, defaultDebounceDelay},
	}
	for _, d := range durations {
		if err := normalizeDuration(d.name, d.value, d.def); err != nil {
			return err
		}
	}

	polls := DefaultPollIntervals()
	for tag, v := range c.PollIntervals {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return fmt.Errorf("client.poll_intervals contains an empty tag")
		}
		if err := normalizeDuration("client.poll_intervals."+tag, &v, ""); err != nil {
			return err
		}
		polls[tag] = v
	}
	c.PollIntervals = polls

	if c.Retry.Attempts < 0 {
		return fmt.Errorf("invalid client.retry.attempts %d: must not be negative", c.Retry.Attempts)
	}
	if c.Retry.Attempts == 0 {
		c.Retry.Attempts = defaultRetryAttempts
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("invalid client.cache_size %d: must not be negative", c.CacheSize)
	}
	if c.CacheSize == 0 {
		c.CacheSize = defaultCacheSize
	}
	if c.BulkConcurrency < 0 {
		return fmt.Errorf("invalid client.bulk_concurrency %d: must not be negative", c.BulkConcurrency)
	}
	if c.BulkConcurrency == 0 {
		c.BulkConcurrency = defaultBulkConcurrency
	}

	return nil
}

// Timings parses the duration fields. Call after Validate.
func (c ClientConfig) Timings() (ClientTimings, error) {
	var t ClientTimings
	fields := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"client.request_timeout", c.RequestTimeout, &t.RequestTimeout},
		{"client.refresh_interval", c.RefreshInterval, &t.RefreshInterval},
		{"client.stale_time", c.StaleTime, &t.StaleTime},
		{"client.detail_stale_time", c.DetailStaleTime, &t.DetailStaleTime},
		{"client.retry.backoff", c.Retry.Backoff, &t.RetryBackoff},
		{"client.debounce_delay", c.DebounceDelay, &t.DebounceDelay},
	}
	for _, f := range fields {
		d, err := time.ParseDuration(f.value)
		if err != nil {
			return ClientTimings{}, fmt.Errorf("invalid %s %q: %w", f.name, f.value, err)
		}
		*f.dst = d
	}

	t.PollIntervals = make(map[string]time.Duration, len(c.PollIntervals))
	for tag, v := range c.PollIntervals {
		d, err := time.ParseDuration(v)
		if err != nil {
			return ClientTimings{}, fmt.Errorf("invalid client.poll_intervals.%s %q: %w", tag, v, err)
		}
		t.PollIntervals[tag] = d
	}

	return t, nil
}

func normalizeDuration(name string, value *string, def string) error {
	v := strings.TrimSpace(*value)
	if v == "" {
		if def == "" {
			return fmt.Errorf("%s is required", name)
		}
		v = def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", name, *value, err)
	}
	if d <= 0 {
		return fmt.Errorf("invalid %s %q: must be greater than 0", name, *value)
	}
	*value = v
	return nil
}
