// Package client assembles the SDK: one API client, event bus and query
// cache shared by a store and a query resource per entity type.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/simp-lee/mailsync/internal/apiclient"
	"github.com/simp-lee/mailsync/internal/config"
	"github.com/simp-lee/mailsync/internal/domain"
	"github.com/simp-lee/mailsync/internal/eventbus"
	"github.com/simp-lee/mailsync/internal/query"
	"github.com/simp-lee/mailsync/internal/store"
)

// Client is the entry point of the SDK. Close it when done.
type Client struct {
	API   *apiclient.Client
	Bus   *eventbus.Bus
	Cache *query.Cache

	Contacts      *Resource[domain.Contact]
	ContactGroups *Resource[domain.ContactGroup]
	Campaigns     *Resource[domain.Campaign]
	Domains       *Resource[domain.Domain]
	Senders       *Resource[domain.Sender]
	Tickets       *Resource[domain.Ticket]
	Plans         *Resource[domain.Plan]
	Billing       *Resource[domain.BillingRecord]

	cfg         config.ClientConfig
	timings     config.ClientTimings
	logger      *slog.Logger
	stopRefresh func()
}

type options struct {
	logger     *slog.Logger
	httpClient *http.Client
	tokens     apiclient.TokenStore
	bus        *eventbus.Bus
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithHTTPClient replaces the HTTP client. The configured request timeout
// still applies.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithTokenStore replaces the cookie file named by client.cookie_path.
func WithTokenStore(s apiclient.TokenStore) Option {
	return func(o *options) { o.tokens = s }
}

// WithBus uses an existing event bus instead of a new one.
func WithBus(b *eventbus.Bus) Option {
	return func(o *options) { o.bus = b }
}

// New builds a client from cfg. cfg is validated, so defaults apply to unset
// fields.
func New(cfg config.ClientConfig, opts ...Option) (*Client, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	timings, err := cfg.Timings()
	if err != nil {
		return nil, err
	}
	if o.tokens == nil {
		o.tokens = apiclient.NewFileStore(cfg.CookiePath)
	}
	if o.bus == nil {
		o.bus = eventbus.New(eventbus.WithLogger(o.logger))
	}

	apiOpts := []apiclient.Option{
		apiclient.WithTokenStore(o.tokens),
		apiclient.WithLogger(o.logger),
		apiclient.WithUserAgent("mailsync-sdk"),
	}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, apiclient.WithHTTPClient(o.httpClient))
	}
	apiOpts = append(apiOpts, apiclient.WithTimeout(timings.RequestTimeout))
	api, err := apiclient.New(cfg.BaseURL, apiOpts...)
	if err != nil {
		return nil, err
	}

	cacheOpts := []query.Option{
		query.WithStaleTime(timings.StaleTime),
		query.WithDetailStaleTime(timings.DetailStaleTime),
		query.WithRetry(cfg.Retry.Attempts, timings.RetryBackoff),
		query.WithRetryable(apiclient.IsTransient),
		query.WithSize(cfg.CacheSize),
		query.WithLogger(o.logger),
	}
	for tag, every := range timings.PollIntervals {
		cacheOpts = append(cacheOpts, query.WithPollInterval(tag, every))
	}
	cache, err := query.New(cacheOpts...)
	if err != nil {
		return nil, err
	}

	c := &Client{
		API:     api,
		Bus:     o.bus,
		Cache:   cache,
		cfg:     cfg,
		timings: timings,
		logger:  o.logger,
	}
	if err := c.buildResources(); err != nil {
		cache.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) buildResources() error {
	var err error
	// Contact changes show up in group member lists.
	if c.Contacts, err = newResource[domain.Contact](c, domain.ContactKind, domain.ContactGroupKind.Tag); err != nil {
		return err
	}
	if c.ContactGroups, err = newResource[domain.ContactGroup](c, domain.ContactGroupKind); err != nil {
		return err
	}
	if c.Campaigns, err = newResource[domain.Campaign](c, domain.CampaignKind); err != nil {
		return err
	}
	if c.Domains, err = newResource[domain.Domain](c, domain.DomainKind); err != nil {
		return err
	}
	if c.Senders, err = newResource[domain.Sender](c, domain.SenderKind); err != nil {
		return err
	}
	if c.Tickets, err = newResource[domain.Ticket](c, domain.TicketKind); err != nil {
		return err
	}
	if c.Plans, err = newResource[domain.Plan](c, domain.PlanKind); err != nil {
		return err
	}
	c.Billing, err = newResource[domain.BillingRecord](c, domain.BillingKind)
	return err
}

// Timings returns the parsed client durations.
func (c *Client) Timings() config.ClientTimings {
	return c.timings
}

// Start begins refreshing the access token every client.refresh_interval.
func (c *Client) Start(ctx context.Context) {
	if c.stopRefresh != nil {
		return
	}
	c.stopRefresh = c.API.StartRefresher(ctx, c.timings.RefreshInterval)
}

// Refocus refetches every mounted query.
func (c *Client) Refocus() {
	c.Cache.Refocus()
}

// Close stops the token refresher and the query cache.
func (c *Client) Close() {
	if c.stopRefresh != nil {
		c.stopRefresh()
		c.stopRefresh = nil
	}
	c.Cache.Close()
}

// Login signs in and announces it on the bus.
func (c *Client) Login(ctx context.Context, email, password string) (*apiclient.TokenResponse, error) {
	tr, err := c.API.Login(ctx, email, password)
	if err != nil {
		c.report(ctx, "login", err)
		return nil, err
	}
	name := email
	if tr.Account != nil && tr.Account.Name != "" {
		name = tr.Account.Name
	}
	c.Bus.Emit(eventbus.Success, "signed in as "+name)
	return tr, nil
}

// Logout forgets the session.
func (c *Client) Logout() error {
	if err := c.API.Logout(); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	c.Bus.Emit(eventbus.Info, "signed out")
	return nil
}

// report turns err into an error notification, following the same rules as
// the stores.
func (c *Client) report(ctx context.Context, action string, err error) {
	msg, ok := store.Describe(err)
	if !ok {
		if !errors.Is(err, context.Canceled) {
			c.logger.WarnContext(ctx, "request failed with an unrecognized error",
				slog.String("action", action), slog.Any("error", err))
		}
		return
	}
	c.Bus.Emit(eventbus.Error, msg)
}
