package client

import (
	"context"

	"github.com/simp-lee/mailsync/internal/apiclient"
	"github.com/simp-lee/mailsync/internal/domain"
	"github.com/simp-lee/mailsync/internal/query"
	"github.com/simp-lee/mailsync/internal/store"
)

// Resource is the read and write side of one entity type.
type Resource[T any] struct {
	Kind  domain.ResourceKind
	Query *query.Resource[T]
	Store *store.Store[T]
}

// List reads one page and points the selection at it; a different page or
// search than last time clears the selection.
func (r *Resource[T]) List(ctx context.Context, page, pageSize int, search string) (query.Result[*domain.PaginatedResponse[T]], error) {
	r.Store.SyncView(page, pageSize, search)
	return r.Query.List(ctx, page, pageSize, search)
}

// Watch mounts fn on one page, see List.
func (r *Resource[T]) Watch(page, pageSize int, search string, fn func(query.Result[*domain.PaginatedResponse[T]])) *query.Subscription {
	r.Store.SyncView(page, pageSize, search)
	return r.Query.WatchList(page, pageSize, search, fn)
}

// Get reads one entity.
func (r *Resource[T]) Get(ctx context.Context, id string) (*T, error) {
	res, err := r.Query.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// restAPI is the store.API of one collection endpoint.
type restAPI[T any] struct {
	api  *apiclient.Client
	path string
}

func (a restAPI[T]) Get(ctx context.Context, id string) (*T, error) {
	return apiclient.Get[T](ctx, a.api, a.path, id)
}

func (a restAPI[T]) Create(ctx context.Context, v *T) (*T, error) {
	return apiclient.Create(ctx, a.api, a.path, v)
}

func (a restAPI[T]) Update(ctx context.Context, id string, v *T) (*T, error) {
	return apiclient.Update(ctx, a.api, a.path, id, v)
}

func (a restAPI[T]) Delete(ctx context.Context, id string) error {
	return a.api.Delete(ctx, a.path, id)
}

func newResource[T any](c *Client, kind domain.ResourceKind, related ...string) (*Resource[T], error) {
	path := kind.Segment()
	q := query.NewResource(c.Cache, kind.Tag,
		func(ctx context.Context, page, pageSize int, search string) (*domain.PaginatedResponse[T], error) {
			return apiclient.ListPage[T](ctx, c.API, path, apiclient.PageParams{Page: page, PageSize: pageSize, Search: search})
		},
		func(ctx context.Context, id string) (*T, error) {
			return apiclient.Get[T](ctx, c.API, path, id)
		},
	)
	s, err := store.New(store.Config[T]{
		Kind:        kind,
		API:         restAPI[T]{api: c.API, path: path},
		Bus:         c.Bus,
		Cache:       c.Cache,
		Related:     related,
		Concurrency: c.cfg.BulkConcurrency,
		Logger:      c.logger,
	})
	if err != nil {
		return nil, err
	}
	return &Resource[T]{Kind: kind, Query: q, Store: s}, nil
}
