package query

import (
	"context"
	"time"

	"github.com/simp-lee/mailsync/internal/domain"
)

// Result is a Snapshot with typed data. Data is the zero value until the
// first successful fetch.
type Result[T any] struct {
	Key        Key
	Data       T
	Err        error
	State      State
	FetchedAt  time.Time
	IsLoading  bool
	IsFetching bool
	IsError    bool
}

// Cast converts a snapshot whose data has type T.
func Cast[T any](s Snapshot) Result[T] {
	r := Result[T]{
		Key:        s.Key,
		Err:        s.Err,
		State:      s.State,
		FetchedAt:  s.FetchedAt,
		IsLoading:  s.IsLoading,
		IsFetching: s.IsFetching,
		IsError:    s.IsError,
	}
	if v, ok := s.Data.(T); ok {
		r.Data = v
	}
	return r
}

// ListFunc loads one page.
type ListFunc[T any] func(ctx context.Context, page, pageSize int, search string) (*domain.PaginatedResponse[T], error)

// GetFunc loads one entity.
type GetFunc[T any] func(ctx context.Context, id string) (*T, error)

// Resource binds list and detail loaders of one tag to a cache.
type Resource[T any] struct {
	cache  *Cache
	tag    string
	list   ListFunc[T]
	detail GetFunc[T]
}

// NewResource returns the query side of tag.
func NewResource[T any](c *Cache, tag string, list ListFunc[T], detail GetFunc[T]) *Resource[T] {
	return &Resource[T]{cache: c, tag: tag, list: list, detail: detail}
}

// Tag returns the resource tag.
func (r *Resource[T]) Tag() string {
	return r.tag
}

func (r *Resource[T]) listFetcher(page, pageSize int, search string) Fetcher {
	return func(ctx context.Context) (any, error) {
		return r.list(ctx, page, pageSize, search)
	}
}

func (r *Resource[T]) detailFetcher(id string) Fetcher {
	return func(ctx context.Context) (any, error) {
		return r.detail(ctx, id)
	}
}

// List reads one page through the cache.
func (r *Resource[T]) List(ctx context.Context, page, pageSize int, search string) (Result[*domain.PaginatedResponse[T]], error) {
	s, err := r.cache.Fetch(ctx, ListKey(r.tag, page, pageSize, search), r.listFetcher(page, pageSize, search))
	return Cast[*domain.PaginatedResponse[T]](s), err
}

// RefetchList fetches one page now and waits for it.
func (r *Resource[T]) RefetchList(ctx context.Context, page, pageSize int, search string) (Result[*domain.PaginatedResponse[T]], error) {
	s, err := r.cache.Refetch(ctx, ListKey(r.tag, page, pageSize, search), r.listFetcher(page, pageSize, search))
	return Cast[*domain.PaginatedResponse[T]](s), err
}

// WatchList mounts fn on one page.
func (r *Resource[T]) WatchList(page, pageSize int, search string, fn func(Result[*domain.PaginatedResponse[T]])) *Subscription {
	return r.cache.Subscribe(ListKey(r.tag, page, pageSize, search), r.listFetcher(page, pageSize, search), func(s Snapshot) {
		fn(Cast[*domain.PaginatedResponse[T]](s))
	})
}

// Get reads one entity through the cache.
func (r *Resource[T]) Get(ctx context.Context, id string) (Result[*T], error) {
	s, err := r.cache.Fetch(ctx, DetailKey(r.tag, id), r.detailFetcher(id))
	return Cast[*T](s), err
}

// WatchGet mounts fn on one entity. Detail entries are never polled.
func (r *Resource[T]) WatchGet(id string, fn func(Result[*T])) *Subscription {
	return r.cache.Subscribe(DetailKey(r.tag, id), r.detailFetcher(id), func(s Snapshot) {
		fn(Cast[*T](s))
	})
}

// Invalidate marks every cached page and entity of the tag stale.
func (r *Resource[T]) Invalidate() {
	r.cache.Invalidate(r.tag)
}
