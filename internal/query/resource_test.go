package query

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simp-lee/mailsync/internal/domain"
)

type contact struct {
	ID    string
	Email string
}

func contactResource(c *Cache, lists, gets *atomic.Int32) *Resource[contact] {
	return NewResource(c, "contact",
		func(_ context.Context, page, pageSize int, search string) (*domain.PaginatedResponse[contact], error) {
			lists.Add(1)
			return domain.NewPaginatedResponse([]contact{{ID: "c1", Email: search}}, 1,
				domain.PageRequest{Page: page, PageSize: pageSize, Search: search}), nil
		},
		func(_ context.Context, id string) (*contact, error) {
			gets.Add(1)
			return &contact{ID: id}, nil
		},
	)
}

func TestResource_ListAndGet(t *testing.T) {
	c := newTestCache(t)
	var lists, gets atomic.Int32
	r := contactResource(c, &lists, &gets)
	assert.Equal(t, "contact", r.Tag())

	res, err := r.List(context.Background(), 1, 20, "jane@x.com")
	require.NoError(t, err)
	require.NotNil(t, res.Data)
	assert.Equal(t, "jane@x.com", res.Data.Data[0].Email)
	assert.Equal(t, ListKey("contact", 1, 20, "jane@x.com"), res.Key)

	one, err := r.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, &contact{ID: "c1"}, one.Data)

	_, err = r.List(context.Background(), 1, 20, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, int32(1), lists.Load())

	_, err = r.RefetchList(context.Background(), 1, 20, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, int32(2), lists.Load())
}

func TestResource_InvalidateCoversListsAndDetails(t *testing.T) {
	c := newTestCache(t)
	var lists, gets atomic.Int32
	r := contactResource(c, &lists, &gets)

	var pageCalls atomic.Int32
	listSub := r.WatchList(1, 20, "", func(Result[*domain.PaginatedResponse[contact]]) {
		pageCalls.Add(1)
	})
	defer listSub.Close()
	detailSub := r.WatchGet("c1", func(Result[*contact]) {})
	defer detailSub.Close()

	require.Eventually(t, func() bool { return lists.Load() == 1 && gets.Load() == 1 }, time.Second, time.Millisecond)

	r.Invalidate()
	require.Eventually(t, func() bool { return lists.Load() == 2 && gets.Load() == 2 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return listSub.Snapshot().State == Fresh }, time.Second, time.Millisecond)
	assert.Greater(t, pageCalls.Load(), int32(1))
}
