package domain

import (
	"fmt"
	"math"
)

// APIResponse is the envelope every endpoint answers with.
// When Status is false, Payload carries the error description.
type APIResponse[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Payload T      `json:"payload"`
}

// PaginatedResponse is the payload of every list endpoint.
type PaginatedResponse[T any] struct {
	Data        []T   `json:"data"`
	TotalCount  int64 `json:"total_count"`
	TotalPages  int   `json:"total_pages"`
	CurrentPage int   `json:"current_page"`
	PageSize    int   `json:"page_size"`
}

// NewPaginatedResponse builds a page with TotalPages derived from total and the page size.
func NewPaginatedResponse[T any](items []T, total int64, req PageRequest) *PaginatedResponse[T] {
	if items == nil {
		items = []T{}
	}
	page := req.Page
	if page < 1 {
		page = 1
	}
	size := req.PageSize
	if size < 1 {
		size = 1
	}

	return &PaginatedResponse[T]{
		Data:        items,
		TotalCount:  total,
		TotalPages:  TotalPages(total, size),
		CurrentPage: page,
		PageSize:    size,
	}
}

// TotalPages returns ceil(total / pageSize), or 0 when pageSize is not positive.
func TotalPages(total int64, pageSize int) int {
	if pageSize <= 0 || total <= 0 {
		return 0
	}
	return int(math.Ceil(float64(total) / float64(pageSize)))
}

// Validate checks the page invariants every consumer relies on.
func (p *PaginatedResponse[T]) Validate() error {
	if p == nil {
		return fmt.Errorf("paginated response is nil")
	}
	if p.TotalCount < 0 {
		return fmt.Errorf("total_count %d must not be negative", p.TotalCount)
	}
	if p.PageSize < 1 {
		return fmt.Errorf("page_size %d must be at least 1", p.PageSize)
	}
	if want := TotalPages(p.TotalCount, p.PageSize); p.TotalPages != want {
		return fmt.Errorf("total_pages %d does not match ceil(%d/%d)=%d", p.TotalPages, p.TotalCount, p.PageSize, want)
	}
	if p.CurrentPage < 1 || p.CurrentPage > max(p.TotalPages, 1) {
		return fmt.Errorf("current_page %d out of range [1, %d]", p.CurrentPage, max(p.TotalPages, 1))
	}
	return nil
}

// IDs returns the identifiers of the page rows in order.
func IDs[T interface{ EntityID() string }](items []T) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.EntityID())
	}
	return ids
}
