package domain

import (
	"testing"
)

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total    int64
		pageSize int
		want     int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{100, 7, 15},
		{5, 0, 0},
	}
	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.pageSize); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d; want %d", tt.total, tt.pageSize, got, tt.want)
		}
	}
}

func TestNewPaginatedResponse(t *testing.T) {
	t.Run("computes total pages", func(t *testing.T) {
		p := NewPaginatedResponse([]int{1, 2, 3}, 23, PageRequest{Page: 2, PageSize: 10})
		if p.TotalPages != 3 {
			t.Errorf("TotalPages = %d; want 3", p.TotalPages)
		}
		if p.CurrentPage != 2 || p.PageSize != 10 {
			t.Errorf("page = %d size = %d; want 2 and 10", p.CurrentPage, p.PageSize)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("Validate() = %v", err)
		}
	})

	t.Run("empty result is page one", func(t *testing.T) {
		p := NewPaginatedResponse[int](nil, 0, PageRequest{Page: 0, PageSize: 20})
		if p.Data == nil {
			t.Error("Data should be an empty slice, not nil")
		}
		if p.CurrentPage != 1 || p.TotalPages != 0 {
			t.Errorf("page = %d total pages = %d; want 1 and 0", p.CurrentPage, p.TotalPages)
		}
		if err := p.Validate(); err != nil {
			t.Errorf("Validate() = %v", err)
		}
	})
}

func TestPaginatedResponse_Validate(t *testing.T) {
	tests := []struct {
		name    string
		page    PaginatedResponse[int]
		wantErr bool
	}{
		{"consistent", PaginatedResponse[int]{TotalCount: 41, TotalPages: 3, CurrentPage: 3, PageSize: 20}, false},
		{"wrong total pages", PaginatedResponse[int]{TotalCount: 41, TotalPages: 2, CurrentPage: 1, PageSize: 20}, true},
		{"page past the end", PaginatedResponse[int]{TotalCount: 41, TotalPages: 3, CurrentPage: 4, PageSize: 20}, true},
		{"page zero", PaginatedResponse[int]{TotalCount: 1, TotalPages: 1, CurrentPage: 0, PageSize: 20}, true},
		{"zero page size", PaginatedResponse[int]{TotalCount: 0, TotalPages: 0, CurrentPage: 1, PageSize: 0}, true},
		{"negative total", PaginatedResponse[int]{TotalCount: -1, TotalPages: 0, CurrentPage: 1, PageSize: 20}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.page.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v; wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIDs(t *testing.T) {
	items := []Contact{{BaseEntity: BaseEntity{ID: "a"}}, {BaseEntity: BaseEntity{ID: "b"}}}
	got := IDs(items)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("IDs() = %v; want [a b]", got)
	}
}
