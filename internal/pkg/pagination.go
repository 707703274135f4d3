package pkg

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/pagination"
	"gorm.io/gorm"

	"github.com/simp-lee/mailsync/internal/domain"
)

const (
	defaultPage     = 1
	defaultPageSize = 20
	maxPageSize     = 100
	maxSearchLength = 200
)

// validFieldName matches only alphanumeric characters and underscores.
var validFieldName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ParsePageRequest extracts page, page_size and search from query params.
func ParsePageRequest(c *gin.Context) domain.PageRequest {
	page, _ := strconv.Atoi(c.DefaultQuery("page", strconv.Itoa(defaultPage)))
	if page < 1 {
		page = defaultPage
	}

	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", strconv.Itoa(defaultPageSize)))
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	search := strings.TrimSpace(c.Query("search"))
	if utf8.RuneCountInString(search) > maxSearchLength {
		search = string([]rune(search)[:maxSearchLength])
	}

	return domain.PageRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   search,
	}
}

// ListPage counts the rows of query and loads the requested page of them,
// newest first. A page past the end is moved back onto the last page, so the
// response never reports a current page beyond total pages.
func ListPage[T any](ctx context.Context, req domain.PageRequest, query func() *gorm.DB) (*domain.PaginatedResponse[T], error) {
	size := req.PageSize
	if size < 1 {
		size = defaultPageSize
	}
	page, err := pagination.NewPaginator(
		pagination.WithItemsPerPage[T](size),
		pagination.WithItemTotalCallback[T](func(context.Context) (int64, error) {
			var total int64
			err := query().Count(&total).Error
			return total, err
		}),
		pagination.WithSliceCallback(func(_ context.Context, offset, limit int) ([]T, error) {
			var items []T
			err := query().Scopes(Newest()).Offset(offset).Limit(limit).Find(&items).Error
			return items, err
		}),
	).Paginate(ctx, max(req.Page, 1))
	if err != nil {
		return nil, err
	}
	return domain.NewPaginatedResponse(page.Items, page.TotalItems, domain.PageRequest{
		Page:     page.CurrentPage,
		PageSize: page.ItemsPerPage,
		Search:   req.Search,
	}), nil
}

// Search returns a GORM scope that matches req.Search as a case-insensitive
// substring against any of fields. Field names that are not plain identifiers
// are skipped. An empty search term leaves the query untouched.
func Search(req domain.PageRequest, fields []string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if req.Search == "" {
			return db
		}

		pattern := "%" + escapeLike(strings.ToLower(req.Search)) + "%"
		var cond *gorm.DB
		for _, field := range fields {
			if !validFieldName.MatchString(field) {
				continue
			}
			expr := "LOWER(" + field + ") LIKE ? ESCAPE '\\'"
			if cond == nil {
				cond = db.Session(&gorm.Session{NewDB: true}).Where(expr, pattern)
			} else {
				cond = cond.Or(expr, pattern)
			}
		}
		if cond == nil {
			return db
		}
		return db.Where(cond)
	}
}

// Newest returns a GORM scope ordering rows from most to least recently created.
func Newest() func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at desc").Order("id desc")
	}
}

// escapeLike escapes LIKE wildcards so user input is matched literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
