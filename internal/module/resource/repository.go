package resource

import (
	"context"

	"gorm.io/gorm"

	"github.com/simp-lee/mailsync/internal/domain"
	"github.com/simp-lee/mailsync/internal/pkg"
)

// Repository is the GORM-backed store for one entity type. Deletes are soft.
type Repository[T any] struct {
	db           *gorm.DB
	label        string
	searchFields []string
}

// NewRepository creates a Repository for the resource described by def.
func NewRepository[T any](db *gorm.DB, def Definition[T]) *Repository[T] {
	return &Repository[T]{db: db, label: def.Label, searchFields: def.SearchFields}
}

// List returns one page of non-deleted rows, newest first. A page past the end
// is clamped to the last page.
func (r *Repository[T]) List(ctx context.Context, req domain.PageRequest) (*domain.PaginatedResponse[T], error) {
	return r.listWhere(ctx, req, nil)
}

func (r *Repository[T]) listWhere(ctx context.Context, req domain.PageRequest, scope func(*gorm.DB) *gorm.DB) (*domain.PaginatedResponse[T], error) {
	query := func() *gorm.DB {
		q := r.db.WithContext(ctx).Model(new(T)).Scopes(pkg.Search(req, r.searchFields))
		if scope != nil {
			q = q.Scopes(scope)
		}
		return q
	}

	page, err := pkg.ListPage[T](ctx, req, query)
	if err != nil {
		return nil, pkg.MapDBError(err, r.label)
	}
	return page, nil
}

// Get returns the row with the given id.
func (r *Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	item := new(T)
	if err := r.db.WithContext(ctx).First(item, "id = ?", id).Error; err != nil {
		return nil, pkg.MapDBError(err, r.label)
	}
	return item, nil
}

// Create inserts item; its id is assigned on insert.
func (r *Repository[T]) Create(ctx context.Context, item *T) error {
	return pkg.MapDBError(r.db.WithContext(ctx).Create(item).Error, r.label)
}

// Update replaces every mutable column of the row with the values in item and
// returns the stored row. id, created_at and deleted_at are never overwritten.
func (r *Repository[T]) Update(ctx context.Context, id string, item *T) (*T, error) {
	var updated *T
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		existing := new(T)
		if err := tx.First(existing, "id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Model(existing).Select("*").Omit("id", "created_at", "deleted_at").Updates(item).Error; err != nil {
			return err
		}
		updated = new(T)
		return tx.First(updated, "id = ?", id).Error
	})
	if err != nil {
		return nil, pkg.MapDBError(err, r.label)
	}
	return updated, nil
}

// Delete soft-deletes the row with the given id.
func (r *Repository[T]) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(new(T), "id = ?", id)
	if result.Error != nil {
		return pkg.MapDBError(result.Error, r.label)
	}
	if result.RowsAffected == 0 {
		return domain.NewAppError(domain.CodeNotFound, r.label+" not found", nil)
	}
	return nil
}
