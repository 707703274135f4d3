package resource

import (
	"context"
	"log/slog"
	"strings"

	"github.com/simp-lee/mailsync/internal/domain"
)

// Service is the business layer for one resource.
type Service[T any] interface {
	List(ctx context.Context, req domain.PageRequest) (*domain.PaginatedResponse[T], error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, id string, item *T) (*T, error)
	Delete(ctx context.Context, id string) error
}

type identityResetter interface {
	ResetIdentity()
}

type service[T any] struct {
	def    Definition[T]
	repo   *Repository[T]
	logger *slog.Logger
}

// NewService creates a Service over repo.
func NewService[T any](def Definition[T], repo *Repository[T], logger *slog.Logger) Service[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &service[T]{def: def, repo: repo, logger: logger.With(slog.String("resource", def.Tag))}
}

func (s *service[T]) List(ctx context.Context, req domain.PageRequest) (*domain.PaginatedResponse[T], error) {
	return s.repo.List(ctx, req)
}

func (s *service[T]) Get(ctx context.Context, id string) (*T, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.NewAppError(domain.CodeValidation, s.def.Label+" id is required", nil)
	}
	return s.repo.Get(ctx, id)
}

func (s *service[T]) Create(ctx context.Context, item *T) error {
	if err := s.prepare(item); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return err
	}
	if e, ok := any(item).(interface{ EntityID() string }); ok {
		s.logger.InfoContext(ctx, s.def.Label+" created", slog.String("id", e.EntityID()))
	}
	return nil
}

func (s *service[T]) Update(ctx context.Context, id string, item *T) (*T, error) {
	if err := s.prepare(item); err != nil {
		return nil, err
	}
	updated, err := s.repo.Update(ctx, id, item)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, s.def.Label+" updated", slog.String("id", id))
	return updated, nil
}

func (s *service[T]) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, s.def.Label+" deleted", slog.String("id", id))
	return nil
}

func (s *service[T]) prepare(item *T) error {
	if r, ok := any(item).(identityResetter); ok {
		r.ResetIdentity()
	}
	if err := s.def.normalize(item); err != nil {
		return domain.NewAppError(domain.CodeValidation, err.Error(), err)
	}
	return nil
}
