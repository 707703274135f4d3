// Package store owns the client-side write state of one resource: the form
// draft, the selected rows and the mutations that change the server. Every
// mutation reports its outcome on the event bus and invalidates the cached
// reads of the resource.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/simp-lee/mailsync/internal/domain"
	"github.com/simp-lee/mailsync/internal/eventbus"
)

// DefaultConcurrency bounds the calls of one bulk operation in flight.
const DefaultConcurrency = 8

// ErrNoTarget is returned by BulkAssign when no target was set.
var ErrNoTarget = errors.New("no target selected")

// API is the write side of one resource.
type API[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, v *T) (*T, error)
	Update(ctx context.Context, id string, v *T) (*T, error)
	Delete(ctx context.Context, id string) error
}

// Invalidator marks cached reads of a tag stale.
type Invalidator interface {
	Invalidate(tag string)
}

// Config wires a Store.
type Config[T any] struct {
	Kind  domain.ResourceKind
	API   API[T]
	Bus   *eventbus.Bus
	Cache Invalidator
	// Related tags are invalidated together with Kind.Tag, e.g. group member
	// lists after a contact changes.
	Related []string
	// Empty returns the blank draft. Defaults to the zero value.
	Empty       func() T
	Concurrency int
	Logger      *slog.Logger
}

// State is Idle or Submitting.
type State int

const (
	Idle State = iota
	Submitting
)

func (s State) String() string {
	if s == Submitting {
		return "submitting"
	}
	return "idle"
}

// Store is safe for concurrent use, but it does not serialize mutations:
// two calls to Create run as two requests.
type Store[T any] struct {
	kind        domain.ResourceKind
	api         API[T]
	bus         *eventbus.Bus
	cache       Invalidator
	related     []string
	empty       func() T
	concurrency int
	logger      *slog.Logger

	mu        sync.Mutex
	draft     T
	base      T
	selection map[string]struct{}
	target    string
	view      viewKey
	hasView   bool

	inflight atomic.Int32
}

type viewKey struct {
	page, pageSize int
	search         string
}

// New builds a store. Kind, API, Bus and Cache are required.
func New[T any](cfg Config[T]) (*Store[T], error) {
	switch {
	case cfg.Kind.Tag == "":
		return nil, errors.New("store: resource kind is required")
	case cfg.API == nil:
		return nil, errors.New("store: api is required")
	case cfg.Bus == nil:
		return nil, errors.New("store: event bus is required")
	case cfg.Cache == nil:
		return nil, errors.New("store: cache is required")
	}
	if cfg.Empty == nil {
		cfg.Empty = func() T { var zero T; return zero }
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Store[T]{
		kind:        cfg.Kind,
		api:         cfg.API,
		bus:         cfg.Bus,
		cache:       cfg.Cache,
		related:     cfg.Related,
		empty:       cfg.Empty,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger.With(slog.String("resource", cfg.Kind.Tag)),
		draft:       cfg.Empty(),
		base:        cfg.Empty(),
		selection:   make(map[string]struct{}),
	}, nil
}

// Kind returns the resource the store manages.
func (s *Store[T]) Kind() domain.ResourceKind {
	return s.kind
}

// State reports whether a mutation is in flight.
func (s *Store[T]) State() State {
	if s.inflight.Load() > 0 {
		return Submitting
	}
	return Idle
}

// IsLoading is State() == Submitting.
func (s *Store[T]) IsLoading() bool {
	return s.State() == Submitting
}

// SetDraft replaces the draft. It is not validated. Fields left at their
// blank value are not sent by Update.
func (s *Store[T]) SetDraft(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = v
	s.base = s.empty()
}

// EditDraft loads an entity into the draft for editing. Update then sends
// only the fields changed since, so clearing a field is kept as a change.
func (s *Store[T]) EditDraft(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = v
	s.base = v
}

// PatchDraft edits the draft in place.
func (s *Store[T]) PatchDraft(fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.draft)
}

// Draft returns a copy of the draft.
func (s *Store[T]) Draft() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// ResetDraft restores the blank draft.
func (s *Store[T]) ResetDraft() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft = s.empty()
	s.base = s.empty()
}

// Create sends the draft to the server. On success the draft is reset; on
// failure it is kept so the user can retry.
func (s *Store[T]) Create(ctx context.Context) (*T, error) {
	draft := s.Draft()
	s.begin()
	defer s.end()

	created, err := s.api.Create(ctx, &draft)
	if err != nil {
		s.fail(ctx, "create", err)
		return nil, err
	}
	s.succeed(ctx, "create", s.title()+" created successfully")
	s.ResetDraft()
	return created, nil
}

// Update applies the draft to entity id. The entity is read first and only
// the draft fields that differ from the draft's origin (the blank draft, or
// the entity given to EditDraft) overwrite it.
func (s *Store[T]) Update(ctx context.Context, id string) (*T, error) {
	s.mu.Lock()
	draft, base := s.draft, s.base
	s.mu.Unlock()
	s.begin()
	defer s.end()

	current, err := s.api.Get(ctx, id)
	if err != nil {
		s.fail(ctx, "update", err)
		return nil, err
	}
	merged := mergeDraft(*current, draft, base)
	updated, err := s.api.Update(ctx, id, &merged)
	if err != nil {
		s.fail(ctx, "update", err)
		return nil, err
	}
	s.succeed(ctx, "update", s.title()+" updated successfully")
	s.ResetDraft()
	return updated, nil
}

// Delete removes one entity and drops it from the selection.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	s.begin()
	defer s.end()

	if err := s.api.Delete(ctx, id); err != nil {
		s.fail(ctx, "delete", err)
		return err
	}
	s.Deselect(id)
	s.succeed(ctx, "delete", s.title()+" deleted successfully")
	return nil
}

func (s *Store[T]) begin() { s.inflight.Add(1) }
func (s *Store[T]) end()   { s.inflight.Add(-1) }

func (s *Store[T]) invalidate() {
	s.cache.Invalidate(s.kind.Tag)
	for _, tag := range s.related {
		s.cache.Invalidate(tag)
	}
}

func (s *Store[T]) succeed(ctx context.Context, action, msg string) {
	s.logger.DebugContext(ctx, "mutation succeeded", slog.String("action", action))
	s.bus.Emit(eventbus.Success, msg)
	s.invalidate()
}

// fail reports err on the error channel, or only logs it when it carries
// nothing worth showing.
func (s *Store[T]) fail(ctx context.Context, action string, err error) {
	msg, ok := Describe(err)
	if !ok {
		s.logger.WarnContext(ctx, "mutation failed with an unrecognized error",
			slog.String("action", action),
			slog.String("type", fmt.Sprintf("%T", err)),
			slog.Any("error", err),
		)
		return
	}
	s.logger.DebugContext(ctx, "mutation failed", slog.String("action", action), slog.String("error", msg))
	s.bus.Emit(eventbus.Error, msg)
}

func (s *Store[T]) title() string {
	if s.kind.Label == "" {
		return s.kind.Tag
	}
	return strings.ToUpper(s.kind.Label[:1]) + s.kind.Label[1:]
}

func (s *Store[T]) plural(n int) string {
	if n == 1 {
		return s.kind.Label
	}
	return s.kind.Label + "s"
}
