package store

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/simp-lee/mailsync/internal/eventbus"
)

// BulkFailure is one id a bulk operation could not apply to.
type BulkFailure struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// BulkResult lists the outcome of every call of a bulk operation. Order
// follows the selection.
type BulkResult struct {
	Succeeded []string      `json:"succeeded"`
	Failed    []BulkFailure `json:"failed"`
}

// OK reports whether every call succeeded.
func (r BulkResult) OK() bool {
	return len(r.Failed) == 0
}

// Total is the number of ids the operation covered.
func (r BulkResult) Total() int {
	return len(r.Succeeded) + len(r.Failed)
}

// BulkDelete deletes every selected id with one call per id.
func (s *Store[T]) BulkDelete(ctx context.Context) BulkResult {
	return s.bulk(ctx, "delete", "deleted", s.api.Delete)
}

// BulkAssign calls assign once per selected id with the current target.
func (s *Store[T]) BulkAssign(ctx context.Context, assign func(ctx context.Context, id, target string) error) (BulkResult, error) {
	target := s.Target()
	if target == "" {
		s.bus.Emit(eventbus.Error, "choose where to add the selected "+s.plural(2)+" first")
		return BulkResult{}, ErrNoTarget
	}
	return s.bulk(ctx, "assign", "assigned", func(ctx context.Context, id string) error {
		return assign(ctx, id, target)
	}), nil
}

// bulk runs fn for every selected id concurrently and reports one aggregate
// event: success only when every call succeeded. Ids that succeeded are
// deselected; failed ids and ids selected while the calls ran stay selected.
func (s *Store[T]) bulk(ctx context.Context, action, verb string, fn func(context.Context, string) error) BulkResult {
	ids := s.Selection()
	if len(ids) == 0 {
		s.bus.Emit(eventbus.Info, fmt.Sprintf("no %s selected", s.plural(2)))
		return BulkResult{}
	}

	s.begin()
	defer s.end()

	errs := make([]error, len(ids))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, id := range ids {
		g.Go(func() error {
			errs[i] = fn(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	var result BulkResult
	for i, id := range ids {
		if errs[i] == nil {
			result.Succeeded = append(result.Succeeded, id)
			continue
		}
		reason, ok := Describe(errs[i])
		if !ok {
			reason = "unknown error"
		}
		result.Failed = append(result.Failed, BulkFailure{ID: id, Reason: reason, Err: errs[i]})
	}

	s.mu.Lock()
	for _, id := range result.Succeeded {
		delete(s.selection, id)
	}
	s.mu.Unlock()

	if len(result.Succeeded) > 0 {
		s.invalidate()
	}

	s.logger.InfoContext(ctx, "bulk operation finished",
		slog.String("action", action),
		slog.Int("succeeded", len(result.Succeeded)),
		slog.Int("failed", len(result.Failed)),
	)
	if result.OK() {
		s.bus.Emit(eventbus.Success, fmt.Sprintf("%d %s %s successfully", len(ids), s.plural(len(ids)), verb))
		return result
	}
	s.bus.Emit(eventbus.Error, fmt.Sprintf("%d of %d %s could not be %s: %s",
		len(result.Failed), len(ids), s.plural(len(ids)), verb, result.Failed[0].Reason))
	return result
}
