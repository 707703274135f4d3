package resource

import "github.com/simp-lee/mailsync/internal/domain"

// Definition binds a resource kind to its entity type.
type Definition[T any] struct {
	domain.ResourceKind
	// Normalize trims and defaults a bound record and enforces rules the
	// binding tags cannot express. Optional.
	Normalize func(*T) error
}

// Define creates a Definition for kind.
func Define[T any](kind domain.ResourceKind, normalize func(*T) error) Definition[T] {
	return Definition[T]{ResourceKind: kind, Normalize: normalize}
}

func (d Definition[T]) normalize(item *T) error {
	if d.Normalize == nil {
		return nil
	}
	return d.Normalize(item)
}
