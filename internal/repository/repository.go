package repository

import (
	"context"

	"github.com/utafrali/bookshop/internal/domain"
)

// ViewRepository stores mounted storefront views. Implementations keep views
// only for their idle TTL; nothing survives an unmount.
type ViewRepository interface {
	// Get returns the view with the given ID or a NOT_FOUND error.
	Get(ctx context.Context, id string) (*domain.View, error)

	// Create stores a new view with Version 1. It fails with CONFLICT if a
	// view with the same ID already exists.
	Create(ctx context.Context, view *domain.View) error

	// SaveIfVersion replaces the stored view only if its version still equals
	// expectedVersion, bumping view.Version on success. It reports false when
	// another writer got there first, and NOT_FOUND when the view has expired
	// or been unmounted since it was read.
	SaveIfVersion(ctx context.Context, view *domain.View, expectedVersion int) (bool, error)

	// Delete discards a view. It returns NOT_FOUND if there was none.
	Delete(ctx context.Context, id string) error

	// Ping checks the backing store is reachable.
	Ping(ctx context.Context) error
}
