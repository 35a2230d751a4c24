package memory

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/utafrali/bookshop/internal/domain"
	apperrors "github.com/utafrali/bookshop/pkg/errors"
)

// ViewRepository keeps views in process memory. Stored views are deep copies
// so callers can never mutate shared state.
type ViewRepository struct {
	mu    sync.RWMutex
	views map[string]*domain.View
	ttl   time.Duration
	now   func() time.Time
}

// NewViewRepository creates an empty repository whose entries expire ttl
// after their last write.
func NewViewRepository(ttl time.Duration) *ViewRepository {
	return &ViewRepository{
		views: make(map[string]*domain.View),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (r *ViewRepository) Get(_ context.Context, id string) (*domain.View, error) {
	r.mu.RLock()
	v, ok := r.views[id]
	r.mu.RUnlock()

	if !ok || r.expired(v) {
		return nil, apperrors.NotFound("view", id)
	}
	return v.Clone(), nil
}

func (r *ViewRepository) Create(_ context.Context, view *domain.View) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.views[view.ID]; ok && !r.expired(existing) {
		return apperrors.Conflict("view " + view.ID + " already exists")
	}

	view.Version = 1
	r.views[view.ID] = r.stamp(view)
	return nil
}

func (r *ViewRepository) SaveIfVersion(_ context.Context, view *domain.View, expectedVersion int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.views[view.ID]
	if !ok || r.expired(current) {
		return false, apperrors.NotFound("view", view.ID)
	}
	if current.Version != expectedVersion {
		return false, nil
	}

	view.Version = expectedVersion + 1
	r.views[view.ID] = r.stamp(view)
	return true, nil
}

func (r *ViewRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.views[id]
	if !ok {
		return apperrors.NotFound("view", id)
	}
	delete(r.views, id)
	if r.expired(v) {
		return apperrors.NotFound("view", id)
	}
	return nil
}

func (r *ViewRepository) Ping(context.Context) error {
	return nil
}

// Len returns the number of stored views, expired ones included until the
// next sweep.
func (r *ViewRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.views)
}

// Sweep removes expired views and returns how many were dropped.
func (r *ViewRepository) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int
	for id, v := range r.views {
		if r.expired(v) {
			delete(r.views, id)
			n++
		}
	}
	return n
}

// RunJanitor sweeps expired views every interval until ctx is done.
func (r *ViewRepository) RunJanitor(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				logger.DebugContext(ctx, "expired views swept", slog.Int("count", n))
			}
		}
	}
}

// stamp returns the copy to store. The idle deadline is kept in the stored
// copy so reads see when the view will expire.
func (r *ViewRepository) stamp(view *domain.View) *domain.View {
	cp := view.Clone()
	if cp.ExpiresAt.IsZero() {
		cp.ExpiresAt = r.now().UTC().Add(r.ttl)
	}
	return cp
}

func (r *ViewRepository) expired(v *domain.View) bool {
	return !v.ExpiresAt.IsZero() && !r.now().Before(v.ExpiresAt)
}
