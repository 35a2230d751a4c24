package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/bookshop/internal/catalog"
	"github.com/utafrali/bookshop/internal/domain"
	"github.com/utafrali/bookshop/internal/event"
	"github.com/utafrali/bookshop/internal/repository"
	apperrors "github.com/utafrali/bookshop/pkg/errors"
)

// CatalogLoader loads the catalog of a newly mounted view.
type CatalogLoader interface {
	Load(ctx context.Context) catalog.Result
}

// StorefrontService implements the storefront operations on mounted views.
type StorefrontService struct {
	repo    repository.ViewRepository
	loader  CatalogLoader
	events  event.Publisher
	logger  *slog.Logger
	viewTTL time.Duration
	now     func() time.Time
}

// NewStorefrontService creates a new storefront service. A nil publisher
// disables events.
func NewStorefrontService(
	repo repository.ViewRepository,
	loader CatalogLoader,
	events event.Publisher,
	logger *slog.Logger,
	viewTTL time.Duration,
) *StorefrontService {
	if events == nil {
		events = event.NoopPublisher{}
	}
	return &StorefrontService{
		repo:    repo,
		loader:  loader,
		events:  events,
		logger:  logger,
		viewTTL: viewTTL,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Mount creates a view and loads its catalog exactly once. A failed catalog
// load still mounts the view, with an empty catalog.
func (s *StorefrontService) Mount(ctx context.Context) (*domain.View, error) {
	res := s.loader.Load(ctx)

	now := s.now()
	view := &domain.View{
		ID:            uuid.NewString(),
		Title:         domain.StorefrontTitle,
		Currency:      domain.Currency,
		Items:         res.Items,
		Total:         domain.FormatTotal(domain.ComputeTotal(nil, false)),
		CatalogStatus: res.Status,
		CreatedAt:     now,
		UpdatedAt:     now,
		ExpiresAt:     now.Add(s.viewTTL),
	}
	if view.Items == nil {
		view.Items = []domain.CatalogItem{}
	}

	if err := s.repo.Create(ctx, view); err != nil {
		return nil, fmt.Errorf("create view: %w", err)
	}
	viewsMountedTotal.WithLabelValues(string(view.CatalogStatus)).Inc()

	s.logger.InfoContext(ctx, "view mounted",
		slog.String("view_id", view.ID),
		slog.String("catalog_status", string(view.CatalogStatus)),
		slog.Int("items", len(view.Items)),
	)

	return view, nil
}

// GetView returns the current state of a view.
func (s *StorefrontService) GetView(ctx context.Context, viewID string) (*domain.View, error) {
	if viewID == "" {
		return nil, apperrors.InvalidInput("view id is required")
	}

	view, err := s.repo.Get(ctx, viewID)
	if err != nil {
		return nil, fmt.Errorf("get view: %w", err)
	}
	return view, nil
}

// SetQuantity replaces the quantity of one item with the value parsed from
// raw. Unparseable or negative input becomes 0. The displayed total is not
// recomputed.
func (s *StorefrontService) SetQuantity(ctx context.Context, viewID string, index int, raw string) (*domain.View, error) {
	var qty int
	view, err := s.mutate(ctx, viewID, func(v *domain.View) error {
		if !v.HasItem(index) {
			return itemNotFound(index)
		}
		qty = v.SetQuantity(index, raw)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "item quantity set",
		slog.String("view_id", viewID),
		slog.Int("index", index),
		slog.Int("quantity", qty),
	)
	return view, nil
}

// ConfirmPurchase keeps the current quantity of one item and recomputes the
// displayed total.
func (s *StorefrontService) ConfirmPurchase(ctx context.Context, viewID string, index int) (*domain.View, error) {
	var qty int
	view, err := s.mutate(ctx, viewID, func(v *domain.View) error {
		if !v.HasItem(index) {
			return itemNotFound(index)
		}
		qty = v.ConfirmPurchase(index)
		return nil
	})
	if err != nil {
		return nil, err
	}
	purchasesConfirmedTotal.Inc()

	if err := s.events.PublishPurchaseConfirmed(ctx, view, index); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish purchase.confirmed event",
			slog.String("view_id", viewID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "purchase confirmed",
		slog.String("view_id", viewID),
		slog.Int("index", index),
		slog.Int("quantity", qty),
		slog.String("total", view.Total),
	)
	return view, nil
}

// ToggleDiscount flips the student discount and recomputes the total with the
// new flag.
func (s *StorefrontService) ToggleDiscount(ctx context.Context, viewID string) (*domain.View, error) {
	var enabled bool
	view, err := s.mutate(ctx, viewID, func(v *domain.View) error {
		enabled = v.ToggleDiscount()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishDiscountToggled(ctx, view); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish discount.toggled event",
			slog.String("view_id", viewID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "student discount toggled",
		slog.String("view_id", viewID),
		slog.Bool("enabled", enabled),
		slog.String("total", view.Total),
	)
	return view, nil
}

// Unmount discards a view.
func (s *StorefrontService) Unmount(ctx context.Context, viewID string) error {
	if viewID == "" {
		return apperrors.InvalidInput("view id is required")
	}

	if err := s.repo.Delete(ctx, viewID); err != nil {
		return fmt.Errorf("delete view: %w", err)
	}

	s.logger.InfoContext(ctx, "view unmounted", slog.String("view_id", viewID))
	return nil
}

// mutate is the optimistic read-modify-write shared by every mutation. When
// apply fails nothing is written. Each successful write extends the view's
// idle TTL.
func (s *StorefrontService) mutate(ctx context.Context, viewID string, apply func(*domain.View) error) (*domain.View, error) {
	if viewID == "" {
		return nil, apperrors.InvalidInput("view id is required")
	}

	view, err := s.repo.Get(ctx, viewID)
	if err != nil {
		return nil, fmt.Errorf("get view for update: %w", err)
	}

	expectedVersion := view.Version
	if err := apply(view); err != nil {
		return nil, err
	}

	now := s.now()
	view.UpdatedAt = now
	view.ExpiresAt = now.Add(s.viewTTL)

	ok, err := s.repo.SaveIfVersion(ctx, view, expectedVersion)
	if err != nil {
		return nil, fmt.Errorf("save view: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("view was modified concurrently, please retry")
	}
	return view, nil
}

func itemNotFound(index int) error {
	return apperrors.NotFound("item", strconv.Itoa(index))
}
