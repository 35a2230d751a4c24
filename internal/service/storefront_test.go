package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/bookshop/internal/catalog"
	"github.com/utafrali/bookshop/internal/domain"
	"github.com/utafrali/bookshop/internal/repository/memory"
	apperrors "github.com/utafrali/bookshop/pkg/errors"
)

// --- Mock Repository ---

type mockViewRepository struct {
	mock.Mock
}

func (m *mockViewRepository) Get(ctx context.Context, id string) (*domain.View, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.View), args.Error(1)
}

func (m *mockViewRepository) Create(ctx context.Context, view *domain.View) error {
	args := m.Called(ctx, view)
	return args.Error(0)
}

func (m *mockViewRepository) SaveIfVersion(ctx context.Context, view *domain.View, expectedVersion int) (bool, error) {
	args := m.Called(ctx, view, expectedVersion)
	return args.Bool(0), args.Error(1)
}

func (m *mockViewRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockViewRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// --- Fakes ---

type stubLoader struct {
	result catalog.Result
	calls  int
}

func (l *stubLoader) Load(context.Context) catalog.Result {
	l.calls++
	return l.result
}

type recordingPublisher struct {
	purchases []int
	toggles   []bool
	err       error
}

func (p *recordingPublisher) PublishPurchaseConfirmed(_ context.Context, _ *domain.View, index int) error {
	p.purchases = append(p.purchases, index)
	return p.err
}

func (p *recordingPublisher) PublishDiscountToggled(_ context.Context, view *domain.View) error {
	p.toggles = append(p.toggles, view.StudentDiscountEnabled)
	return p.err
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func loadedCatalog() catalog.Result {
	return catalog.Result{
		Status: domain.CatalogLoaded,
		Items: []domain.CatalogItem{
			{ID: "0593321200", Title: "THE WOMEN", Author: "Kristin Hannah", Price: 10},
			{ID: "0385548958", Title: "FUNNY STORY", Author: "Emily Henry", Price: 5},
		},
	}
}

// newMemoryService wires the service to a real in-memory repository.
func newMemoryService(loader CatalogLoader, pub *recordingPublisher) *StorefrontService {
	repo := memory.NewViewRepository(30 * time.Minute)
	return NewStorefrontService(repo, loader, pub, newTestLogger(), 30*time.Minute)
}

func mountedView(t *testing.T, svc *StorefrontService) *domain.View {
	t.Helper()
	view, err := svc.Mount(context.Background())
	require.NoError(t, err)
	return view
}

func counterValue(t *testing.T) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, purchasesConfirmedTotal.Write(&m))
	return m.GetCounter().GetValue()
}

// ============================================================================
// Mount Tests
// ============================================================================

func TestMount_LoadsCatalogOnce(t *testing.T) {
	loader := &stubLoader{result: loadedCatalog()}
	svc := newMemoryService(loader, &recordingPublisher{})

	view := mountedView(t, svc)

	_, err := uuid.Parse(view.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls)
	assert.Equal(t, domain.StorefrontTitle, view.Title)
	assert.Equal(t, "TRY", view.Currency)
	assert.Equal(t, domain.CatalogLoaded, view.CatalogStatus)
	assert.Len(t, view.Items, 2)
	assert.Equal(t, "0.00", view.Total)
	assert.False(t, view.StudentDiscountEnabled)
	assert.Equal(t, 1, view.Version)

	_, err = svc.GetView(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.calls, "reading a view never reloads the catalog")
}

func TestMount_FailedCatalogStillMounts(t *testing.T) {
	loader := &stubLoader{result: catalog.Result{Status: domain.CatalogFailed}}
	svc := newMemoryService(loader, &recordingPublisher{})

	view := mountedView(t, svc)

	assert.Equal(t, domain.CatalogFailed, view.CatalogStatus)
	assert.NotNil(t, view.Items)
	assert.Empty(t, view.Items)
	assert.Equal(t, "0.00", view.Total)

	view, err := svc.ToggleDiscount(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", view.Total)
}

func TestMount_CreateError(t *testing.T) {
	repo := new(mockViewRepository)
	svc := NewStorefrontService(repo, &stubLoader{result: loadedCatalog()}, nil, newTestLogger(), time.Minute)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.View")).Return(errors.New("redis down"))

	_, err := svc.Mount(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create view")

	repo.AssertExpectations(t)
}

// ============================================================================
// Quantity / purchase / discount Tests
// ============================================================================

func TestSetQuantity_DoesNotChangeTotal(t *testing.T) {
	svc := newMemoryService(&stubLoader{result: loadedCatalog()}, &recordingPublisher{})
	view := mountedView(t, svc)
	ctx := context.Background()

	view, err := svc.SetQuantity(ctx, view.ID, 0, "2")
	require.NoError(t, err)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, "0.00", view.Total)

	view, err = svc.ConfirmPurchase(ctx, view.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, "20.00", view.Total)
}

func TestSetQuantity_InvalidInputBecomesZero(t *testing.T) {
	svc := newMemoryService(&stubLoader{result: loadedCatalog()}, &recordingPublisher{})
	view := mountedView(t, svc)
	ctx := context.Background()

	for _, raw := range []string{"abc", "-3", ""} {
		_, err := svc.SetQuantity(ctx, view.ID, 1, "4")
		require.NoError(t, err)

		got, err := svc.SetQuantity(ctx, view.ID, 1, raw)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Items[1].Quantity, "input %q", raw)
	}
}

func TestSetQuantity_IndexOutOfRange(t *testing.T) {
	svc := newMemoryService(&stubLoader{result: loadedCatalog()}, &recordingPublisher{})
	view := mountedView(t, svc)

	_, err := svc.SetQuantity(context.Background(), view.ID, 2, "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	stored, err := svc.GetView(context.Background(), view.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version, "a rejected mutation writes nothing")
}

func TestConfirmPurchase_ScenarioWithDiscount(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newMemoryService(&stubLoader{result: loadedCatalog()}, pub)
	view := mountedView(t, svc)
	ctx := context.Background()
	before := counterValue(t)

	_, err := svc.SetQuantity(ctx, view.ID, 0, "2")
	require.NoError(t, err)
	_, err = svc.SetQuantity(ctx, view.ID, 1, "1")
	require.NoError(t, err)

	view, err = svc.ConfirmPurchase(ctx, view.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, "25.00", view.Total)
	assert.Equal(t, before+1, counterValue(t))
	assert.Equal(t, []int{1}, pub.purchases)

	view, err = svc.ToggleDiscount(ctx, view.ID)
	require.NoError(t, err)
	assert.True(t, view.StudentDiscountEnabled)
	assert.Equal(t, "20.00", view.Total)

	view, err = svc.ToggleDiscount(ctx, view.ID)
	require.NoError(t, err)
	assert.Equal(t, "25.00", view.Total)
	assert.Equal(t, []bool{true, false}, pub.toggles)
}

func TestConfirmPurchase_IndexOutOfRange(t *testing.T) {
	pub := &recordingPublisher{}
	svc := newMemoryService(&stubLoader{result: loadedCatalog()}, pub)
	view := mountedView(t, svc)

	_, err := svc.ConfirmPurchase(context.Background(), view.ID, 7)
	require.Error(t, err)
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
	assert.Empty(t, pub.purchases)
}

func TestToggleDiscount_PublishFailureDoesNotFail(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	svc := newMemoryService(&stubLoader{result: loadedCatalog()}, pub)
	view := mountedView(t, svc)

	view, err := svc.ToggleDiscount(context.Background(), view.ID)
	require.NoError(t, err)
	assert.True(t, view.StudentDiscountEnabled)
	assert.Len(t, pub.toggles, 1)
}

func TestMutation_UnknownView(t *testing.T) {
	svc := newMemoryService(&stubLoader{result: loadedCatalog()}, &recordingPublisher{})

	_, err := svc.ToggleDiscount(context.Background(), uuid.NewString())
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestMutation_EmptyViewID(t *testing.T) {
	svc := newMemoryService(&stubLoader{result: loadedCatalog()}, &recordingPublisher{})

	_, err := svc.SetQuantity(context.Background(), "", 0, "1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
}

func TestMutation_LostRaceIsConflict(t *testing.T) {
	repo := new(mockViewRepository)
	pub := &recordingPublisher{}
	svc := NewStorefrontService(repo, &stubLoader{}, pub, newTestLogger(), time.Minute)
	ctx := context.Background()

	stored := &domain.View{ID: "v1", Items: loadedCatalog().Items, Total: "0.00", Version: 3}
	repo.On("Get", ctx, "v1").Return(stored, nil)
	repo.On("SaveIfVersion", ctx, stored, 3).Return(false, nil)

	_, err := svc.ConfirmPurchase(ctx, "v1", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Empty(t, pub.purchases, "no event for a lost race")

	repo.AssertExpectations(t)
}

func TestMutation_SaveError(t *testing.T) {
	repo := new(mockViewRepository)
	svc := NewStorefrontService(repo, &stubLoader{}, nil, newTestLogger(), time.Minute)
	ctx := context.Background()

	stored := &domain.View{ID: "v1", Items: loadedCatalog().Items, Version: 1}
	repo.On("Get", ctx, "v1").Return(stored, nil)
	repo.On("SaveIfVersion", ctx, stored, 1).Return(false, errors.New("connection reset"))

	_, err := svc.ToggleDiscount(ctx, "v1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "save view")
	assert.Equal(t, 500, apperrors.HTTPStatus(err))
}

func TestMutation_ViewExpiredBeforeSaveIsNotFound(t *testing.T) {
	repo := new(mockViewRepository)
	pub := &recordingPublisher{}
	svc := NewStorefrontService(repo, &stubLoader{}, pub, newTestLogger(), time.Minute)
	ctx := context.Background()

	stored := &domain.View{ID: "v1", Items: loadedCatalog().Items, Total: "0.00", Version: 2}
	repo.On("Get", ctx, "v1").Return(stored, nil)
	repo.On("SaveIfVersion", ctx, stored, 2).Return(false, apperrors.NotFound("view", "v1"))

	_, err := svc.ConfirmPurchase(ctx, "v1", 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.False(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, 404, apperrors.HTTPStatus(err))
	assert.Empty(t, pub.purchases)

	repo.AssertExpectations(t)
}

func TestMutation_ExtendsTTL(t *testing.T) {
	repo := new(mockViewRepository)
	svc := NewStorefrontService(repo, &stubLoader{}, nil, newTestLogger(), 10*time.Minute)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }
	ctx := context.Background()

	stored := &domain.View{ID: "v1", Items: loadedCatalog().Items, Version: 1}
	repo.On("Get", ctx, "v1").Return(stored, nil)
	repo.On("SaveIfVersion", ctx, stored, 1).Return(true, nil).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.View).Version++
	})

	view, err := svc.SetQuantity(ctx, "v1", 0, "1")
	require.NoError(t, err)
	assert.Equal(t, fixed.Add(10*time.Minute), view.ExpiresAt)
	assert.Equal(t, fixed, view.UpdatedAt)
	assert.Equal(t, 2, view.Version)
}

// ============================================================================
// Unmount Tests
// ============================================================================

func TestUnmount(t *testing.T) {
	svc := newMemoryService(&stubLoader{result: loadedCatalog()}, &recordingPublisher{})
	view := mountedView(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.Unmount(ctx, view.ID))

	_, err := svc.GetView(ctx, view.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	err = svc.Unmount(ctx, view.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
