package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/bookshop/internal/catalog"
	"github.com/utafrali/bookshop/internal/domain"
	"github.com/utafrali/bookshop/internal/event"
	"github.com/utafrali/bookshop/internal/repository/memory"
	"github.com/utafrali/bookshop/internal/service"
	"github.com/utafrali/bookshop/pkg/health"
	"github.com/utafrali/bookshop/pkg/httputil"
	"github.com/utafrali/bookshop/pkg/middleware"
)

// ============================================================================
// Test helpers
// ============================================================================

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fixedLoader struct {
	result catalog.Result
}

func (l fixedLoader) Load(context.Context) catalog.Result { return l.result }

func twoBooks() catalog.Result {
	return catalog.Result{
		Status: domain.CatalogLoaded,
		Items: []domain.CatalogItem{
			{ID: "0593321200", Title: "THE WOMEN", Author: "Kristin Hannah", Price: 10},
			{ID: "0385548958", Title: "FUNNY STORY", Author: "Emily Henry", Price: 5},
		},
	}
}

func newTestRouter(loader service.CatalogLoader) http.Handler {
	repo := memory.NewViewRepository(time.Hour)
	svc := service.NewStorefrontService(repo, loader, event.NoopPublisher{}, testLogger(), time.Hour)
	return NewRouter(svc, health.NewHandler("storefront"), testLogger(), RouterConfig{
		CORS: middleware.DefaultCORSConfig(),
	})
}

type viewEnvelope struct {
	Data  ViewResponse            `json:"data"`
	Error *httputil.ErrorResponse `json:"error"`
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, viewEnvelope) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env viewEnvelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func mount(t *testing.T, h http.Handler) ViewResponse {
	t.Helper()
	rec, env := do(t, h, http.MethodPost, "/api/v1/views", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return env.Data
}

// ============================================================================
// Mount / Get / Unmount
// ============================================================================

func TestMount_Created(t *testing.T) {
	h := newTestRouter(fixedLoader{result: twoBooks()})

	rec, env := do(t, h, http.MethodPost, "/api/v1/views", "")

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "/api/v1/views/"+env.Data.ID, rec.Header().Get("Location"))
	assert.Equal(t, domain.StorefrontTitle, env.Data.Title)
	assert.Equal(t, "loaded", env.Data.CatalogStatus)
	require.Len(t, env.Data.Items, 2)
	assert.Equal(t, 1, env.Data.Items[1].Index)
	assert.Equal(t, "₺10", env.Data.Items[0].PriceDisplay)
	assert.Equal(t, "0.00", env.Data.Total)
	assert.Equal(t, "₺0.00", env.Data.TotalDisplay)
}

func TestMount_CatalogFailure(t *testing.T) {
	h := newTestRouter(fixedLoader{result: catalog.Result{Items: []domain.CatalogItem{}, Status: domain.CatalogFailed}})

	view := mount(t, h)

	assert.Equal(t, "failed", view.CatalogStatus)
	assert.NotNil(t, view.Items)
	assert.Empty(t, view.Items)
	assert.Equal(t, "0.00", view.Total)
}

func TestGetView_InvalidUUID(t *testing.T) {
	h := newTestRouter(fixedLoader{result: twoBooks()})

	rec, env := do(t, h, http.MethodGet, "/api/v1/views/not-a-uuid", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_PARAMETER", env.Error.Code)
}

func TestGetView_NotFound(t *testing.T) {
	h := newTestRouter(fixedLoader{result: twoBooks()})

	rec, env := do(t, h, http.MethodGet, "/api/v1/views/"+uuid.NewString(), "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestUnmount(t *testing.T) {
	h := newTestRouter(fixedLoader{result: twoBooks()})
	view := mount(t, h)

	rec, _ := do(t, h, http.MethodDelete, "/api/v1/views/"+view.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"status":"unmounted"}}`, rec.Body.String())

	rec, _ = do(t, h, http.MethodGet, "/api/v1/views/"+view.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/api/v1/views/"+view.ID, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ============================================================================
// Cart interactions
// ============================================================================

func TestCartScenario(t *testing.T) {
	h := newTestRouter(fixedLoader{result: twoBooks()})
	base := "/api/v1/views/" + mount(t, h).ID

	rec, env := do(t, h, http.MethodPut, base+"/items/0/quantity", `{"quantity":"2"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, env.Data.Items[0].Quantity)
	assert.Equal(t, "0.00", env.Data.Total, "editing a quantity never recomputes the total")

	_, env = do(t, h, http.MethodPut, base+"/items/1/quantity", `{"quantity":1}`)
	assert.Equal(t, 1, env.Data.Items[1].Quantity)
	assert.Equal(t, 3, env.Data.ItemCount)

	rec, env = do(t, h, http.MethodPost, base+"/items/1/purchase", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "25.00", env.Data.Total)

	_, env = do(t, h, http.MethodPost, base+"/discount/toggle", "")
	assert.True(t, env.Data.StudentDiscountEnabled)
	assert.Equal(t, "20.00", env.Data.Total)
	assert.Equal(t, "₺20.00", env.Data.TotalDisplay)

	_, env = do(t, h, http.MethodPost, base+"/discount/toggle", "")
	assert.False(t, env.Data.StudentDiscountEnabled)
	assert.Equal(t, "25.00", env.Data.Total)

	_, env = do(t, h, http.MethodGet, base, "")
	assert.Equal(t, "25.00", env.Data.Total)
	assert.Equal(t, 6, env.Data.Version)
}

func TestSetQuantity_LenientParsing(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"string digits", `{"quantity":"3"}`, 3},
		{"letters", `{"quantity":"abc"}`, 0},
		{"negative string", `{"quantity":"-3"}`, 0},
		{"negative number", `{"quantity":-3}`, 0},
		{"fraction number", `{"quantity":3.9}`, 3},
		{"trailing garbage", `{"quantity":"12abc"}`, 12},
		{"empty string", `{"quantity":""}`, 0},
	}

	h := newTestRouter(fixedLoader{result: twoBooks()})
	base := "/api/v1/views/" + mount(t, h).ID

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPut, base+"/items/0/quantity", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, env.Data.Items[0].Quantity)
		})
	}
}

func TestSetQuantity_HugeQuantitiesKeepItemCountPositive(t *testing.T) {
	h := newTestRouter(fixedLoader{result: twoBooks()})
	base := "/api/v1/views/" + mount(t, h).ID

	do(t, h, http.MethodPut, base+"/items/0/quantity", `{"quantity":"9223372036854775807"}`)
	do(t, h, http.MethodPut, base+"/items/1/quantity", `{"quantity":"1"}`)
	rec, env := do(t, h, http.MethodPost, base+"/items/0/purchase", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 9223372036854775807, env.Data.ItemCount)
	assert.Equal(t, "92233720368547758075.00", env.Data.Total)
}

func TestSetQuantity_BadBodies(t *testing.T) {
	h := newTestRouter(fixedLoader{result: twoBooks()})
	base := "/api/v1/views/" + mount(t, h).ID

	rec, env := do(t, h, http.MethodPut, base+"/items/0/quantity", `{"quantity":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_INPUT", env.Error.Code)
	assert.Contains(t, env.Error.Message, "decode request body")

	rec, env = do(t, h, http.MethodPut, base+"/items/0/quantity", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Fields, "Quantity")

	rec, _ = do(t, h, http.MethodPut, base+"/items/0/quantity", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSetQuantity_WrongContentType(t *testing.T) {
	h := newTestRouter(fixedLoader{result: twoBooks()})
	base := "/api/v1/views/" + mount(t, h).ID

	req := httptest.NewRequest(http.MethodPut, base+"/items/0/quantity", strings.NewReader("quantity=2"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestItemIndexErrors(t *testing.T) {
	h := newTestRouter(fixedLoader{result: twoBooks()})
	base := "/api/v1/views/" + mount(t, h).ID

	rec, env := do(t, h, http.MethodPost, base+"/items/abc/purchase", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "INVALID_PARAMETER", env.Error.Code)

	rec, _ = do(t, h, http.MethodPost, base+"/items/-1/purchase", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, h, http.MethodPut, base+"/items/2/quantity", `{"quantity":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "item with id 2 not found", env.Error.Message)
}

// ============================================================================
// Ops endpoints
// ============================================================================

func TestHealthLive(t *testing.T) {
	h := newTestRouter(fixedLoader{result: twoBooks()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestRouter(fixedLoader{result: twoBooks()})
	mount(t, h)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
	assert.Contains(t, rec.Body.String(), "storefront_views_mounted_total")
}

func TestCORSPreflight(t *testing.T) {
	h := newTestRouter(fixedLoader{result: twoBooks()})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/views", nil)
	req.Header.Set("Origin", "https://shop.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
