package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/bookshop/pkg/errors"
	"github.com/utafrali/bookshop/pkg/logger"
	"github.com/utafrali/bookshop/pkg/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

// --- WriteJSON ---

func TestWriteJSON_SetsContentTypeAndStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusCreated, Response{Data: map[string]string{"total": "0.00"}})

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotNil(t, decode(t, rec).Data)
}

func TestResponse_OmitsEmptyFields(t *testing.T) {
	b, err := json.Marshal(Response{Data: "x"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"data":"x"}`, string(b))

	b, err = json.Marshal(Response{Error: &ErrorResponse{Code: "C", Message: "m"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":{"code":"C","message":"m"}}`, string(b))
}

// --- WriteError ---

func TestWriteError_AppError(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/views/x", nil)

	WriteError(rec, req, apperrors.NotFound("view", "x"), testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	assert.Equal(t, "view with id x not found", resp.Error.Message)
}

func TestWriteError_WrappedConflict(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", nil)

	WriteError(rec, req, fmt.Errorf("save: %w", apperrors.Conflict("view was modified concurrently")), testLogger())

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", decode(t, rec).Error.Code)
}

func TestWriteError_SentinelNotFound(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, fmt.Errorf("get: %w", apperrors.ErrNotFound), testLogger())

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, rec).Error.Code)
}

func TestWriteError_UnknownError_Returns500(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	WriteError(rec, req, fmt.Errorf("redis: connection refused"), testLogger())

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "INTERNAL_ERROR", resp.Error.Code)
	assert.NotContains(t, resp.Error.Message, "redis")
}

func TestWriteError_IncludesRequestID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(logger.WithCorrelationID(context.Background(), "corr-1"))

	WriteError(rec, req, apperrors.InvalidInput("bad"), testLogger())

	assert.Equal(t, "corr-1", decode(t, rec).Error.RequestID)
}

// --- WriteValidationError ---

func TestWriteValidationError_Fields(t *testing.T) {
	type body struct {
		Quantity string `validate:"max=2"`
	}
	err := validator.Validate(body{Quantity: "12345"})
	require.Error(t, err)

	rec := httptest.NewRecorder()
	WriteValidationError(rec, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	assert.Contains(t, resp.Error.Fields, "Quantity")
}

func TestWriteValidationError_NonValidationError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteValidationError(rec, fmt.Errorf("decode request body: EOF"))

	resp := decode(t, rec)
	assert.Equal(t, "INVALID_INPUT", resp.Error.Code)
	assert.Equal(t, "decode request body: EOF", resp.Error.Message)
}

// --- ParseUUID / ParseIndex ---

func TestParseUUID(t *testing.T) {
	rec := httptest.NewRecorder()
	id, ok := ParseUUID(rec, "550e8400-e29b-41d4-a716-446655440000")
	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())

	rec = httptest.NewRecorder()
	_, ok = ParseUUID(rec, "not-a-uuid")
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "not-a-uuid")
}

func TestParseIndex(t *testing.T) {
	rec := httptest.NewRecorder()
	idx, ok := ParseIndex(rec, "3")
	assert.True(t, ok)
	assert.Equal(t, 3, idx)

	for _, bad := range []string{"-1", "abc", "1.5", ""} {
		rec = httptest.NewRecorder()
		_, ok = ParseIndex(rec, bad)
		assert.False(t, ok, bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
		assert.Equal(t, "INVALID_PARAMETER", decode(t, rec).Error.Code)
	}
}
