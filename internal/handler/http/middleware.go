package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/bookshop/pkg/httputil"
)

// maxBodyBytes caps request bodies; the largest one is a quantity update.
const maxBodyBytes = 64 << 10

// ContentTypeJSON rejects bodies that are declared as anything but JSON and
// caps their size.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > 0 || r.Method == http.MethodPost || r.Method == http.MethodPut {
			ct := r.Header.Get("Content-Type")
			if ct != "" && !strings.HasPrefix(ct, "application/json") {
				httputil.WriteJSON(w, http.StatusUnsupportedMediaType, httputil.Response{
					Error: &httputil.ErrorResponse{Code: "UNSUPPORTED_MEDIA_TYPE", Message: "Content-Type must be application/json"},
				})
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// ValidViewID rejects requests whose view ID URL parameter is not a UUID.
func ValidViewID(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := httputil.ParseUUID(w, chi.URLParam(r, param)); !ok {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
