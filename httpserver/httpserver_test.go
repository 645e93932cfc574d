package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWithOrigin(t *testing.T) {
	t.Run("origin lands in the request context", func(t *testing.T) {
		var got string
		handler := WithOrigin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = GetOrigin(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("x-relay-origin", "launch-frontend")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		require.Equal(t, "launch-frontend", got)
	})

	t.Run("overlong origin is rejected", func(t *testing.T) {
		handler := WithOrigin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("handler should not be reached")
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("x-relay-origin", strings.Repeat("a", 300))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing origin", func(t *testing.T) {
		handler := WithOrigin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Empty(t, GetOrigin(r.Context()))
		}))
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, http.StatusBadRequest, "missing submission key")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"error":"missing submission key"}`, rec.Body.String())
}
