package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func authRequest(apiKey string, headers map[string]string) *httptest.ResponseRecorder {
	handler := Auth(apiKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/swap", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAuth(t *testing.T) {
	t.Parallel()

	t.Run("disabled without configured key", func(t *testing.T) {
		rec := authRequest("", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("accepts X-API-Key", func(t *testing.T) {
		rec := authRequest("sekret", map[string]string{"X-API-Key": "sekret"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("accepts bearer token", func(t *testing.T) {
		rec := authRequest("sekret", map[string]string{"Authorization": "Bearer sekret"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing key", func(t *testing.T) {
		rec := authRequest("sekret", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"success":false,"error":"unauthorized"}`, rec.Body.String())
	})

	t.Run("wrong key", func(t *testing.T) {
		rec := authRequest("sekret", map[string]string{"X-API-Key": "nope"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"success":false,"error":"unauthorized"}`, rec.Body.String())
	})
}

func TestCORS(t *testing.T) {
	t.Parallel()

	handler := CORS([]string{"https://app.example.com"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/price", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("unknown origin gets no headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/price", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/swap", nil)
		req.Header.Set("Origin", "https://app.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("wildcard allows any origin", func(t *testing.T) {
		wild := CORS([]string{"*"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		req := httptest.NewRequest(http.MethodPost, "/price", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		rec := httptest.NewRecorder()
		wild.ServeHTTP(rec, req)
		assert.Equal(t, "https://anywhere.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
