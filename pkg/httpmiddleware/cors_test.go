package httpmiddleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newCORSHandler(cfg CORSConfig) http.Handler {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return CORS(cfg)(next)
}

func doCORSRequest(h http.Handler, method, origin, requestMethod string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	if requestMethod != "" {
		req.Header.Set("Access-Control-Request-Method", requestMethod)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCORS_WildcardOrigin(t *testing.T) {
	h := newCORSHandler(CORSConfig{AllowedOrigins: []string{"*"}})

	rec := doCORSRequest(h, http.MethodGet, "https://shop.example.com", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_NoOriginHeaderPassesThrough(t *testing.T) {
	h := newCORSHandler(CORSConfig{AllowedOrigins: []string{"*"}})

	rec := doCORSRequest(h, http.MethodGet, "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Preflight(t *testing.T) {
	h := newCORSHandler(CORSConfig{
		AllowedOrigins: []string{"https://shop.example.com"},
		AllowedHeaders: []string{"Content-Type", "X-Api-Key"},
		MaxAge:         86400,
	})

	rec := doCORSRequest(h, http.MethodOptions, "https://shop.example.com", http.MethodPost)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "Content-Type, X-Api-Key", rec.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	assert.Contains(t, rec.Header().Values("Vary"), "Origin")
}

func TestCORS_PreflightDisallowedOrigin(t *testing.T) {
	h := newCORSHandler(CORSConfig{AllowedOrigins: []string{"https://shop.example.com"}})

	rec := doCORSRequest(h, http.MethodOptions, "https://evil.example.com", http.MethodPost)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_OriginMatchIsCaseInsensitive(t *testing.T) {
	h := newCORSHandler(CORSConfig{AllowedOrigins: []string{"https://Shop.Example.com"}})

	rec := doCORSRequest(h, http.MethodGet, "https://shop.example.com", "")
	assert.Equal(t, "https://Shop.Example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_CredentialsNeverWildcard(t *testing.T) {
	h := newCORSHandler(CORSConfig{
		AllowedOrigins:   []string{"https://shop.example.com"},
		AllowCredentials: true,
	})

	rec := doCORSRequest(h, http.MethodGet, "https://shop.example.com", "")
	assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
