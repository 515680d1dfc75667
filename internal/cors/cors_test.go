package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPolicy() *Policy {
	return NewPolicy(
		[]string{"https://lovable.dev", "https://lovable.app"},
		[]string{".lovable.dev", ".lovable.app"},
		"https://garage.example.com",
	)
}

func TestPolicyAllows(t *testing.T) {
	policy := testPolicy()

	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://lovable.dev", true},
		{"https://lovable.app", true},
		{"https://preview.lovable.dev", true},
		{"https://deep.sub.lovable.app", true},
		{"https://garage.example.com", true},
		{"https://evil-lovable.dev", false},
		{"https://lovable.dev.evil.com", false},
		{"http://preview.lovable.dev", false},
		{"https://other.example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			assert.Equal(t, tt.allowed, policy.Allows(tt.origin))
		})
	}
}

func newRouter(policy *Policy) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(policy))
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"pong": true})
	})
	return router
}

func TestMiddlewareAllowedOrigin(t *testing.T) {
	router := newRouter(testPolicy())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://preview.lovable.dev")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://preview.lovable.dev", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMiddlewareDisallowedOriginIsRejected(t *testing.T) {
	router := newRouter(testPolicy())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Body.String(), "origin_not_allowed")
}

func TestMiddlewarePreflight(t *testing.T) {
	router := newRouter(testPolicy())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://lovable.dev")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://lovable.dev", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
}

func TestMiddlewareNoOriginPassesThrough(t *testing.T) {
	// Non-browser callers send no Origin header and are not subject to the
	// allow-list.
	router := newRouter(testPolicy())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
