package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/jimmy12-d/rean-ai/internal/middleware"
)

func newCORSRouter(allowlist []string) *gin.Engine {
	router := gin.New()
	router.Use(middleware.CORS(allowlist))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func doCORS(router *gin.Engine, method string, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/health", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCORSEmptyAllowlistAllowsAnyOrigin(t *testing.T) {
	router := newCORSRouter(nil)
	w := doCORS(router, http.MethodGet, "http://anywhere.test")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestCORSAllowlistEchoesMatchingOrigin(t *testing.T) {
	router := newCORSRouter([]string{"http://classroom.test"})

	w := doCORS(router, http.MethodGet, "http://classroom.test")
	require.Equal(t, "http://classroom.test", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "Origin", w.Header().Get("Vary"))

	w = doCORS(router, http.MethodGet, "http://elsewhere.test")
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflightShortCircuits(t *testing.T) {
	router := newCORSRouter(nil)
	w := doCORS(router, http.MethodOptions, "http://anywhere.test")
	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
