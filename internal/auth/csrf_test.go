package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCSRFMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CSRFMiddleware([]byte("0123456789abcdef0123456789abcdef"), false))
	reached := false
	handler := func(c *gin.Context) {
		reached = true
		c.String(http.StatusOK, GetCSRFToken(c))
	}
	r.GET("/token", handler)
	r.POST("/borrow", handler)

	t.Run("safe method issues a token", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/token", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(CSRFTokenHeader))
		assert.Equal(t, w.Header().Get(CSRFTokenHeader), w.Body.String())
	})

	t.Run("write without token is rejected", func(t *testing.T) {
		reached = false
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/borrow", strings.NewReader(`{}`)))
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), `"error_code":"forbidden"`)
		assert.False(t, reached, "handler must not run after a CSRF failure")
	})
}
