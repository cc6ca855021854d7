// Package demo provides a read-only demo mode and the sample library that
// backs it.
package demo

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Middleware blocks write operations in demo mode.
// Read-only operations (GET) are always allowed, as are the session
// endpoints so visitors can sign in to the seeded accounts.
type Middleware struct {
	enabled bool
}

// NewMiddleware creates a demo mode middleware.
func NewMiddleware(enabled bool) *Middleware {
	return &Middleware{enabled: enabled}
}

// IsEnabled returns whether demo mode is active.
func (m *Middleware) IsEnabled() bool {
	return m.enabled
}

// Handler returns a Gin middleware that blocks write operations.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.enabled {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if isAllowedPath(c.Request.URL.Path) {
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"success":    false,
			"error":      "this action is disabled in demo mode",
			"error_code": "forbidden",
			"demo_mode":  true,
		})
	}
}

// allowedSuffixes are write endpoints that stay open in demo mode.
var allowedSuffixes = []string{
	"/login",
	"/logout",
}

func isAllowedPath(path string) bool {
	for _, suffix := range allowedSuffixes {
		if strings.HasSuffix(path, suffix) {
			return true
		}
	}
	return false
}
