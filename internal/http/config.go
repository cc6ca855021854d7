package http

import (
	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/catalog"
	"github.com/mrlokans/librarian/internal/circulation"
	"github.com/mrlokans/librarian/internal/covers"
	"github.com/mrlokans/librarian/internal/metadata"
	"github.com/mrlokans/librarian/internal/reporting"
	"github.com/mrlokans/librarian/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database    Pinger
	Coordinator *circulation.Coordinator
	Reports     *reporting.Engine
	Catalog     *catalog.Service
	Audit       *audit.Service

	// Accounts and sessions
	AuthService    *auth.Service
	Sessions       *auth.SessionManager
	AuthMiddleware *auth.Middleware
	RateLimiter    *auth.RateLimiter

	// CSRF protection for cookie sessions. Empty secret disables it.
	CSRFSecret    []byte
	SecureCookies bool

	// Application info
	Version string

	// DemoMode rejects writes other than login and logout.
	DemoMode bool

	// Metadata enrichment (optional)
	Enricher *metadata.Enricher

	// Cover caching (optional)
	CoverCache *covers.Cache

	// Task queue client (optional). Without it maintenance runs inline.
	TaskClient *tasks.Client
}
