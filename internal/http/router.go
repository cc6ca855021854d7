package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/demo"
	"github.com/mrlokans/librarian/internal/entities"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Use(auth.SecurityHeadersMiddleware())
	if cfg.SecureCookies {
		router.Use(auth.StrictTransportSecurityMiddleware())
	}

	// CSRF must run before the session middleware so that the session
	// context survives CSRF's request replacement.
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies))
	}
	router.Use(cfg.Sessions.SessionLoadSave())
	router.Use(cfg.AuthMiddleware.Handler())

	if cfg.DemoMode {
		router.Use(demo.NewMiddleware(true).Handler())
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	authController := NewAuthController(cfg.AuthService, cfg.Sessions, cfg.RateLimiter, cfg.Audit)
	booksController := NewBooksController(cfg.Reports, cfg.Catalog, cfg.Coordinator)
	circulationController := NewCirculationController(cfg.Coordinator)
	reportsController := NewReportsController(cfg.Reports)
	usersController := NewUsersController(cfg.AuthService)
	auditController := NewAuditController(cfg.Audit)
	var reconcileRecorder ReconcileRecorder
	if cfg.Audit != nil {
		reconcileRecorder = cfg.Audit
	}
	maintenance := NewMaintenanceController(cfg.TaskClient, cfg.Coordinator, cfg.Enricher, reconcileRecorder)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	// Session endpoints
	router.POST("/api/auth/logout", authController.Logout)
	router.GET("/api/auth/csrf", authController.CSRFToken)

	// Book cover endpoint
	if cfg.CoverCache != nil {
		coversController := NewCoversController(cfg.CoverCache, cfg.Catalog)
		router.GET("/api/books/:id/cover", coversController.GetCover)
	}

	// Reader API. Administrators hold a session with their own role and may
	// use it as well.
	userAPI := router.Group("/api/user/v1")
	userAPI.POST("/register", authController.Register)
	userAPI.POST("/login", authController.Login(entities.UserRoleUser))

	userAPI.Use(auth.RequireAuth())
	userAPI.GET("/summary", reportsController.UserSummary)
	userAPI.GET("/book", booksController.List)
	userAPI.GET("/history", reportsController.MyHistory)
	userAPI.POST("/borrow", circulationController.Borrow)
	userAPI.PATCH("/history", circulationController.Return(false))
	userAPI.PUT("/password", authController.ChangePassword)

	// Admin API
	adminAPI := router.Group("/api/admin/v1")
	adminAPI.POST("/login", authController.Login(entities.UserRoleAdmin))

	adminAPI.Use(auth.RequireRole(entities.UserRoleAdmin))
	adminAPI.GET("/summary", reportsController.Summary)

	adminAPI.GET("/book", booksController.List)
	adminAPI.POST("/book", booksController.Create)
	adminAPI.PUT("/book", booksController.Update)
	adminAPI.DELETE("/book", booksController.Delete)
	adminAPI.POST("/book/enrich", maintenance.EnrichMissing)
	adminAPI.GET("/book/:id", booksController.Get)
	adminAPI.PUT("/book/:id", booksController.Update)
	adminAPI.DELETE("/book/:id", booksController.Delete)
	adminAPI.POST("/book/:id/restock", booksController.Restock)
	adminAPI.POST("/book/:id/enrich", maintenance.EnrichBook)

	adminAPI.GET("/user", reportsController.Users)
	adminAPI.DELETE("/user/:id", usersController.Delete)

	adminAPI.GET("/history", reportsController.History)
	adminAPI.PATCH("/history", circulationController.Return(true))

	adminAPI.GET("/audit", auditController.GetAuditEvents)
	adminAPI.POST("/reconcile", maintenance.Reconcile)
	adminAPI.GET("/task/:id", maintenance.TaskStatus)

	return router
}
