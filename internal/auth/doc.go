// Package auth provides library accounts, sessions and access control.
//
// Readers register themselves; administrators are created from the command
// line. Both log in with email and password and receive a session cookie
// backed by scs. The login role is part of the session, so a reader session
// never satisfies RequireRole(entities.UserRoleAdmin).
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>  # CSRF key, generated if empty
//	AUTH_SESSION_LIFETIME=24h           # Session duration
//	AUTH_BCRYPT_COST=12                 # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true            # HTTPS-only cookies
//	AUTH_CSRF_ENABLED=true              # Require X-CSRF-Token on writes
//	AUTH_MAX_LOGIN_ATTEMPTS=5           # Failed logins before lockout
//
// # Usage
//
//	sessions, _ := auth.NewSessionManager(db, cfg.Auth)
//	authService := auth.NewService(stores.Users, cfg.Auth, auditService)
//	router.Use(sessions.SessionLoadSave(), auth.NewMiddleware(authService, sessions).Handler())
//	admin := router.Group("/api/admin/v1", auth.RequireRole(entities.UserRoleAdmin))
package auth
