package http

import (
	"errors"
	"fmt"
	"math"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/entities"
)

const codeRateLimited = "rate_limited"

// AuthController handles registration, login, logout and password changes.
type AuthController struct {
	service  *auth.Service
	sessions *auth.SessionManager
	limiter  *auth.RateLimiter
	audit    *audit.Service
}

// NewAuthController creates an AuthController. limiter and auditService may be nil.
func NewAuthController(service *auth.Service, sessions *auth.SessionManager, limiter *auth.RateLimiter, auditService *audit.Service) *AuthController {
	return &AuthController{
		service:  service,
		sessions: sessions,
		limiter:  limiter,
		audit:    auditService,
	}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// UserResponse is the public view of an account.
type UserResponse struct {
	ID    uint              `json:"id"`
	Email string            `json:"email"`
	Role  entities.UserRole `json:"role"`
}

func newUserResponse(u *entities.User) UserResponse {
	return UserResponse{ID: u.ID, Email: u.Email, Role: u.Role}
}

// Register handles POST /api/user/v1/register.
func (ac *AuthController) Register(c *gin.Context) {
	var req credentialsRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := ac.service.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "register")
		return
	}

	respondCreated(c, gin.H{"success": true, "user": newUserResponse(user)})
}

// Login returns the login handler for accounts holding role. A reader
// account cannot sign in through the admin endpoint and vice versa.
func (ac *AuthController) Login(role entities.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req credentialsRequest
		if !bindJSON(c, &req) {
			return
		}
		ip := c.ClientIP()

		if ac.limiter != nil {
			if allowed, wait := ac.limiter.Allow(ip, req.Email); !allowed {
				ac.logAuth(0, "login_blocked", ip, false)
				respondRateLimited(c, wait.Seconds())
				return
			}
		}

		user, err := ac.service.Authenticate(c.Request.Context(), req.Email, req.Password, role)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidCredentials) {
				respondError(c, err, "login")
				return
			}
			ac.logAuth(0, "login_failed", ip, false)
			if ac.limiter != nil {
				if locked, wait := ac.limiter.RecordFailure(ip, req.Email); locked {
					respondRateLimited(c, wait.Seconds())
					return
				}
			}
			respondUnauthenticated(c, err.Error())
			return
		}

		if err := ac.sessions.CreateSession(c.Request, user); err != nil {
			respondError(c, err, "create session")
			return
		}
		if ac.limiter != nil {
			ac.limiter.RecordSuccess(ip, req.Email)
		}
		ac.logAuth(user.ID, "login", ip, true)

		c.JSON(http.StatusOK, gin.H{"success": true, "user": newUserResponse(user)})
	}
}

// Logout handles POST /api/auth/logout.
func (ac *AuthController) Logout(c *gin.Context) {
	userID := currentUserID(c)
	if err := ac.sessions.DestroySession(c.Request); err != nil {
		respondError(c, err, "logout")
		return
	}
	if userID != 0 {
		ac.logAuth(userID, "logout", c.ClientIP(), true)
	}
	respondSuccess(c)
}

// CSRFToken handles GET /api/auth/csrf. The token is also sent in the
// X-CSRF-Token response header of every request.
func (ac *AuthController) CSRFToken(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"csrf_token": auth.GetCSRFToken(c)})
}

// ChangePassword handles PUT /api/user/v1/password.
func (ac *AuthController) ChangePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	userID := currentUserID(c)
	err := ac.service.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			respondBadRequest(c, "current_password", "does not match")
			return
		}
		respondError(c, err, "change password")
		return
	}
	ac.logAuth(userID, "password_change", c.ClientIP(), true)
	respondSuccess(c)
}

func (ac *AuthController) logAuth(userID uint, action, ip string, success bool) {
	if ac.audit != nil {
		ac.audit.LogAuth(userID, action, ip, success)
	}
}

// respondRateLimited sends 429 with a Retry-After header in whole seconds.
func respondRateLimited(c *gin.Context, seconds float64) {
	retry := int(math.Ceil(seconds))
	c.Header("Retry-After", fmt.Sprintf("%d", retry))
	c.JSON(http.StatusTooManyRequests, ErrorResponse{
		Error:     fmt.Sprintf("too many login attempts, retry in %d seconds", retry),
		ErrorCode: codeRateLimited,
	})
}
