package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/domain"
)

// --- Response Types ---

// ErrorResponse is the body of every failed API call. ErrorCode is the
// error kind, Details carries field errors for validation failures.
type ErrorResponse struct {
	Success   bool                `json:"success"`
	Error     string              `json:"error"`
	ErrorCode string              `json:"error_code"`
	Details   []domain.FieldError `json:"details,omitempty"`
}

// SuccessResponse acknowledges a write that returns no resource.
type SuccessResponse struct {
	Success bool `json:"success"`
}

const codeUnauthenticated = "unauthenticated"

var kindStatus = map[domain.Kind]int{
	domain.KindValidation:       http.StatusBadRequest,
	domain.KindNotFound:         http.StatusNotFound,
	domain.KindConflict:         http.StatusConflict,
	domain.KindOutOfStock:       http.StatusUnprocessableEntity,
	domain.KindForbidden:        http.StatusForbidden,
	domain.KindStoreUnavailable: http.StatusServiceUnavailable,
	domain.KindInternal:         http.StatusInternalServerError,
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind domain.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// --- Error Response Helpers ---

// respondError classifies err and sends the matching status. Messages of
// store and internal errors are logged, not exposed.
func respondError(c *gin.Context, err error, context string) {
	kind := domain.KindOf(err)
	resp := ErrorResponse{Error: err.Error(), ErrorCode: string(kind)}

	switch kind {
	case domain.KindValidation:
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			resp.Details = verr.Errors
		}
	case domain.KindStoreUnavailable:
		log.Printf("Store unavailable (%s): %v", context, err)
		resp.Error = "storage temporarily unavailable"
	case domain.KindInternal:
		log.Printf("Internal error (%s): %v", context, err)
		resp.Error = "internal server error"
	}
	c.JSON(statusFor(kind), resp)
}

// respondBadRequest sends a 400 validation error for one field.
func respondBadRequest(c *gin.Context, field, message string) {
	respondError(c, domain.NewValidationError(field, message), "")
}

// respondUnauthenticated sends a 401 Unauthorized response.
func respondUnauthenticated(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, ErrorResponse{Error: message, ErrorCode: codeUnauthenticated})
}

// --- Success Response Helpers ---

// respondSuccess sends {"success": true}.
func respondSuccess(c *gin.Context) {
	c.JSON(http.StatusOK, SuccessResponse{Success: true})
}

// respondCreated sends a 201 Created response with data.
func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, data)
}

// respondAccepted sends a 202 Accepted response for queued work.
func respondAccepted(c *gin.Context, data any) {
	c.JSON(http.StatusAccepted, data)
}

// --- Parameter Parsing ---

// parseIDParam extracts and validates an unsigned integer ID from URL parameters.
// Returns the parsed ID or responds with a 400 error and returns 0, false.
func parseIDParam(c *gin.Context, paramName string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(paramName), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, paramName, "must be a positive integer")
		return 0, false
	}
	return uint(id), true
}

// bindJSON decodes the request body into dst, responding 400 on malformed JSON.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondBadRequest(c, "body", "malformed JSON: "+err.Error())
		return false
	}
	return true
}

// parsePageRequest reads page and size from the query string. Missing values
// take the defaults; malformed or out-of-range ones are left for the
// reporting engine to reject.
func parsePageRequest(c *gin.Context) (domain.PageRequest, bool) {
	req := domain.PageRequest{Page: 1, Size: domain.DefaultPageSize}
	var errs []domain.FieldError

	if v := c.Query("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "page", Message: "must be an integer"})
		}
		req.Page = n
	}
	if v := c.Query("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, domain.FieldError{Field: "size", Message: "must be an integer"})
		}
		req.Size = n
	}

	if len(errs) > 0 {
		respondError(c, domain.NewValidationErrors(errs), "")
		return req, false
	}
	return req, true
}

// currentUserID returns the session user's ID.
func currentUserID(c *gin.Context) uint {
	return auth.GetUserID(c)
}

// respondPage sends one page of a listing with its items under key.
func respondPage[T any](c *gin.Context, key string, page domain.Page[T]) {
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		key:           page.Items,
		"total_count": page.TotalCount,
		"page_count":  page.PageCount,
		"page":        page.Page,
		"size":        page.Size,
	})
}
