package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/reporting"
)

// ReportsController serves summaries and ledger listings.
type ReportsController struct {
	reports *reporting.Engine
}

func NewReportsController(reports *reporting.Engine) *ReportsController {
	return &ReportsController{reports: reports}
}

// Summary handles GET /api/admin/v1/summary.
func (rc *ReportsController) Summary(c *gin.Context) {
	summary, err := rc.reports.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err, "summary")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}

// UserSummary handles GET /api/user/v1/summary for the session user.
func (rc *ReportsController) UserSummary(c *gin.Context) {
	summary, err := rc.reports.UserSummary(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, err, "user summary")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "summary": summary})
}

// MyHistory handles GET /api/user/v1/history. Query: page, size, search_name.
func (rc *ReportsController) MyHistory(c *gin.Context) {
	pageReq, ok := parsePageRequest(c)
	if !ok {
		return
	}

	page, err := rc.reports.ListUserHistory(c.Request.Context(), currentUserID(c), reporting.UserHistoryQuery{
		PageRequest: pageReq,
		NameFilter:  c.Query("search_name"),
	})
	if err != nil {
		respondError(c, err, "user history")
		return
	}
	respondPage(c, "histories", page)
}

// History handles GET /api/admin/v1/history.
// Query: page, size, search_type (email, name, isbn), search_content.
func (rc *ReportsController) History(c *gin.Context) {
	pageReq, ok := parsePageRequest(c)
	if !ok {
		return
	}

	page, err := rc.reports.ListHistory(c.Request.Context(), reporting.HistoryQuery{
		PageRequest: pageReq,
		FilterType:  c.Query("search_type"),
		FilterText:  c.Query("search_content"),
	})
	if err != nil {
		respondError(c, err, "history")
		return
	}
	respondPage(c, "histories", page)
}

// Users handles GET /api/admin/v1/user. Query: page, size, search_email.
func (rc *ReportsController) Users(c *gin.Context) {
	pageReq, ok := parsePageRequest(c)
	if !ok {
		return
	}

	page, err := rc.reports.ListUsers(c.Request.Context(), reporting.UserQuery{
		PageRequest: pageReq,
		EmailFilter: c.Query("search_email"),
	})
	if err != nil {
		respondError(c, err, "users")
		return
	}
	respondPage(c, "users", page)
}
