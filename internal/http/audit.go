package http

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/audit"
	dbaudit "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/entities"
)

type AuditController struct {
	auditService *audit.Service
}

func NewAuditController(auditService *audit.Service) *AuditController {
	return &AuditController{
		auditService: auditService,
	}
}

// GetAuditEvents returns paginated audit events as JSON.
// GET /api/admin/v1/audit?page=&size=&type=&user_id=
func (ac *AuditController) GetAuditEvents(c *gin.Context) {
	pageReq, ok := parsePageRequest(c)
	if !ok {
		return
	}
	if err := pageReq.Validate(); err != nil {
		respondError(c, err, "audit events")
		return
	}

	q := dbaudit.EventQuery{
		EventType: entities.AuditEventType(c.Query("type")),
		Limit:     pageReq.Size,
		Offset:    pageReq.Offset(),
	}
	if v := c.Query("user_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			respondBadRequest(c, "user_id", "must be a positive integer")
			return
		}
		q.UserID = uint(id)
	}

	events, total, err := ac.auditService.GetEvents(c.Request.Context(), q)
	if err != nil {
		respondError(c, err, "audit events")
		return
	}
	respondPage(c, "events", domain.NewPage(events, total, pageReq))
}
