package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarian/internal/circulation"
	"github.com/mrlokans/librarian/internal/metadata"
	"github.com/mrlokans/librarian/internal/tasks"
)

// ReconcileRecorder receives the outcome of an inline reconcile run.
type ReconcileRecorder interface {
	LogReconcile(checked, mismatched int, err error)
}

// MaintenanceController triggers inventory reconciliation and metadata
// enrichment. With a task client the work is queued; without one it runs
// within the request.
type MaintenanceController struct {
	client      *tasks.Client
	coordinator *circulation.Coordinator
	enricher    *metadata.Enricher
	recorder    ReconcileRecorder
}

// NewMaintenanceController creates a MaintenanceController. client, enricher
// and recorder may be nil.
func NewMaintenanceController(client *tasks.Client, coordinator *circulation.Coordinator, enricher *metadata.Enricher, recorder ReconcileRecorder) *MaintenanceController {
	return &MaintenanceController{
		client:      client,
		coordinator: coordinator,
		enricher:    enricher,
		recorder:    recorder,
	}
}

// Reconcile handles POST /api/admin/v1/reconcile.
func (mc *MaintenanceController) Reconcile(c *gin.Context) {
	if mc.client != nil {
		mc.enqueue(c, tasks.ReconcileInventoryTask{Trigger: "admin"}, "reconcile_inventory")
		return
	}

	report, err := mc.coordinator.CheckInventory(c.Request.Context())
	if mc.recorder != nil {
		mc.recorder.LogReconcile(report.Checked, len(report.Mismatches), err)
	}
	if err != nil {
		respondError(c, err, "reconcile")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"consistent": report.Consistent(),
		"checked":    report.Checked,
		"mismatches": report.Mismatches,
	})
}

// EnrichBook handles POST /api/admin/v1/book/:id/enrich.
func (mc *MaintenanceController) EnrichBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if mc.enricher == nil {
		respondBadRequest(c, "metadata", "metadata enrichment is disabled")
		return
	}
	if mc.client != nil {
		mc.enqueue(c, tasks.EnrichBookTask{BookID: id}, "enrich_book")
		return
	}

	result, err := mc.enricher.EnrichBook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "enrich book")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"book":           result.Book,
		"fields_updated": result.FieldsUpdated,
	})
}

// EnrichMissing handles POST /api/admin/v1/book/enrich. It always queues
// because a full pass can outlive the request.
func (mc *MaintenanceController) EnrichMissing(c *gin.Context) {
	if mc.enricher == nil || mc.client == nil {
		respondBadRequest(c, "metadata", "background enrichment is unavailable")
		return
	}
	mc.enqueue(c, tasks.EnrichMissingBooksTask{}, "enrich_missing_books")
}

// TaskStatus handles GET /api/admin/v1/task/:id.
func (mc *MaintenanceController) TaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if mc.client == nil {
		respondBadRequest(c, "id", "task queue is disabled")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := mc.client.Status(ctx, taskID)
	if err != nil {
		respondError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"id":      taskID,
		"status":  taskStatusToString(status),
	})
}

func (mc *MaintenanceController) enqueue(c *gin.Context, task backlite.Task, taskType string) {
	id, err := mc.client.Enqueue(c.Request.Context(), task)
	if err != nil {
		respondError(c, err, "enqueue "+taskType)
		return
	}
	respondAccepted(c, gin.H{
		"success": true,
		"task_id": id,
		"type":    taskType,
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
