package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarian/internal/circulation"
)

// InventoryChecker compares copy counters with the borrow ledger.
type InventoryChecker interface {
	CheckInventory(ctx context.Context) (circulation.InventoryReport, error)
}

// ReconcileRecorder receives the outcome of each run.
type ReconcileRecorder interface {
	LogReconcile(checked, mismatched int, err error)
}

// ReconcileInventoryTask checks every book for copies - residue drifting
// away from its outstanding borrows. It only reports; it never repairs.
type ReconcileInventoryTask struct {
	Trigger string `json:"trigger,omitempty"` // "cron", "admin" or "cli"
}

// Config returns the queue configuration for reconciliation tasks.
func (t ReconcileInventoryTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "reconcile_inventory",
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ReconcileInventoryProcessor runs the check and records it. Mismatches are
// a result, not a failure, so they do not trigger a retry.
func ReconcileInventoryProcessor(checker InventoryChecker, recorder ReconcileRecorder) backlite.QueueProcessor[ReconcileInventoryTask] {
	return func(ctx context.Context, task ReconcileInventoryTask) error {
		if checker == nil {
			return fmt.Errorf("inventory checker not configured")
		}

		report, err := checker.CheckInventory(ctx)
		if recorder != nil {
			recorder.LogReconcile(report.Checked, len(report.Mismatches), err)
		}
		if err != nil {
			return fmt.Errorf("reconcile inventory: %w", err)
		}

		log.Printf("[TASK] Inventory reconciled (%s): %d books checked, %d mismatched",
			task.Trigger, report.Checked, len(report.Mismatches))
		return nil
	}
}

// NewReconcileInventoryQueue creates a backlite queue for reconciliation tasks.
func NewReconcileInventoryQueue(checker InventoryChecker, recorder ReconcileRecorder) backlite.Queue {
	return backlite.NewQueue(ReconcileInventoryProcessor(checker, recorder))
}
