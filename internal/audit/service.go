package audit

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	return s.repo.LogEvent(ctx, event)
}

// LogAsync records an audit event in the background (non-blocking).
// The write is detached from any request context.
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.repo.LogEvent(ctx, event); err != nil {
			log.Printf("Failed to log audit event: %v", err)
		}
	}()
}

// Wait blocks until every event queued with LogAsync has been written.
func (s *Service) Wait() {
	s.pending.Wait()
}

// LogBorrow records a borrow attempt.
func (s *Service) LogBorrow(userID, bookID uint, reference string, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventBorrow,
		Action:      "book_borrow",
		Description: fmt.Sprintf("Borrow of book %d", bookID),
		EntityType:  "book",
		EntityID:    &bookID,
		Reference:   reference,
		Status:      entities.AuditStatusSuccess,
	}
	markFailed(event, err)
	s.LogAsync(event)
}

// LogReturn records a return attempt. override marks returns made by an
// administrator on behalf of the borrower.
func (s *Service) LogReturn(userID uint, reference string, override bool, err error) {
	action := "book_return"
	if override {
		action = "book_return_admin"
	}
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventReturn,
		Action:      action,
		Description: "Return of " + reference,
		EntityType:  "history",
		Reference:   reference,
		Status:      entities.AuditStatusSuccess,
	}
	markFailed(event, err)
	s.LogAsync(event)
}

// LogRestock records a change of owned copies.
func (s *Service) LogRestock(userID, bookID uint, delta int, err error) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventRestock,
		Action:      "book_restock",
		Description: fmt.Sprintf("Adjusted copies of book %d by %+d", bookID, delta),
		EntityType:  "book",
		EntityID:    &bookID,
		Status:      entities.AuditStatusSuccess,
	}
	markFailed(event, err)
	s.LogAsync(event)
}

// LogCatalog records a catalog change such as book_create or book_delete.
func (s *Service) LogCatalog(userID uint, action string, bookID uint, name string) {
	event := &entities.AuditEvent{
		UserID:      userID,
		EventType:   entities.AuditEventCatalog,
		Action:      action,
		Description: truncate(name, 500),
		EntityType:  "book",
		EntityID:    &bookID,
		Status:      entities.AuditStatusSuccess,
	}
	s.LogAsync(event)
}

// LogAccount records an account change such as user_register or user_delete.
func (s *Service) LogAccount(actorID uint, action string, subjectID uint, email string) {
	event := &entities.AuditEvent{
		UserID:      actorID,
		EventType:   entities.AuditEventAccount,
		Action:      action,
		Description: email,
		EntityType:  "user",
		EntityID:    &subjectID,
		Status:      entities.AuditStatusSuccess,
	}
	s.LogAsync(event)
}

// LogAuth records an authentication event.
func (s *Service) LogAuth(userID uint, action string, ipAddr string, success bool) {
	event := &entities.AuditEvent{
		UserID:    userID,
		EventType: entities.AuditEventAuth,
		Action:    action,
		IPAddress: ipAddr,
		Status:    entities.AuditStatusSuccess,
	}

	if !success {
		event.Status = entities.AuditStatusFailed
	}

	s.LogAsync(event)
}

// LogReconcile records the outcome of an inventory reconciliation run.
func (s *Service) LogReconcile(checked, mismatched int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventReconcile,
		Action:      "inventory_reconcile",
		Description: fmt.Sprintf("Checked %d books, %d mismatched", checked, mismatched),
		Status:      entities.AuditStatusSuccess,
	}
	if mismatched > 0 {
		event.Status = entities.AuditStatusFailed
	}
	markFailed(event, err)
	s.LogAsync(event)
}

// LogMetadataEnrich records a metadata enrichment event.
func (s *Service) LogMetadataEnrich(bookID uint, description string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventEnrich,
		Action:      "book_enrich",
		Description: description,
		EntityType:  "book",
		EntityID:    &bookID,
		Status:      entities.AuditStatusSuccess,
	}
	markFailed(event, err)
	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(ctx context.Context, q audit.EventQuery) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(ctx, q)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(ctx, cutoff)
}

func markFailed(event *entities.AuditEvent, err error) {
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
