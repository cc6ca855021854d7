package audit

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	auditRepo "github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	return NewService(auditRepo.NewRepository(db)), db
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		UserID:    1,
		EventType: entities.AuditEventCatalog,
		Action:    "book_create",
		Status:    entities.AuditStatusSuccess,
	}

	err := svc.Log(context.Background(), event)
	require.NoError(t, err)

	var saved entities.AuditEvent
	err = db.First(&saved, event.ID).Error
	require.NoError(t, err)
	assert.Equal(t, "book_create", saved.Action)
}

func TestService_LogBorrow(t *testing.T) {
	svc, db := setupTestService(t)

	t.Run("successful borrow", func(t *testing.T) {
		svc.LogBorrow(1, 7, "20260101-abc", nil)
		svc.Wait()

		var event entities.AuditEvent
		err := db.Where("reference = ?", "20260101-abc").First(&event).Error
		require.NoError(t, err)
		assert.Equal(t, entities.AuditEventBorrow, event.EventType)
		assert.Equal(t, entities.AuditStatusSuccess, event.Status)
		require.NotNil(t, event.EntityID)
		assert.Equal(t, uint(7), *event.EntityID)
	})

	t.Run("failed borrow", func(t *testing.T) {
		svc.LogBorrow(2, 8, "", errors.New("out of stock"))
		svc.Wait()

		var event entities.AuditEvent
		err := db.Where("user_id = ?", 2).First(&event).Error
		require.NoError(t, err)
		assert.Equal(t, entities.AuditStatusFailed, event.Status)
		assert.Equal(t, "out of stock", event.ErrorMsg)
	})
}

func TestService_LogReturn_AdminOverride(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogReturn(1, "ref-1", true, nil)
	svc.Wait()

	var event entities.AuditEvent
	require.NoError(t, db.Where("reference = ?", "ref-1").First(&event).Error)
	assert.Equal(t, "book_return_admin", event.Action)
}

func TestService_LogReconcile(t *testing.T) {
	svc, db := setupTestService(t)

	svc.LogReconcile(10, 2, nil)
	svc.Wait()

	var event entities.AuditEvent
	require.NoError(t, db.Where("action = ?", "inventory_reconcile").First(&event).Error)
	assert.Equal(t, entities.AuditStatusFailed, event.Status)
	assert.Equal(t, "Checked 10 books, 2 mismatched", event.Description)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Log(ctx, &entities.AuditEvent{Action: "old", CreatedAt: time.Now().Add(-48 * time.Hour)}))
	require.NoError(t, svc.Log(ctx, &entities.AuditEvent{Action: "new"}))

	deleted, err := svc.DeleteOldEvents(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	var count int64
	db.Model(&entities.AuditEvent{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("x", 600)
	assert.Len(t, truncate(long, 500), 500)
}
