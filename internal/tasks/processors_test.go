package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/librarian/internal/circulation"
	"github.com/mrlokans/librarian/internal/database/books"
	"github.com/mrlokans/librarian/internal/entities"
	"github.com/mrlokans/librarian/internal/metadata"
)

type fakeChecker struct {
	report circulation.InventoryReport
	err    error
}

func (f fakeChecker) CheckInventory(ctx context.Context) (circulation.InventoryReport, error) {
	return f.report, f.err
}

type reconcileCall struct {
	checked, mismatched int
	err                 error
}

type fakeReconcileRecorder struct{ calls []reconcileCall }

func (f *fakeReconcileRecorder) LogReconcile(checked, mismatched int, err error) {
	f.calls = append(f.calls, reconcileCall{checked, mismatched, err})
}

func TestReconcileInventoryProcessor(t *testing.T) {
	ctx := context.Background()

	t.Run("mismatches are recorded but do not fail", func(t *testing.T) {
		rec := &fakeReconcileRecorder{}
		checker := fakeChecker{report: circulation.InventoryReport{
			Checked:    3,
			Mismatches: []books.InventoryRow{{BookID: 2, Copies: 2, Residue: 2, Outstanding: 1}},
		}}

		err := ReconcileInventoryProcessor(checker, rec)(ctx, ReconcileInventoryTask{Trigger: "cron"})
		require.NoError(t, err)
		require.Len(t, rec.calls, 1)
		assert.Equal(t, 3, rec.calls[0].checked)
		assert.Equal(t, 1, rec.calls[0].mismatched)
	})

	t.Run("store failure is retried", func(t *testing.T) {
		rec := &fakeReconcileRecorder{}
		boom := errors.New("boom")

		err := ReconcileInventoryProcessor(fakeChecker{err: boom}, rec)(ctx, ReconcileInventoryTask{})
		assert.ErrorIs(t, err, boom)
		require.Len(t, rec.calls, 1)
		assert.ErrorIs(t, rec.calls[0].err, boom)
	})

	t.Run("nil checker", func(t *testing.T) {
		err := ReconcileInventoryProcessor(nil, nil)(ctx, ReconcileInventoryTask{})
		assert.Error(t, err)
	})
}

type fakeCleaner struct{ retention time.Duration }

func (f *fakeCleaner) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	f.retention = retention
	return 4, nil
}

func TestCleanupAuditEventsProcessor(t *testing.T) {
	cleaner := &fakeCleaner{}
	process := CleanupAuditEventsProcessor(cleaner)

	require.NoError(t, process(context.Background(), CleanupAuditEventsTask{RetentionDays: 7}))
	assert.Equal(t, 7*24*time.Hour, cleaner.retention)

	require.NoError(t, process(context.Background(), CleanupAuditEventsTask{}))
	assert.Equal(t, 90*24*time.Hour, cleaner.retention)
}

type fakeEnricher struct {
	limit int
	err   error
}

func (f *fakeEnricher) EnrichBook(ctx context.Context, bookID uint) (*metadata.Result, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &metadata.Result{Book: &entities.Book{ID: bookID, Name: "Dune"}, FieldsUpdated: []string{"author"}}, nil
}

func (f *fakeEnricher) EnrichMissing(ctx context.Context, limit int) (*metadata.BatchResult, error) {
	f.limit = limit
	return &metadata.BatchResult{Total: 1, Enriched: 1}, nil
}

func TestEnrichProcessors(t *testing.T) {
	ctx := context.Background()
	enricher := &fakeEnricher{}

	require.NoError(t, EnrichBookProcessor(enricher)(ctx, EnrichBookTask{BookID: 1}))
	require.NoError(t, EnrichMissingBooksProcessor(enricher)(ctx, EnrichMissingBooksTask{}))
	assert.Equal(t, 500, enricher.limit)

	failing := &fakeEnricher{err: metadata.ErrNotFound}
	err := EnrichBookProcessor(failing)(ctx, EnrichBookTask{BookID: 9})
	assert.ErrorIs(t, err, metadata.ErrNotFound)
}
