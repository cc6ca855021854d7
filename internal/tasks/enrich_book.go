package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarian/internal/metadata"
)

// BookEnricher fills missing catalog metadata.
type BookEnricher interface {
	EnrichBook(ctx context.Context, bookID uint) (*metadata.Result, error)
	EnrichMissing(ctx context.Context, limit int) (*metadata.BatchResult, error)
}

// EnrichBookTask enriches a single book's metadata by ISBN.
type EnrichBookTask struct {
	BookID uint `json:"book_id"`
}

// Config returns the queue configuration for book enrichment tasks.
func (t EnrichBookTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "enrich_book",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// EnrichBookProcessor creates a processor function for EnrichBookTask.
func EnrichBookProcessor(enricher BookEnricher) backlite.QueueProcessor[EnrichBookTask] {
	return func(ctx context.Context, task EnrichBookTask) error {
		if enricher == nil {
			return fmt.Errorf("enricher not configured")
		}

		result, err := enricher.EnrichBook(ctx, task.BookID)
		if err != nil {
			return fmt.Errorf("enrich book %d: %w", task.BookID, err)
		}

		if len(result.FieldsUpdated) > 0 {
			log.Printf("[TASK] Enriched book %d (%s): updated %v",
				task.BookID, result.Book.Name, result.FieldsUpdated)
		} else {
			log.Printf("[TASK] Book %d (%s): no metadata updates needed",
				task.BookID, result.Book.Name)
		}
		return nil
	}
}

// NewEnrichBookQueue creates a backlite queue for book enrichment tasks.
func NewEnrichBookQueue(enricher BookEnricher) backlite.Queue {
	return backlite.NewQueue(EnrichBookProcessor(enricher))
}

// EnrichMissingBooksTask enriches every book that has an ISBN but lacks metadata.
type EnrichMissingBooksTask struct {
	Limit int `json:"limit,omitempty"`
}

// Config returns the queue configuration for bulk enrichment tasks.
func (t EnrichMissingBooksTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "enrich_missing_books",
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     60 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// EnrichMissingBooksProcessor creates a processor function for EnrichMissingBooksTask.
func EnrichMissingBooksProcessor(enricher BookEnricher) backlite.QueueProcessor[EnrichMissingBooksTask] {
	return func(ctx context.Context, task EnrichMissingBooksTask) error {
		if enricher == nil {
			return fmt.Errorf("enricher not configured")
		}

		limit := task.Limit
		if limit <= 0 {
			limit = 500
		}
		result, err := enricher.EnrichMissing(ctx, limit)
		if err != nil {
			return fmt.Errorf("enrich missing books: %w", err)
		}

		log.Printf("[TASK] Enrichment complete: %d total, %d enriched, %d skipped, %d failed",
			result.Total, result.Enriched, result.Skipped, result.Failed)
		return nil
	}
}

// NewEnrichMissingBooksQueue creates a backlite queue for bulk enrichment tasks.
func NewEnrichMissingBooksQueue(enricher BookEnricher) backlite.Queue {
	return backlite.NewQueue(EnrichMissingBooksProcessor(enricher))
}
