package interfaces

// This file contains compile-time interface implementation checks.
// They pin the concrete types wired in entrypoint to the narrow interfaces
// their consumers declare, so a renamed method fails the build here.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/catalog"
	"github.com/mrlokans/librarian/internal/circulation"
	"github.com/mrlokans/librarian/internal/covers"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/http"
	"github.com/mrlokans/librarian/internal/metadata"
	"github.com/mrlokans/librarian/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ circulation.TxRunner = (*database.Database)(nil)
var _ http.Pinger = (*database.Database)(nil)

// =============================================================================
// Audit Trail
// =============================================================================

var _ circulation.Recorder = (*audit.Service)(nil)
var _ catalog.Recorder = (*audit.Service)(nil)
var _ auth.Recorder = (*audit.Service)(nil)
var _ metadata.Recorder = (*audit.Service)(nil)
var _ tasks.ReconcileRecorder = (*audit.Service)(nil)
var _ tasks.AuditEventCleaner = (*audit.Service)(nil)
var _ http.ReconcileRecorder = (*audit.Service)(nil)

// =============================================================================
// Background Work
// =============================================================================

var _ tasks.InventoryChecker = (*circulation.Coordinator)(nil)
var _ tasks.BookEnricher = (*metadata.Enricher)(nil)

// =============================================================================
// External Services
// =============================================================================

var _ metadata.Provider = (*metadata.OpenLibraryClient)(nil)
var _ metadata.CoverInvalidator = (*covers.Cache)(nil)
