package entrypoint

import (
	"fmt"
	"log"
	"time"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/catalog"
	"github.com/mrlokans/librarian/internal/circulation"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/covers"
	"github.com/mrlokans/librarian/internal/database"
	"github.com/mrlokans/librarian/internal/metadata"
	"github.com/mrlokans/librarian/internal/reporting"
)

// openLibraryInterval spaces requests to OpenLibrary.
const openLibraryInterval = time.Second

// Services holds the application services shared by the server and the
// command line tools.
type Services struct {
	DB          *database.Database
	Audit       *audit.Service
	Auth        *auth.Service
	Coordinator *circulation.Coordinator
	Reports     *reporting.Engine
	Catalog     *catalog.Service

	// Optional; nil when disabled or unavailable.
	Covers   *covers.Cache
	Enricher *metadata.Enricher
}

// NewServices opens the database and builds every service on top of it.
func NewServices(cfg *config.Config) (*Services, error) {
	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	stores := db.Stores()
	auditService := audit.NewService(stores.Audit)

	s := &Services{
		DB:          db,
		Audit:       auditService,
		Auth:        auth.NewService(stores.Users, cfg.Auth, auditService),
		Coordinator: circulation.NewCoordinator(db, auditService),
		Reports:     reporting.NewEngine(stores),
		Catalog:     catalog.NewService(stores.Books, auditService),
	}

	coverCache, err := covers.NewCache(cfg.Covers.Dir)
	if err != nil {
		log.Printf("WARNING: Failed to initialize cover cache: %v", err)
	} else {
		log.Printf("Cover cache initialized at %s", coverCache.Dir())
		s.Covers = coverCache
	}

	if cfg.Metadata.Enabled {
		client := metadata.NewOpenLibraryClient(cfg.Metadata.OpenLibraryURL, openLibraryInterval)
		// A nil *covers.Cache must not reach the interface.
		var invalidator metadata.CoverInvalidator
		if s.Covers != nil {
			invalidator = s.Covers
		}
		s.Enricher = metadata.NewEnricher(client, stores.Books, invalidator, auditService)
	}

	return s, nil
}

// Close waits for pending audit writes and closes the database.
func (s *Services) Close() error {
	s.Audit.Wait()
	return s.DB.Close()
}
