package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/catalog"
	"github.com/mrlokans/librarian/internal/covers"
)

// CoversController handles book cover requests.
type CoversController struct {
	cache   *covers.Cache
	catalog *catalog.Service
}

// NewCoversController creates a new CoversController.
func NewCoversController(cache *covers.Cache, catalogService *catalog.Service) *CoversController {
	return &CoversController{
		cache:   cache,
		catalog: catalogService,
	}
}

// GetCover serves a cached book cover image.
// GET /api/books/:id/cover
func (cc *CoversController) GetCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := cc.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get cover")
		return
	}
	if book.CoverURL == "" {
		c.Status(http.StatusNotFound)
		return
	}

	cachePath, err := cc.cache.GetCover(c.Request.Context(), id, book.CoverURL)
	if err != nil {
		log.Printf("[COVERS] Falling back to remote cover for book %d: %v", id, err)
		c.Redirect(http.StatusTemporaryRedirect, book.CoverURL)
		return
	}

	// Overrides the no-store default of SecurityHeadersMiddleware.
	c.Header("Cache-Control", "public, max-age=86400")
	c.File(cachePath)
}
