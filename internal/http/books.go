package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/catalog"
	"github.com/mrlokans/librarian/internal/circulation"
	"github.com/mrlokans/librarian/internal/domain"
	"github.com/mrlokans/librarian/internal/reporting"
)

// BooksController serves the catalog: listing for everyone signed in,
// editing and restocking for administrators.
type BooksController struct {
	reports     *reporting.Engine
	catalog     *catalog.Service
	coordinator *circulation.Coordinator
}

func NewBooksController(reports *reporting.Engine, catalogService *catalog.Service, coordinator *circulation.Coordinator) *BooksController {
	return &BooksController{
		reports:     reports,
		catalog:     catalogService,
		coordinator: coordinator,
	}
}

type restockRequest struct {
	Delta int `json:"delta"`
}

// List handles GET /api/{user,admin}/v1/book.
// Query: page, size, search_by, search_content, search_sort, sort_dir.
func (bc *BooksController) List(c *gin.Context) {
	pageReq, ok := parsePageRequest(c)
	if !ok {
		return
	}

	page, err := bc.reports.ListBooks(c.Request.Context(), reporting.BookQuery{
		PageRequest: pageReq,
		FilterField: c.Query("search_by"),
		FilterText:  c.Query("search_content"),
		SortField:   c.Query("search_sort"),
		SortDir:     domain.SortDirection(c.Query("sort_dir")),
	})
	if err != nil {
		respondError(c, err, "list books")
		return
	}
	respondPage(c, "books", page)
}

// Get handles GET /api/admin/v1/book/:id.
func (bc *BooksController) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.catalog.GetBook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "book": book})
}

// Create handles POST /api/admin/v1/book.
func (bc *BooksController) Create(c *gin.Context) {
	var in catalog.BookInput
	if !bindJSON(c, &in) {
		return
	}

	book, err := bc.catalog.CreateBook(c.Request.Context(), currentUserID(c), in)
	if err != nil {
		respondError(c, err, "create book")
		return
	}
	respondCreated(c, gin.H{"success": true, "book": book})
}

// Update handles PUT /api/admin/v1/book/:id and PUT /api/admin/v1/book?id=.
func (bc *BooksController) Update(c *gin.Context) {
	id, ok := bookIDFrom(c)
	if !ok {
		return
	}
	var patch catalog.BookPatch
	if !bindJSON(c, &patch) {
		return
	}

	book, err := bc.catalog.UpdateBook(c.Request.Context(), currentUserID(c), id, patch)
	if err != nil {
		respondError(c, err, "update book")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "book": book})
}

// Delete handles DELETE /api/admin/v1/book/:id and DELETE /api/admin/v1/book?id=.
func (bc *BooksController) Delete(c *gin.Context) {
	id, ok := bookIDFrom(c)
	if !ok {
		return
	}

	if err := bc.catalog.DeleteBook(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err, "delete book")
		return
	}
	respondSuccess(c)
}

// Restock handles POST /api/admin/v1/book/:id/restock with {"delta": n}.
func (bc *BooksController) Restock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req restockRequest
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	err := bc.coordinator.Restock(ctx, circulation.RestockCommand{
		BookID:  id,
		Delta:   req.Delta,
		ActorID: currentUserID(c),
	})
	if err != nil {
		respondError(c, err, "restock book")
		return
	}

	book, err := bc.catalog.GetBook(ctx, id)
	if err != nil {
		respondError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "book": book})
}

// bookIDFrom reads the book ID from the :id path segment, falling back to
// the id query parameter.
func bookIDFrom(c *gin.Context) (uint, bool) {
	if c.Param("id") != "" {
		return parseIDParam(c, "id")
	}
	id, err := strconv.ParseUint(c.Query("id"), 10, 32)
	if err != nil || id == 0 {
		respondBadRequest(c, "id", "must be a positive integer")
		return 0, false
	}
	return uint(id), true
}
