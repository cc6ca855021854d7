package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/circulation"
)

// CirculationController lends and takes back copies.
type CirculationController struct {
	coordinator *circulation.Coordinator
}

func NewCirculationController(coordinator *circulation.Coordinator) *CirculationController {
	return &CirculationController{coordinator: coordinator}
}

type borrowRequest struct {
	BookID uint `json:"book_id"`
}

type returnRequest struct {
	Reference string `json:"borrow_reference"`
}

// Borrow handles POST /api/user/v1/borrow. The borrower is always the
// session user.
func (cc *CirculationController) Borrow(c *gin.Context) {
	var req borrowRequest
	if !bindJSON(c, &req) {
		return
	}

	ref, err := cc.coordinator.Borrow(c.Request.Context(), circulation.BorrowCommand{
		UserID: currentUserID(c),
		BookID: req.BookID,
	})
	if err != nil {
		respondError(c, err, "borrow")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "borrow_reference": ref})
}

// Return returns the PATCH history handler. With override set the caller
// may close borrows made by other users; only the admin group passes true.
func (cc *CirculationController) Return(override bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req returnRequest
		if !bindJSON(c, &req) {
			return
		}

		err := cc.coordinator.Return(c.Request.Context(), circulation.ReturnCommand{
			Reference:     req.Reference,
			UserID:        currentUserID(c),
			AdminOverride: override,
		})
		if err != nil {
			respondError(c, err, "return")
			return
		}

		respondSuccess(c)
	}
}
