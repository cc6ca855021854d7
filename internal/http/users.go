package http

import (
	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/auth"
)

// UsersController handles account administration.
type UsersController struct {
	service *auth.Service
}

func NewUsersController(service *auth.Service) *UsersController {
	return &UsersController{service: service}
}

// Delete handles DELETE /api/admin/v1/user/:id.
func (uc *UsersController) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := uc.service.DeleteUser(c.Request.Context(), currentUserID(c), id); err != nil {
		respondError(c, err, "delete user")
		return
	}
	respondSuccess(c)
}
