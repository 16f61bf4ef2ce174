package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/brigada-mx/backend-sub000/internal/models"
)

// fail attaches the error for the error handler middleware and aborts.
func fail(c *gin.Context, err error) {
	c.Error(err)
	c.Abort()
}

// failValidation wraps a binding error in the uniform envelope.
func failValidation(c *gin.Context, err error) {
	fail(c, models.NewValidationError(err.Error(), "Revisa los datos enviados.", "validation_error"))
}

func failPermission(c *gin.Context) {
	fail(c, models.NewPermissionDenied(
		"you do not have permission to perform this action",
		"No tienes permiso para hacer esto.",
		"permission_denied"))
}

// idParam parses the :id path segment.
func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		fail(c, models.NewValidationError(
			"invalid id parameter", "Revisa los datos enviados.", "validation_error"))
		return 0, false
	}
	return id, true
}
