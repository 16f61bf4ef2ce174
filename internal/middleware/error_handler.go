package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/brigada-mx/backend-sub000/internal/models"
)

// ErrorHandler renders every error attached to the context as the uniform
// envelope. Handlers attach errors with c.Error and abort; only the last one
// is rendered.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var apiErr *models.APIError
		if !errors.As(err, &apiErr) {
			apiErr = translate(err)
		}
		if apiErr.Status >= http.StatusInternalServerError {
			ContextLogger(c).Error("request failed", zap.Error(err))
		}

		if !c.Writer.Written() {
			c.JSON(apiErr.Status, apiErr)
		}
	}
}

// translate maps infrastructure errors onto the envelope. Unique-constraint
// violations become the deliberately vague integrity error; anything
// unrecognized is a 500.
func translate(err error) *models.APIError {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return models.NewIntegrityError()
	}

	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrTokenNotFound):
		return models.NewNotFound("resource not found", "No encontramos lo que buscas.")
	case errors.Is(err, models.ErrPermissionDenied):
		return models.NewPermissionDenied(
			err.Error(), "No tienes permiso para realizar esta acción.", "permission_denied")
	case errors.Is(err, models.ErrShiftAlreadyTaken):
		return models.NewValidationError(
			err.Error(), "Este turno ya fue tomado por alguien más.", "shift_taken")
	}

	return &models.APIError{
		Status:        http.StatusInternalServerError,
		Message:       "internal server error",
		MessageClient: "Algo salió mal, intenta de nuevo más tarde.",
		Type:          "server_error",
	}
}
