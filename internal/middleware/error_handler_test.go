package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brigada-mx/backend-sub000/internal/models"
)

func serveError(t *testing.T, err error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(ErrorHandler())
	router.GET("/boom", func(c *gin.Context) {
		c.Error(err)
		c.Abort()
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	return w
}

func TestErrorHandlerAPIError(t *testing.T) {
	w := serveError(t, models.NewPermissionDenied("nope", "No tienes permiso.", "permission_denied"))

	require.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"message":"nope"`)
	assert.Contains(t, w.Body.String(), `"message_client":"No tienes permiso."`)
	assert.Contains(t, w.Body.String(), `"type":"permission_denied"`)
}

func TestErrorHandlerPermissionSentinel(t *testing.T) {
	w := serveError(t, models.ErrPermissionDenied)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"permission_denied"`)
}

func TestErrorHandlerNotFound(t *testing.T) {
	w := serveError(t, models.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"not_found"`)
}

func TestErrorHandlerUniqueViolation(t *testing.T) {
	w := serveError(t, &pq.Error{Code: "23505", Constraint: "nurse_users_email_key"})

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"integrity_error"`)
	// The envelope must not leak schema details.
	assert.NotContains(t, w.Body.String(), "nurse_users_email_key")
}

func TestErrorHandlerShiftTaken(t *testing.T) {
	w := serveError(t, models.ErrShiftAlreadyTaken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"shift_taken"`)
}

func TestErrorHandlerUnknownError(t *testing.T) {
	w := serveError(t, errors.New("database on fire"))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"server_error"`)
	assert.NotContains(t, w.Body.String(), "database on fire")
}
