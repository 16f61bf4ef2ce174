package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brigada-mx/backend-sub000/internal/auth"
	"github.com/brigada-mx/backend-sub000/internal/models"
	"github.com/brigada-mx/backend-sub000/internal/services"
)

const IdentityKey = "identity"

// IdentityFrom returns the authenticated identity stored by Authentication.
func IdentityFrom(c *gin.Context) (*models.Identity, bool) {
	value, exists := c.Get(IdentityKey)
	if !exists {
		return nil, false
	}
	identity, ok := value.(*models.Identity)
	return identity, ok
}

// Authentication runs the backend chain and stores the resulting identity.
// Requests nobody vouches for get a 401; a bad pre-auth token gets a 403 so
// the caller learns its link is broken instead of being asked to log in.
func Authentication(authenticator *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authenticator.Authenticate(c)
		if err != nil {
			apiErr := authError(err)
			ContextLogger(c).Info("request rejected",
				zap.Int("status", apiErr.Status), zap.String("type", apiErr.Type))
			c.JSON(apiErr.Status, apiErr)
			c.Abort()
			return
		}

		c.Set(IdentityKey, identity)
		c.Next()
	}
}

func authError(err error) *models.APIError {
	switch err {
	case models.ErrUnauthenticated:
		return &models.APIError{
			Status:        http.StatusUnauthorized,
			Message:       err.Error(),
			MessageClient: "Inicia sesión para continuar.",
			Type:          "not_authenticated",
		}
	case models.ErrInvalidCredentials:
		return &models.APIError{
			Status:        http.StatusUnauthorized,
			Message:       err.Error(),
			MessageClient: "Inicia sesión para continuar.",
			Type:          "authentication_failed",
		}
	case services.ErrPreAuthExpired:
		return &models.APIError{
			Status:        http.StatusForbidden,
			Message:       err.Error(),
			MessageClient: "Este enlace ha expirado, solicita uno nuevo.",
			Type:          "pre_auth_expired",
		}
	case services.ErrPreAuthInvalid, services.ErrPreAuthNamespace:
		return &models.APIError{
			Status:        http.StatusForbidden,
			Message:       err.Error(),
			MessageClient: "Este enlace no es válido.",
			Type:          "pre_auth_failed",
		}
	}
	return &models.APIError{
		Status:        http.StatusInternalServerError,
		Message:       "authentication error",
		MessageClient: "Algo salió mal, intenta de nuevo más tarde.",
		Type:          "server_error",
	}
}

// RequireInternal restricts a route to processes that authenticated with the
// internal secret.
func RequireInternal() gin.HandlerFunc {
	return requireRole(models.RoleInternal)
}

// RequireStaff restricts a route to staff sessions.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok || !identity.IsStaff {
			denied := models.NewPermissionDenied(
				"staff access required", "No tienes permiso para hacer esto.", "permission_denied")
			c.JSON(denied.Status, denied)
			c.Abort()
			return
		}
		c.Next()
	}
}

func requireRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok || identity.Role != role {
			denied := models.NewPermissionDenied(
				"insufficient role", "No tienes permiso para hacer esto.", "permission_denied")
			c.JSON(denied.Status, denied)
			c.Abort()
			return
		}
		c.Next()
	}
}
