package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/brigada-mx/backend-sub000/internal/auth"
	"github.com/brigada-mx/backend-sub000/internal/middleware"
	"github.com/brigada-mx/backend-sub000/internal/models"
	"github.com/brigada-mx/backend-sub000/internal/repository"
	"github.com/brigada-mx/backend-sub000/internal/services"
)

// AuthHandler serves the per-role login endpoints, token logout and the
// staff session login.
type AuthHandler struct {
	users    *repository.UserRepository
	tokens   *repository.TokenRepository
	sessions *services.SessionService
}

func NewAuthHandler(users *repository.UserRepository, tokens *repository.TokenRepository, sessions *services.SessionService) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, sessions: sessions}
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  interface{} `json:"user"`
}

var errBadLogin = &models.APIError{
	Status:        http.StatusUnauthorized,
	Message:       "invalid email or password",
	MessageClient: "Correo o contraseña incorrectos.",
	Type:          "authentication_failed",
}

// checkPassword compares without revealing whether the account exists.
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (h *AuthHandler) login(c *gin.Context, role models.Role, lookup func(ctx context.Context, email string) (int64, string, interface{}, error)) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	userID, hash, user, err := lookup(c.Request.Context(), req.Email)
	if err == models.ErrNotFound {
		fail(c, errBadLogin)
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	if !checkPassword(hash, req.Password) {
		fail(c, errBadLogin)
		return
	}

	token, err := h.tokens.GetOrCreate(c.Request.Context(), role, userID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, loginResponse{Token: token.Key, User: user})
}

func (h *AuthHandler) NurseLogin(c *gin.Context) {
	h.login(c, models.RoleNurse, func(ctx context.Context, email string) (int64, string, interface{}, error) {
		nurse, err := h.users.NurseByEmail(ctx, email)
		if err != nil {
			return 0, "", nil, err
		}
		return nurse.ID, nurse.PasswordHash, nurse, nil
	})
}

func (h *AuthHandler) ClientLogin(c *gin.Context) {
	h.login(c, models.RoleClient, func(ctx context.Context, email string) (int64, string, interface{}, error) {
		client, err := h.users.ClientByEmail(ctx, email)
		if err != nil {
			return 0, "", nil, err
		}
		return client.ID, client.PasswordHash, client, nil
	})
}

func (h *AuthHandler) OrganizationLogin(c *gin.Context) {
	h.login(c, models.RoleOrganization, func(ctx context.Context, email string) (int64, string, interface{}, error) {
		user, err := h.users.OrganizationUserByEmail(ctx, email)
		if err != nil {
			return 0, "", nil, err
		}
		return user.ID, user.PasswordHash, user, nil
	})
}

func (h *AuthHandler) DonorLogin(c *gin.Context) {
	h.login(c, models.RoleDonor, func(ctx context.Context, email string) (int64, string, interface{}, error) {
		user, err := h.users.DonorUserByEmail(ctx, email)
		if err != nil {
			return 0, "", nil, err
		}
		return user.ID, user.PasswordHash, user, nil
	})
}

// Logout deletes the caller's token. Token-less roles have nothing to delete
// and get a validation error.
func (h *AuthHandler) Logout(c *gin.Context) {
	identity, ok := middleware.IdentityFrom(c)
	if !ok {
		failPermission(c)
		return
	}

	switch identity.Role {
	case models.RoleNurse, models.RoleClient, models.RoleOrganization, models.RoleDonor:
	default:
		fail(c, models.NewValidationError(
			"this role has no token to revoke", "Revisa los datos enviados.", "validation_error"))
		return
	}

	if err := h.tokens.Delete(c.Request.Context(), identity.Role, identity.UserID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"detail": "logged out"})
}

// AdminLogin opens a staff session and sets the session cookie.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failValidation(c, err)
		return
	}

	staff, err := h.users.StaffByEmail(c.Request.Context(), req.Email)
	if err == models.ErrNotFound {
		fail(c, errBadLogin)
		return
	}
	if err != nil {
		fail(c, err)
		return
	}
	if !staff.IsStaff || !checkPassword(staff.PasswordHash, req.Password) {
		fail(c, errBadLogin)
		return
	}

	sessionID, err := h.sessions.Create(c.Request.Context(), staff.ID)
	if err != nil {
		fail(c, err)
		return
	}

	c.SetCookie(auth.SessionCookie, sessionID, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"user": staff})
}

func (h *AuthHandler) AdminLogout(c *gin.Context) {
	sessionID, err := c.Cookie(auth.SessionCookie)
	if err == nil && sessionID != "" {
		if err := h.sessions.Delete(c.Request.Context(), sessionID); err != nil {
			fail(c, err)
			return
		}
	}
	c.SetCookie(auth.SessionCookie, "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"detail": "logged out"})
}
