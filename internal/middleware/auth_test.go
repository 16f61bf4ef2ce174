package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brigada-mx/backend-sub000/internal/auth"
	"github.com/brigada-mx/backend-sub000/internal/models"
	"github.com/brigada-mx/backend-sub000/internal/services"
)

// stubBackend returns a fixed result for every request.
type stubBackend struct {
	hint     string
	identity *models.Identity
	err      error
}

func (s stubBackend) Hint() string { return s.hint }

func (s stubBackend) Authenticate(c *gin.Context, hinted bool) (*models.Identity, error) {
	return s.identity, s.err
}

func performRequest(t *testing.T, backend auth.Backend, after ...gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(Authentication(auth.NewAuthenticator(zap.NewNop(), backend)))
	handler := func(c *gin.Context) {
		identity, _ := IdentityFrom(c)
		c.JSON(http.StatusOK, identity)
	}
	router.GET("/ping", append(after, handler)...)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(w, req)
	return w
}

func TestAuthenticationSuccess(t *testing.T) {
	backend := stubBackend{hint: "x", identity: &models.Identity{Role: models.RoleNurse, UserID: 7}}
	w := performRequest(t, backend)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"user_id":7`)
}

func TestAuthenticationUnauthenticated(t *testing.T) {
	backend := stubBackend{hint: "x"}
	w := performRequest(t, backend)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"not_authenticated"`)
	assert.Contains(t, w.Body.String(), `"message_client"`)
}

func TestAuthenticationInvalidCredentials(t *testing.T) {
	backend := stubBackend{hint: "x", err: models.ErrInvalidCredentials}
	w := performRequest(t, backend)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), `"type":"authentication_failed"`)
}

func TestAuthenticationPreAuthErrorsAreForbidden(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		wantType string
	}{
		{"expired", services.ErrPreAuthExpired, "pre_auth_expired"},
		{"invalid", services.ErrPreAuthInvalid, "pre_auth_failed"},
		{"namespace", services.ErrPreAuthNamespace, "pre_auth_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(t, stubBackend{hint: "x", err: tc.err})
			require.Equal(t, http.StatusForbidden, w.Code)
			assert.Contains(t, w.Body.String(), `"type":"`+tc.wantType+`"`)
		})
	}
}

func TestRequireStaff(t *testing.T) {
	t.Run("staff passes", func(t *testing.T) {
		backend := stubBackend{hint: "x", identity: &models.Identity{Role: models.RoleStaff, UserID: 1, IsStaff: true}}
		w := performRequest(t, backend, RequireStaff())
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("nurse is denied", func(t *testing.T) {
		backend := stubBackend{hint: "x", identity: &models.Identity{Role: models.RoleNurse, UserID: 7}}
		w := performRequest(t, backend, RequireStaff())
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Contains(t, w.Body.String(), `"type":"permission_denied"`)
	})
}

func TestRequireInternal(t *testing.T) {
	t.Run("internal passes", func(t *testing.T) {
		backend := stubBackend{hint: "x", identity: models.InternalIdentity()}
		w := performRequest(t, backend, RequireInternal())
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("staff is denied", func(t *testing.T) {
		backend := stubBackend{hint: "x", identity: &models.Identity{Role: models.RoleStaff, IsStaff: true}}
		w := performRequest(t, backend, RequireInternal())
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
