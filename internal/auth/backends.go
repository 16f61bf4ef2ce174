package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/brigada-mx/backend-sub000/internal/models"
)

// InternalSecretHeader carries the shared secret presented by our own
// backend processes.
const InternalSecretHeader = "X-Internal-Secret"

// SessionCookie is the staff session cookie name.
const SessionCookie = "sessionid"

// IdentityStore is what the backends need from persistence. The repository
// satisfies it; tests use a fake to count lookups.
type IdentityStore interface {
	NurseByTokenKey(ctx context.Context, key string) (*models.NurseUser, error)
	ClientByTokenKey(ctx context.Context, key string) (*models.ClientUser, error)
	OrganizationUserByTokenKey(ctx context.Context, key string) (*models.OrganizationUser, error)
	DonorUserByTokenKey(ctx context.Context, key string) (*models.DonorUser, error)
	NurseByID(ctx context.Context, id int64) (*models.NurseUser, error)
	StaffByID(ctx context.Context, id int64) (*models.StaffUser, error)
}

// SessionStore resolves a session id to the staff user id that owns it.
// A missing or expired session returns models.ErrNotFound.
type SessionStore interface {
	UserID(ctx context.Context, sessionID string) (int64, error)
}

// PreAuthVerifier checks a signed pre-auth token against a namespace and
// returns the subject id it was minted for.
type PreAuthVerifier interface {
	Verify(token, namespace string) (int64, error)
}

// Backend authenticates one credential type. A return of (nil, nil) is a
// decline: the request carries no credential this backend understands, and
// the next backend in the chain gets a turn. A non-nil error is a hard
// failure that stops the chain. When hinted is true the caller named this
// backend in the role hint header, so a missing or invalid credential is a
// hard failure rather than a decline.
type Backend interface {
	Hint() string
	Authenticate(c *gin.Context, hinted bool) (*models.Identity, error)
}

// Authenticator runs an ordered backend chain. A role hint restricts the
// chain to the named backend so the others never touch storage.
type Authenticator struct {
	backends []Backend
	logger   *zap.Logger
}

func NewAuthenticator(logger *zap.Logger, backends ...Backend) *Authenticator {
	return &Authenticator{backends: backends, logger: logger}
}

func (a *Authenticator) Authenticate(c *gin.Context) (*models.Identity, error) {
	hint := c.GetHeader(models.RoleHintHeader)
	for _, backend := range a.backends {
		if hint != "" && backend.Hint() != hint {
			continue
		}
		identity, err := backend.Authenticate(c, hint != "")
		if err != nil {
			a.logger.Info("authentication failed",
				zap.String("backend", backend.Hint()), zap.Error(err))
			return nil, err
		}
		if identity != nil {
			return identity, nil
		}
	}
	return nil, models.ErrUnauthenticated
}

// tokenKey extracts the key from an "Authorization: Token <key>" header.
func tokenKey(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Token" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// TokenBackend authenticates one role's opaque database tokens. The lookup
// closure binds it to the role's token table and identity constructor.
type TokenBackend struct {
	hint   string
	lookup func(ctx context.Context, key string) (*models.Identity, error)
}

func (b *TokenBackend) Hint() string { return b.hint }

func (b *TokenBackend) Authenticate(c *gin.Context, hinted bool) (*models.Identity, error) {
	key, ok := tokenKey(c)
	if !ok {
		if hinted {
			return nil, models.ErrInvalidCredentials
		}
		return nil, nil
	}

	identity, err := b.lookup(c.Request.Context(), key)
	if err == models.ErrTokenNotFound {
		if hinted {
			return nil, models.ErrInvalidCredentials
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func NewNurseTokenBackend(store IdentityStore) *TokenBackend {
	return &TokenBackend{
		hint: models.RoleHintNurseToken,
		lookup: func(ctx context.Context, key string) (*models.Identity, error) {
			nurse, err := store.NurseByTokenKey(ctx, key)
			if err != nil {
				return nil, err
			}
			return models.NurseIdentity(nurse), nil
		},
	}
}

func NewClientTokenBackend(store IdentityStore) *TokenBackend {
	return &TokenBackend{
		hint: models.RoleHintClientToken,
		lookup: func(ctx context.Context, key string) (*models.Identity, error) {
			client, err := store.ClientByTokenKey(ctx, key)
			if err != nil {
				return nil, err
			}
			return models.ClientIdentity(client), nil
		},
	}
}

func NewOrganizationTokenBackend(store IdentityStore) *TokenBackend {
	return &TokenBackend{
		hint: models.RoleHintOrganizationToken,
		lookup: func(ctx context.Context, key string) (*models.Identity, error) {
			user, err := store.OrganizationUserByTokenKey(ctx, key)
			if err != nil {
				return nil, err
			}
			return models.OrganizationIdentity(user), nil
		},
	}
}

func NewDonorTokenBackend(store IdentityStore) *TokenBackend {
	return &TokenBackend{
		hint: models.RoleHintDonorToken,
		lookup: func(ctx context.Context, key string) (*models.Identity, error) {
			user, err := store.DonorUserByTokenKey(ctx, key)
			if err != nil {
				return nil, err
			}
			return models.DonorIdentity(user), nil
		},
	}
}

// InternalBackend authenticates sibling processes on our own servers by a
// shared secret header. An empty configured secret disables the backend.
type InternalBackend struct {
	secret string
}

func NewInternalBackend(secret string) *InternalBackend {
	return &InternalBackend{secret: secret}
}

func (b *InternalBackend) Hint() string { return models.RoleHintInternal }

func (b *InternalBackend) Authenticate(c *gin.Context, hinted bool) (*models.Identity, error) {
	presented := c.GetHeader(InternalSecretHeader)
	if presented == "" {
		if hinted {
			return nil, models.ErrInvalidCredentials
		}
		return nil, nil
	}
	if b.secret == "" || presented != b.secret {
		return nil, models.ErrInvalidCredentials
	}
	return models.InternalIdentity(), nil
}

// SessionBackend authenticates staff by session cookie.
type SessionBackend struct {
	sessions SessionStore
	store    IdentityStore
}

func NewSessionBackend(sessions SessionStore, store IdentityStore) *SessionBackend {
	return &SessionBackend{sessions: sessions, store: store}
}

func (b *SessionBackend) Hint() string { return models.RoleHintSession }

func (b *SessionBackend) Authenticate(c *gin.Context, hinted bool) (*models.Identity, error) {
	sessionID, err := c.Cookie(SessionCookie)
	if err != nil || sessionID == "" {
		if hinted {
			return nil, models.ErrInvalidCredentials
		}
		return nil, nil
	}

	ctx := c.Request.Context()
	userID, err := b.sessions.UserID(ctx, sessionID)
	if err == models.ErrNotFound {
		if hinted {
			return nil, models.ErrInvalidCredentials
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	staff, err := b.store.StaffByID(ctx, userID)
	if err == models.ErrNotFound {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return models.StaffIdentity(staff), nil
}

// PreAuthNurseBackend authenticates a nurse on mutation requests that carry a
// signed pre-auth token in the body. Unlike the token backends, a present but
// bad token is always a hard failure: a caller holding a broken link must
// learn that, never fall through to an anonymous 401.
type PreAuthNurseBackend struct {
	verifier  PreAuthVerifier
	namespace string
	store     IdentityStore
}

func NewPreAuthNurseBackend(verifier PreAuthVerifier, namespace string, store IdentityStore) *PreAuthNurseBackend {
	return &PreAuthNurseBackend{verifier: verifier, namespace: namespace, store: store}
}

func (b *PreAuthNurseBackend) Hint() string { return models.RoleHintPreAuthNurse }

func (b *PreAuthNurseBackend) Authenticate(c *gin.Context, hinted bool) (*models.Identity, error) {
	switch c.Request.Method {
	case "POST", "PUT", "PATCH":
	default:
		if hinted {
			return nil, models.ErrInvalidCredentials
		}
		return nil, nil
	}

	token, ok := bodyPreAuthToken(c)
	if !ok {
		if hinted {
			return nil, models.ErrInvalidCredentials
		}
		return nil, nil
	}

	nurseID, err := b.verifier.Verify(token, b.namespace)
	if err != nil {
		return nil, err
	}

	nurse, err := b.store.NurseByID(c.Request.Context(), nurseID)
	if err == models.ErrNotFound {
		return nil, models.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	return models.NurseIdentity(nurse), nil
}

// maxPreAuthBody caps how much of the request body the token peek will read.
// Legitimate bodies on these routes are a few hundred bytes.
const maxPreAuthBody = 1 << 20

// bodyPreAuthToken peeks at the request body for a "token" field and restores
// the body so the handler can bind it again. A body past the cap comes back
// truncated and tokenless; its bind fails downstream regardless.
func bodyPreAuthToken(c *gin.Context) (string, bool) {
	if c.Request.Body == nil {
		return "", false
	}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPreAuthBody))
	c.Request.Body = io.NopCloser(bytes.NewBuffer(raw))
	if err != nil {
		return "", false
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || payload.Token == "" {
		return "", false
	}
	return payload.Token, true
}
