package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Pre-auth namespaces. Each unauthenticated flow gets its own namespace so a
// token minted for one can never be replayed against another.
const (
	NamespaceUpdateNurse   = "update_nurse_unauthenticated"
	NamespaceAccountCreate = "account_create_unauthenticated"
)

var (
	ErrPreAuthInvalid   = errors.New("pre-auth token is invalid")
	ErrPreAuthExpired   = errors.New("pre-auth token has expired")
	ErrPreAuthNamespace = errors.New("pre-auth token was issued for another flow")
)

// PreAuthService mints and verifies the signed tokens behind the
// unauthenticated onboarding flows. Tokens are stateless: nothing is stored
// and nothing is consumed on use, so a token works any number of times until
// it expires.
type PreAuthService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewPreAuthService(secret string, ttl time.Duration) *PreAuthService {
	return &PreAuthService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Mint signs a token binding the subject to a namespace for the configured
// lifetime.
func (s *PreAuthService) Mint(subjectID int64, namespace string) (string, error) {
	claims := jwt.MapClaims{
		"sub":       subjectID,
		"exp":       s.now().Add(s.ttl).Unix(),
		"namespace": namespace,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("error signing pre-auth token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, namespace and expiry in that order and returns the
// subject id. Every failure is a distinct error; none of them is a decline.
func (s *PreAuthService) Verify(tokenString, namespace string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithoutClaimsValidation())
	if err != nil || !token.Valid {
		return 0, ErrPreAuthInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrPreAuthInvalid
	}

	ns, _ := claims["namespace"].(string)
	if ns != namespace {
		return 0, ErrPreAuthNamespace
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return 0, ErrPreAuthInvalid
	}
	if s.now().After(time.Unix(int64(exp), 0)) {
		return 0, ErrPreAuthExpired
	}

	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, ErrPreAuthInvalid
	}
	return int64(sub), nil
}
