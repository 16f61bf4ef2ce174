package services

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPreAuthRoundtrip(t *testing.T) {
	svc := NewPreAuthService("signing-secret", 2*time.Hour)

	token, err := svc.Mint(42, NamespaceUpdateNurse)
	require.NoError(t, err)

	subject, err := svc.Verify(token, NamespaceUpdateNurse)
	require.NoError(t, err)
	assert.Equal(t, int64(42), subject)
}

func TestPreAuthReplayIsAllowed(t *testing.T) {
	svc := NewPreAuthService("signing-secret", 2*time.Hour)
	token, err := svc.Mint(42, NamespaceAccountCreate)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		subject, err := svc.Verify(token, NamespaceAccountCreate)
		require.NoError(t, err)
		assert.Equal(t, int64(42), subject)
	}
}

func TestPreAuthNamespaceMismatch(t *testing.T) {
	svc := NewPreAuthService("signing-secret", 2*time.Hour)
	token, err := svc.Mint(42, NamespaceUpdateNurse)
	require.NoError(t, err)

	_, err = svc.Verify(token, NamespaceAccountCreate)
	assert.ErrorIs(t, err, ErrPreAuthNamespace)
}

func TestPreAuthExpiry(t *testing.T) {
	svc := NewPreAuthService("signing-secret", 2*time.Hour)
	token, err := svc.Mint(42, NamespaceUpdateNurse)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(3 * time.Hour) }
	_, err = svc.Verify(token, NamespaceUpdateNurse)
	assert.ErrorIs(t, err, ErrPreAuthExpired)
}

func TestPreAuthTamperedToken(t *testing.T) {
	svc := NewPreAuthService("signing-secret", 2*time.Hour)
	token, err := svc.Mint(42, NamespaceUpdateNurse)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	_, err = svc.Verify(tampered, NamespaceUpdateNurse)
	assert.ErrorIs(t, err, ErrPreAuthInvalid)
}

func TestPreAuthWrongSecret(t *testing.T) {
	minter := NewPreAuthService("secret-a", 2*time.Hour)
	verifier := NewPreAuthService("secret-b", 2*time.Hour)

	token, err := minter.Mint(42, NamespaceUpdateNurse)
	require.NoError(t, err)

	_, err = verifier.Verify(token, NamespaceUpdateNurse)
	assert.ErrorIs(t, err, ErrPreAuthInvalid)
}

func TestPreAuthGarbage(t *testing.T) {
	svc := NewPreAuthService("signing-secret", 2*time.Hour)

	_, err := svc.Verify("not-a-token", NamespaceUpdateNurse)
	assert.ErrorIs(t, err, ErrPreAuthInvalid)
}
