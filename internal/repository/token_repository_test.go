package repository

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/brigada-mx/backend-sub000/internal/models"
	"github.com/brigada-mx/backend-sub000/internal/testutils"
)

func createTestNurse(t *testing.T, db *sqlx.DB, email string) int64 {
	t.Helper()
	var id int64
	err := db.QueryRow(`
		INSERT INTO nurse_users (email, first_name, surname)
		VALUES ($1, 'Ana', 'García') RETURNING id`, email).Scan(&id)
	require.NoError(t, err)
	return id
}

func TestTokenGetOrCreateIsIdempotent(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewTokenRepository(db, zap.NewNop())
	ctx := context.Background()

	nurseID := createTestNurse(t, db, "ana@example.com")

	first, err := repo.GetOrCreate(ctx, models.RoleNurse, nurseID)
	require.NoError(t, err)
	assert.Len(t, first.Key, 40)
	assert.Equal(t, nurseID, first.UserID)

	second, err := repo.GetOrCreate(ctx, models.RoleNurse, nurseID)
	require.NoError(t, err)
	assert.Equal(t, first.Key, second.Key)
}

func TestTokenKeysDifferPerUser(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewTokenRepository(db, zap.NewNop())
	ctx := context.Background()

	a := createTestNurse(t, db, "a@example.com")
	b := createTestNurse(t, db, "b@example.com")

	tokenA, err := repo.GetOrCreate(ctx, models.RoleNurse, a)
	require.NoError(t, err)
	tokenB, err := repo.GetOrCreate(ctx, models.RoleNurse, b)
	require.NoError(t, err)

	assert.NotEqual(t, tokenA.Key, tokenB.Key)
}

func TestTokenLookup(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewTokenRepository(db, zap.NewNop())
	ctx := context.Background()

	nurseID := createTestNurse(t, db, "ana@example.com")
	token, err := repo.GetOrCreate(ctx, models.RoleNurse, nurseID)
	require.NoError(t, err)

	userID, err := repo.Lookup(ctx, models.RoleNurse, token.Key)
	require.NoError(t, err)
	assert.Equal(t, nurseID, userID)

	_, err = repo.Lookup(ctx, models.RoleNurse, "0000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, models.ErrTokenNotFound)

	// A nurse key is invisible to the client token table.
	_, err = repo.Lookup(ctx, models.RoleClient, token.Key)
	assert.ErrorIs(t, err, models.ErrTokenNotFound)
}

func TestTokenDeleteFailsClosed(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewTokenRepository(db, zap.NewNop())
	ctx := context.Background()

	nurseID := createTestNurse(t, db, "ana@example.com")
	token, err := repo.GetOrCreate(ctx, models.RoleNurse, nurseID)
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, models.RoleNurse, nurseID))
	_, err = repo.Lookup(ctx, models.RoleNurse, token.Key)
	assert.ErrorIs(t, err, models.ErrTokenNotFound)

	// Deleting again is not an error.
	assert.NoError(t, repo.Delete(ctx, models.RoleNurse, nurseID))

	// The next login mints a fresh key.
	fresh, err := repo.GetOrCreate(ctx, models.RoleNurse, nurseID)
	require.NoError(t, err)
	assert.NotEqual(t, token.Key, fresh.Key)
}

func TestTokenUnknownRole(t *testing.T) {
	db := testutils.TestDB(t)
	repo := NewTokenRepository(db, zap.NewNop())

	_, err := repo.GetOrCreate(context.Background(), models.RoleStaff, 1)
	assert.Error(t, err)
}
