package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/brigada-mx/backend-sub000/internal/models"
)

const (
	// tokenKeyBytes of entropy per key, hex-encoded to 40 characters.
	tokenKeyBytes = 20
	// maxKeyAttempts bounds the retry loop on primary-key collisions.
	// Collisions are vanishingly rare at this entropy but not impossible.
	maxKeyAttempts = 5
)

// tokenTables maps each token-bearing role to its table. One table per user
// type keeps the one-to-one user constraint local to each role.
var tokenTables = map[models.Role]string{
	models.RoleNurse:        "nurse_user_tokens",
	models.RoleClient:       "client_user_tokens",
	models.RoleOrganization: "organization_user_tokens",
	models.RoleDonor:        "donor_user_tokens",
}

type TokenRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewTokenRepository(db *sqlx.DB, logger *zap.Logger) *TokenRepository {
	return &TokenRepository{db: db, logger: logger}
}

func tokenTable(role models.Role) (string, error) {
	table, ok := tokenTables[role]
	if !ok {
		return "", fmt.Errorf("role %q has no token table", role)
	}
	return table, nil
}

// GetOrCreate returns the user's existing token or creates one with a fresh
// random key. A second call for the same user always returns the same key.
// Two requests racing to create the first token are resolved by the unique
// constraint on user_id: the loser retries its creation as a fetch.
func (r *TokenRepository) GetOrCreate(ctx context.Context, role models.Role, userID int64) (*models.AuthToken, error) {
	table, err := tokenTable(role)
	if err != nil {
		return nil, err
	}

	var token models.AuthToken
	query := fmt.Sprintf(`SELECT key, user_id, created FROM %s WHERE user_id = $1`, table)
	err = r.db.GetContext(ctx, &token, query, userID)
	if err == nil {
		return &token, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("error fetching token: %w", err)
	}

	insert := fmt.Sprintf(`
		INSERT INTO %s (key, user_id, created)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id) DO NOTHING
		RETURNING key, user_id, created`, table)

	for attempt := 0; attempt < maxKeyAttempts; attempt++ {
		key, err := generateTokenKey()
		if err != nil {
			return nil, err
		}

		err = r.db.GetContext(ctx, &token, insert, key, userID)
		if err == nil {
			return &token, nil
		}
		if err == sql.ErrNoRows {
			// Lost the user_id race: another request inserted first.
			err = r.db.GetContext(ctx, &token, query, userID)
			if err != nil {
				return nil, fmt.Errorf("error fetching token after conflict: %w", err)
			}
			return &token, nil
		}
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			// Key collision: retry with fresh randomness.
			r.logger.Warn("token key collision, retrying",
				zap.String("role", string(role)), zap.Int("attempt", attempt+1))
			continue
		}
		return nil, fmt.Errorf("error creating token: %w", err)
	}

	return nil, fmt.Errorf("could not generate a unique token key after %d attempts", maxKeyAttempts)
}

// Lookup resolves a key to the owning user id. A miss returns
// models.ErrTokenNotFound; the authenticator treats that as "try the next
// backend", not as an error.
func (r *TokenRepository) Lookup(ctx context.Context, role models.Role, key string) (int64, error) {
	table, err := tokenTable(role)
	if err != nil {
		return 0, err
	}

	var userID int64
	query := fmt.Sprintf(`SELECT user_id FROM %s WHERE key = $1`, table)
	err = r.db.GetContext(ctx, &userID, query, key)
	if err == sql.ErrNoRows {
		return 0, models.ErrTokenNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("error looking up token: %w", err)
	}
	return userID, nil
}

// Delete removes the user's token. Deleting an absent row is not an error:
// subsequent lookups simply fail closed.
func (r *TokenRepository) Delete(ctx context.Context, role models.Role, userID int64) error {
	table, err := tokenTable(role)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE user_id = $1`, table)
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("error deleting token: %w", err)
	}
	return nil
}

func generateTokenKey() (string, error) {
	raw := make([]byte, tokenKeyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("error generating token key: %w", err)
	}
	return hex.EncodeToString(raw), nil
}
