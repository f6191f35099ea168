package resolver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/ttys3/gitea-sso/internal/auth"
	"github.com/ttys3/gitea-sso/internal/db"
	"github.com/ttys3/gitea-sso/internal/logger"
)

// DBResolver resolves identities using the database. Lookup order:
//
//  1. (provider, subject id) — the stable identifier.
//  2. (provider, legacy id) — an account keyed by the old email
//     identifier; found rows are rewritten in place to the subject
//     id so the upgrade happens exactly once.
//  3. email match on users — existing user, new provider: link.
//  4. create user and identity.
type DBResolver struct {
	db *db.DB
}

func NewDBResolver(db *db.DB) *DBResolver {
	return &DBResolver{db: db}
}

func (r *DBResolver) Resolve(
	ctx context.Context,
	identity *auth.Identity,
) (string, error) {

	if identity == nil {
		return "", errors.New("identity is nil")
	}

	tokenData, err := json.Marshal(identity.Data)
	if err != nil {
		return "", err
	}

	// 1. Subject id lookup. Refresh the stored token material while
	// we are here so the newest refresh token wins.
	var userID uuid.UUID
	err = r.db.QueryRowContext(ctx, `
		UPDATE identities
		SET token_data = $3, updated_at = NOW()
		WHERE provider = $1
		  AND provider_user_id = $2
		RETURNING user_id
	`,
		identity.Provider,
		identity.ID,
		tokenData,
	).Scan(&userID)

	if err == nil {
		return userID.String(), nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	// 2. Legacy id lookup with in-place upgrade to the subject id.
	err = r.db.QueryRowContext(ctx, `
		UPDATE identities
		SET provider_user_id = $3, token_data = $4, updated_at = NOW()
		WHERE provider = $1
		  AND provider_user_id = $2
		RETURNING user_id
	`,
		identity.Provider,
		identity.LegacyID,
		identity.ID,
		tokenData,
	).Scan(&userID)

	if err == nil {
		logger.Info("identity upgraded from legacy id", map[string]any{
			"provider": identity.Provider,
			"user_id":  userID.String(),
		})
		return userID.String(), nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	// 3. Email-based linking (existing user, new provider).
	err = r.db.QueryRowContext(ctx, `
		SELECT id
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`,
		identity.Email,
	).Scan(&userID)

	if err == nil {
		if err := r.insertIdentity(ctx, userID, identity, tokenData); err != nil {
			return "", err
		}
		return userID.String(), nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	// 4. Create new user keyed by the subject id.
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO users (email, email_verified, name)
		VALUES ($1, $2, $3)
		RETURNING id
	`,
		identity.Email,
		identity.EmailVerified,
		identity.Name,
	).Scan(&userID)

	if err != nil {
		return "", err
	}

	if err := r.insertIdentity(ctx, userID, identity, tokenData); err != nil {
		return "", err
	}

	return userID.String(), nil
}

func (r *DBResolver) insertIdentity(
	ctx context.Context,
	userID uuid.UUID,
	identity *auth.Identity,
	tokenData []byte,
) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO identities (user_id, provider, provider_user_id, token_data)
		VALUES ($1, $2, $3, $4)
	`,
		userID,
		identity.Provider,
		identity.ID,
		tokenData,
	)
	return err
}
