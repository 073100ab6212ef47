package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/pixelgrove/lensgate/internal/auth/store"
)

type revokedTokensRepo struct {
	db *sql.DB
}

func (r *revokedTokensRepo) Revoke(ctx context.Context, jti string, expiresAt time.Time) error {
	// INSERT OR IGNORE plus the affected-row count makes revocation atomic:
	// the second caller to revoke the same jti learns it lost the race,
	// which the session service treats as a replayed refresh token.
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt.UTC())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrAlreadyExists
	}
	return nil
}

func (r *revokedTokensRepo) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM revoked_tokens WHERE jti = ?`, jti).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *revokedTokensRepo) PurgeExpired(ctx context.Context, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at <= ?`, now.UTC())
	return err
}
