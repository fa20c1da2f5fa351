package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RevokeToken records a logout: the token's JTI stays on the blocklist
// until the token itself would have expired, then becomes sweepable.
// Revoking the same JTI twice is a no-op.
func RevokeToken(ctx context.Context, db *sql.DB, jti string, expiresAt time.Time) error {
	_, err := db.ExecContext(ctx,
		`INSERT OR IGNORE INTO revoked_tokens (jti, expires_at) VALUES (?, ?)`,
		jti, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	sweepRevocations(ctx, db)
	return nil
}

// IsTokenRevoked reports whether a JTI is on the blocklist. Called on
// every authenticated request, so it stays a single indexed lookup.
func IsTokenRevoked(ctx context.Context, db *sql.DB, jti string) (bool, error) {
	var revoked bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ?)`, jti,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return revoked, nil
}

// sweepRevocations drops blocklist rows for tokens that have expired on
// their own. Piggybacks on logout; failures are harmless, the rows just
// linger until the next sweep.
func sweepRevocations(ctx context.Context, db *sql.DB) {
	_, _ = db.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, time.Now(),
	)
}
