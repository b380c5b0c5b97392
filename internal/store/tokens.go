package store

import (
	"context"
	"fmt"
	"time"
)

// RevokeToken records jti as revoked until expiresAt, after which the token
// is rejected on its own expiry and the row can go. Revoking twice keeps the
// later expiry.
func RevokeToken(ctx context.Context, q Querier, jti string, expiresAt, now time.Time) error {
	if _, err := q.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?)
		 ON CONFLICT (jti) DO UPDATE SET expires_at = MAX(expires_at, excluded.expires_at)`,
		jti, expiresAt,
	); err != nil {
		return fmt.Errorf("revoking token: %w", err)
	}

	if _, err := PruneRevokedTokens(ctx, q, now); err != nil {
		return err
	}
	return nil
}

// PruneRevokedTokens drops revocations whose tokens have expired anyway.
func PruneRevokedTokens(ctx context.Context, q Querier, now time.Time) (int64, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at < ?`, now)
	if err != nil {
		return 0, fmt.Errorf("pruning revoked tokens: %w", err)
	}
	return result.RowsAffected()
}

// IsTokenRevoked reports whether jti has an unexpired revocation at now.
func IsTokenRevoked(ctx context.Context, q Querier, jti string, now time.Time) (bool, error) {
	var revoked bool
	err := q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_tokens WHERE jti = ? AND expires_at >= ?)`, jti, now,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("checking token revocation: %w", err)
	}
	return revoked, nil
}
