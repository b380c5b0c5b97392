package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/najdeno/internal/model"
)

const claimSelect = `SELECT c.id, c.item_kind, c.item_id, c.claimant_id, c.proof, c.evidence_id, c.status,
        c.reviewer_id, c.review_notes, c.reviewed_at, c.created_at, c.updated_at,
        u.username AS claimant_name, COALESCE(r.username, '') AS reviewer_name
 FROM claim_requests c
 JOIN users u ON u.id = c.claimant_id
 LEFT JOIN users r ON r.id = c.reviewer_id`

func scanClaim(row interface{ Scan(...any) error }) (*model.ClaimRequest, error) {
	c := &model.ClaimRequest{}
	var evidenceID, notes sql.NullString
	if err := row.Scan(&c.ID, &c.ItemKind, &c.ItemID, &c.ClaimantID, &c.Proof, &evidenceID, &c.Status,
		&c.ReviewerID, &notes, &c.ReviewedAt, &c.CreatedAt, &c.UpdatedAt,
		&c.ClaimantName, &c.ReviewerName); err != nil {
		return nil, err
	}
	c.EvidenceID = evidenceID.String
	c.ReviewNotes = notes.String
	return c, nil
}

// InsertClaim inserts a pending claim. A second pending claim for the same
// claimant and item violates idx_claims_one_pending; callers detect that
// with IsUniqueViolation.
func InsertClaim(ctx context.Context, q Querier, ref model.ItemRef, claimantID int64, proof, evidenceID string, now time.Time) (int64, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO claim_requests (item_kind, item_id, claimant_id, proof, evidence_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ref.Kind, ref.ID, claimantID, proof, nullString(evidenceID), model.ClaimStatusPending, now, now,
	)
	if err != nil {
		return 0, fmt.Errorf("inserting claim: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting claim id: %w", err)
	}
	return id, nil
}

// GetClaim returns a claim by ID, or nil if it does not exist.
func GetClaim(ctx context.Context, q Querier, id int64) (*model.ClaimRequest, error) {
	c, err := scanClaim(q.QueryRowContext(ctx, claimSelect+` WHERE c.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}
	return c, nil
}

// ListClaims returns claims matching f, newest first.
func ListClaims(ctx context.Context, q Querier, f model.ClaimFilter) ([]model.ClaimRequest, error) {
	query := claimSelect + ` WHERE 1=1`
	var args []any

	if f.Status != "" {
		query += ` AND c.status = ?`
		args = append(args, f.Status)
	}
	if f.ClaimantID > 0 {
		query += ` AND c.claimant_id = ?`
		args = append(args, f.ClaimantID)
	}
	if f.Item != nil {
		query += ` AND c.item_kind = ? AND c.item_id = ?`
		args = append(args, f.Item.Kind, f.Item.ID)
	}
	if !f.CreatedFrom.IsZero() {
		query += ` AND c.created_at >= ?`
		args = append(args, f.CreatedFrom)
	}
	if !f.CreatedTo.IsZero() {
		query += ` AND c.created_at < ?`
		args = append(args, f.CreatedTo)
	}
	query += ` ORDER BY c.created_at DESC, c.id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}
	defer rows.Close()

	var claims []model.ClaimRequest
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		claims = append(claims, *c)
	}
	return claims, rows.Err()
}

// HasPendingClaim reports whether claimantID already has a pending claim on ref.
func HasPendingClaim(ctx context.Context, q Querier, ref model.ItemRef, claimantID int64) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claim_requests
		 WHERE item_kind = ? AND item_id = ? AND claimant_id = ? AND status = ?`,
		ref.Kind, ref.ID, claimantID, model.ClaimStatusPending,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking pending claim: %w", err)
	}
	return count > 0, nil
}

// CountPendingClaims returns how many pending claims exist against ref.
func CountPendingClaims(ctx context.Context, q Querier, ref model.ItemRef) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claim_requests WHERE item_kind = ? AND item_id = ? AND status = ?`,
		ref.Kind, ref.ID, model.ClaimStatusPending,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting pending claims: %w", err)
	}
	return count, nil
}

// CountApprovedClaims returns how many approved claims exist against ref.
func CountApprovedClaims(ctx context.Context, q Querier, ref model.ItemRef) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claim_requests WHERE item_kind = ? AND item_id = ? AND status = ?`,
		ref.Kind, ref.ID, model.ClaimStatusApproved,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting approved claims: %w", err)
	}
	return count, nil
}

// ResolveClaim moves a pending claim to a terminal status. A zero reviewerID
// stores no reviewer. It reports false if the claim was no longer pending.
func ResolveClaim(ctx context.Context, q Querier, id int64, status model.ClaimStatus, reviewerID int64, notes string, now time.Time) (bool, error) {
	result, err := q.ExecContext(ctx,
		`UPDATE claim_requests
		 SET status = ?, reviewer_id = ?, review_notes = ?, reviewed_at = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		status, sql.NullInt64{Int64: reviewerID, Valid: reviewerID > 0}, nullString(notes), now, now, id, model.ClaimStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("resolving claim: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking claim update: %w", err)
	}
	return n == 1, nil
}

// DeletePendingClaim removes a claim that is still pending. It reports false
// if no pending claim with that ID existed.
func DeletePendingClaim(ctx context.Context, q Querier, id int64) (bool, error) {
	result, err := q.ExecContext(ctx,
		`DELETE FROM claim_requests WHERE id = ? AND status = ?`,
		id, model.ClaimStatusPending,
	)
	if err != nil {
		return false, fmt.Errorf("deleting claim: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking claim delete: %w", err)
	}
	return n == 1, nil
}
