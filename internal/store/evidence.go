package store

import (
	"context"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// InsertEvidence stores a processed evidence image.
func InsertEvidence(ctx context.Context, q Querier, e *model.Evidence, data []byte) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO evidence (id, uploader_id, data, mime, width, height, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.UploaderID, data, e.MIME, e.Width, e.Height, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storing evidence: %w", err)
	}
	return nil
}

// GetEvidence returns evidence metadata by ID, or nil if it does not exist.
func GetEvidence(ctx context.Context, q Querier, id string) (*model.Evidence, error) {
	e := &model.Evidence{}
	err := q.QueryRowContext(ctx,
		`SELECT id, uploader_id, mime, width, height, created_at FROM evidence WHERE id = ?`, id,
	).Scan(&e.ID, &e.UploaderID, &e.MIME, &e.Width, &e.Height, &e.CreatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting evidence: %w", err)
	}
	return e, nil
}

// GetEvidenceData returns the image bytes and MIME type of evidence.
// It returns nil data if the evidence does not exist.
func GetEvidenceData(ctx context.Context, q Querier, id string) ([]byte, string, error) {
	var data []byte
	var mime string
	err := q.QueryRowContext(ctx,
		`SELECT data, mime FROM evidence WHERE id = ?`, id,
	).Scan(&data, &mime)
	if isNoRows(err) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting evidence data: %w", err)
	}
	return data, mime, nil
}
