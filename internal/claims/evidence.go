package claims

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/erazemk/najdeno/internal/apperr"
	"github.com/erazemk/najdeno/internal/imaging"
	"github.com/erazemk/najdeno/internal/model"
	"github.com/erazemk/najdeno/internal/store"
)

// UploadEvidence normalizes an image and stores it for use in a claim.
func (s *Service) UploadEvidence(ctx context.Context, actor model.Actor, r io.Reader) (*model.Evidence, error) {
	result, err := imaging.Process(r, s.MaxImageDimension)
	if err != nil {
		return nil, apperr.Validation("invalid image: %v", err)
	}

	ev := &model.Evidence{
		ID:         uuid.NewString(),
		UploaderID: actor.ID,
		MIME:       result.MIME,
		Width:      result.Width,
		Height:     result.Height,
		CreatedAt:  s.now(),
	}
	if err := store.InsertEvidence(ctx, s.DB, ev, result.Data); err != nil {
		return nil, apperr.Storage(err, "failed to store evidence")
	}
	return ev, nil
}

// Evidence returns the stored image bytes and MIME type.
func (s *Service) Evidence(ctx context.Context, id string) ([]byte, string, error) {
	data, mime, err := store.GetEvidenceData(ctx, s.DB, id)
	if err != nil {
		return nil, "", apperr.Storage(err, "failed to load evidence")
	}
	if data == nil {
		return nil, "", apperr.NotFound("evidence not found")
	}
	return data, mime, nil
}
