package service

import (
	"context"
	"errors"

	"organlink/internal/allocation/models"
	id "organlink/pkg/domain"
	dErrors "organlink/pkg/domain-errors"
	"organlink/pkg/platform/sentinel"
)

// Get returns a request to one of its two parties. The first read by the
// target hospital sets the viewed hint and marks the announcing notification
// read; both are best-effort and never fail the read.
func (s *Service) Get(ctx context.Context, requestID id.RequestID, viewer id.HospitalID) (*models.AllocationRequest, error) {
	if requestID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "request id is required")
	}

	var request *models.AllocationRequest
	err := s.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		found, err := stores.Requests.FindByID(ctx, requestID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "allocation request not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeDownstream, "load allocation request")
		}
		if found.OriginHospitalID != viewer && found.TargetHospitalID != viewer {
			return dErrors.New(dErrors.CodeNotFound, "allocation request not found")
		}

		if found.TargetHospitalID == viewer && !found.Viewed {
			if err := stores.Requests.MarkViewed(ctx, requestID); err != nil {
				s.logger.WarnContext(ctx, "failed to mark request viewed",
					"request_id", requestID.String(),
					"error", err,
				)
			} else {
				found.Viewed = true
			}
			s.markRead(ctx, viewer, requestID)
		}

		request = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}
