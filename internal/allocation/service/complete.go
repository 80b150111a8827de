package service

import (
	"context"
	"errors"
	"fmt"

	"organlink/internal/notification"
	registry "organlink/internal/registry/models"
	registrystore "organlink/internal/registry/store"
	id "organlink/pkg/domain"
	dErrors "organlink/pkg/domain-errors"
	"organlink/pkg/platform/sentinel"
	"organlink/pkg/requestcontext"
)

// CompleteCommand finishes an accepted allocation after surgery.
type CompleteCommand struct {
	Actor       id.HospitalID
	RecipientID id.RecipientID
	DonorID     id.DonorID
	Notes       string
}

// CompleteTransplant runs the complete transition: recipient to completed,
// donor to donated, the associated request to completed, all atomically.
// It requires the recipient to be matched to this donor at call time.
func (s *Service) CompleteTransplant(ctx context.Context, cmd CompleteCommand) error {
	ctx, span := tracer.Start(ctx, "allocation.complete_transplant")
	defer span.End()

	switch {
	case cmd.Actor.IsZero():
		return dErrors.New(dErrors.CodeValidation, "acting hospital is required")
	case cmd.RecipientID.IsZero():
		return dErrors.New(dErrors.CodeValidation, "recipient id is required")
	case cmd.DonorID.IsZero():
		return dErrors.New(dErrors.CodeValidation, "donor id is required")
	}

	now := requestcontext.Now(ctx)
	err := s.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		recipient, err := loadRecipient(ctx, stores, cmd.RecipientID, dErrors.CodeNotFound)
		if err != nil {
			return err
		}
		if recipient.HospitalID != cmd.Actor {
			return dErrors.New(dErrors.CodeNotFound, "recipient is not registered at your hospital")
		}
		if recipient.Status != registry.RecipientMatched {
			return dErrors.Newf(dErrors.CodeConflict,
				"transplant requires a matched recipient, recipient is %s", recipient.Status)
		}
		if recipient.MatchedDonorID == nil || *recipient.MatchedDonorID != cmd.DonorID {
			return dErrors.New(dErrors.CodeConflict, "recipient is not matched to this donor")
		}

		donor, err := loadDonor(ctx, stores, cmd.DonorID, dErrors.CodeDataIntegrity)
		if err != nil {
			return err
		}
		if donor.Status != registry.DonorMatched {
			return dErrors.Newf(dErrors.CodeConflict, "donor is %s, not matched", donor.Status)
		}

		request, err := stores.Requests.FindActiveByPair(ctx, cmd.RecipientID, cmd.DonorID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeDataIntegrity, "no active request backs this match")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeDownstream, "load active request")
		}

		// Completion clears both match references: they are only valid while
		// the pair is in the matched states.
		completedAt := now
		err = stores.Recipients.UpdateMatchState(ctx, recipient.ID,
			[]registry.RecipientStatus{registry.RecipientMatched},
			registrystore.RecipientMatchChange{
				Status:      registry.RecipientCompleted,
				CompletedAt: &completedAt,
			})
		if err := translateMatchErr(err, "recipient"); err != nil {
			return err
		}

		donatedAt := now
		err = stores.Donors.UpdateMatchState(ctx, donor.ID,
			[]registry.DonorStatus{registry.DonorMatched},
			registrystore.DonorMatchChange{
				Status:    registry.DonorDonated,
				DonatedAt: &donatedAt,
			})
		if err := translateMatchErr(err, "donor"); err != nil {
			return err
		}

		err = stores.Requests.MarkCompleted(ctx, request.ID, now)
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "request is not accepted")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeDownstream, "complete allocation request")
		}

		for _, hospital := range completionAudience(request.OriginHospitalID, request.TargetHospitalID) {
			intent := notification.Intent{
				Hospital:  hospital,
				Type:      notification.TypeTransplantCompleted,
				Title:     "Transplant completed",
				Message:   fmt.Sprintf("The %s transplant for the matched pair is complete.", recipient.Organ),
				RelatedID: request.ID,
			}
			if err := s.sink.Send(ctx, intent); err != nil {
				return dErrors.Wrap(err, dErrors.CodeDownstream, "emit notification")
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "transplant completed",
		"recipient_id", cmd.RecipientID.String(),
		"donor_id", cmd.DonorID.String(),
		"hospital_id", cmd.Actor.String(),
	)
	return nil
}

func completionAudience(origin, target id.HospitalID) []id.HospitalID {
	if origin == target {
		return []id.HospitalID{origin}
	}
	return []id.HospitalID{origin, target}
}
