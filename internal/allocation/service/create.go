package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"organlink/internal/allocation/models"
	"organlink/internal/matching/score"
	"organlink/internal/notification"
	registry "organlink/internal/registry/models"
	registrystore "organlink/internal/registry/store"
	id "organlink/pkg/domain"
	dErrors "organlink/pkg/domain-errors"
	"organlink/pkg/platform/sentinel"
	"organlink/pkg/requestcontext"
)

// CreateCommand proposes allocating a target hospital's donor organ to the
// origin hospital's recipient.
type CreateCommand struct {
	OriginHospital id.HospitalID
	TargetHospital id.HospitalID
	RecipientID    id.RecipientID
	DonorID        id.DonorID
	Notes          string
}

func (c CreateCommand) validate() error {
	switch {
	case c.OriginHospital.IsZero():
		return dErrors.New(dErrors.CodeValidation, "origin hospital is required")
	case c.TargetHospital.IsZero():
		return dErrors.New(dErrors.CodeValidation, "target hospital is required")
	case c.RecipientID.IsZero():
		return dErrors.New(dErrors.CodeValidation, "recipient id is required")
	case c.DonorID.IsZero():
		return dErrors.New(dErrors.CodeValidation, "donor id is required")
	}
	return nil
}

// CreateResult reports the created request. AutoAccepted is true for internal
// matches, which skip the pending state entirely.
type CreateResult struct {
	RequestID    id.RequestID
	Status       models.Status
	AutoAccepted bool
}

const autoAcceptNote = "auto-accepted: internal allocation within one hospital"

// Create runs the create transition. An internal match (origin equals target)
// is accepted immediately and atomically with a system-authored responder
// note; an external match starts pending and notifies the target hospital.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*CreateResult, error) {
	ctx, span := tracer.Start(ctx, "allocation.create")
	defer span.End()

	if err := cmd.validate(); err != nil {
		return nil, err
	}

	internal := cmd.OriginHospital == cmd.TargetHospital
	span.SetAttributes(attribute.Bool("allocation.internal", internal))

	now := requestcontext.Now(ctx)
	var result *CreateResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		recipient, err := loadRecipient(ctx, stores, cmd.RecipientID, dErrors.CodeNotFound)
		if err != nil {
			return err
		}
		if recipient.HospitalID != cmd.OriginHospital {
			return dErrors.New(dErrors.CodeNotFound, "recipient is not registered at the origin hospital")
		}
		if recipient.Status != registry.RecipientWaiting {
			return dErrors.Newf(dErrors.CodeConflict, "recipient is %s, not waiting", recipient.Status)
		}

		donor, err := loadDonor(ctx, stores, cmd.DonorID, dErrors.CodeNotFound)
		if err != nil {
			return err
		}
		if donor.HospitalID != cmd.TargetHospital {
			return dErrors.New(dErrors.CodeNotFound, "donor is not registered at the target hospital")
		}
		if donor.Status != registry.DonorAvailable {
			return dErrors.Newf(dErrors.CodeConflict, "donor is %s, not available", donor.Status)
		}
		if !donor.Offers(recipient.Organ) {
			return dErrors.Newf(dErrors.CodeValidation, "donor does not offer a %s", recipient.Organ)
		}
		if !score.CanDonate(donor.BloodType, recipient.BloodType) {
			return dErrors.Newf(dErrors.CodeValidation, "donor blood type %s is incompatible with recipient %s",
				donor.BloodType, recipient.BloodType)
		}

		if _, err := stores.Requests.FindActiveByPair(ctx, cmd.RecipientID, cmd.DonorID); err == nil {
			return dErrors.New(dErrors.CodeConflict, "an active request already exists for this recipient and donor")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeDownstream, "check active requests")
		}

		request := &models.AllocationRequest{
			ID:               id.NewRequestID(),
			OriginHospitalID: cmd.OriginHospital,
			TargetHospitalID: cmd.TargetHospital,
			RecipientID:      cmd.RecipientID,
			DonorID:          cmd.DonorID,
			Status:           models.StatusPending,
			RequesterNotes:   cmd.Notes,
			CreatedAt:        now,
			UpdatedAt:        now,
		}
		if internal {
			request.Status = models.StatusAccepted
			request.ResponderNotes = autoAcceptNote
		}
		if err := stores.Requests.Create(ctx, request); err != nil {
			return dErrors.Wrap(err, dErrors.CodeDownstream, "create allocation request")
		}

		recipientStatus := registry.RecipientInProgress
		if internal {
			recipientStatus = registry.RecipientMatched
		}
		err = stores.Recipients.UpdateMatchState(ctx, recipient.ID,
			[]registry.RecipientStatus{registry.RecipientWaiting},
			registrystore.RecipientMatchChange{
				Status:            recipientStatus,
				MatchedDonorID:    &donor.ID,
				MatchedHospitalID: &cmd.TargetHospital,
			})
		if err := translateMatchErr(err, "recipient"); err != nil {
			return err
		}

		if internal {
			err = stores.Donors.UpdateMatchState(ctx, donor.ID,
				[]registry.DonorStatus{registry.DonorAvailable},
				registrystore.DonorMatchChange{
					Status:             registry.DonorMatched,
					MatchedRecipientID: &recipient.ID,
				})
			if err := translateMatchErr(err, "donor"); err != nil {
				return err
			}
		}

		if err := s.sink.Send(ctx, createIntent(request, recipient, internal)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeDownstream, "emit notification")
		}

		result = &CreateResult{RequestID: request.ID, Status: request.Status, AutoAccepted: internal}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "allocation request created",
		"request_id", result.RequestID.String(),
		"origin_hospital_id", cmd.OriginHospital.String(),
		"target_hospital_id", cmd.TargetHospital.String(),
		"status", string(result.Status),
		"auto_accepted", result.AutoAccepted,
	)
	return result, nil
}

func createIntent(request *models.AllocationRequest, recipient *registry.Recipient, internal bool) notification.Intent {
	if internal {
		return notification.Intent{
			Hospital:  request.OriginHospitalID,
			Type:      notification.TypeRequestAccepted,
			Title:     "Internal allocation auto-accepted",
			Message:   fmt.Sprintf("A %s from your own donor pool was allocated to your recipient.", recipient.Organ),
			RelatedID: request.ID,
		}
	}
	return notification.Intent{
		Hospital:  request.TargetHospitalID,
		Type:      notification.TypeRequestReceived,
		Title:     "Organ allocation request received",
		Message:   fmt.Sprintf("Another hospital requests a %s from one of your donors.", recipient.Organ),
		RelatedID: request.ID,
	}
}

// translateMatchErr maps conditional-write sentinels for recipient and donor
// rows into the transition error taxonomy.
func translateMatchErr(err error, record string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Newf(dErrors.CodeDataIntegrity, "%s no longer exists", record)
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Newf(dErrors.CodeConflict, "%s changed state concurrently", record)
	default:
		return dErrors.Wrap(err, dErrors.CodeDownstream, "update "+record)
	}
}
