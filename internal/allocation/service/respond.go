package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"organlink/internal/allocation/models"
	"organlink/internal/notification"
	registry "organlink/internal/registry/models"
	registrystore "organlink/internal/registry/store"
	id "organlink/pkg/domain"
	dErrors "organlink/pkg/domain-errors"
	"organlink/pkg/platform/sentinel"
	"organlink/pkg/requestcontext"
)

// Decision is a target hospital's answer to a pending request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// ParseDecision validates a decision string.
func ParseDecision(s string) (Decision, error) {
	switch Decision(strings.ToLower(strings.TrimSpace(s))) {
	case DecisionAccept:
		return DecisionAccept, nil
	case DecisionReject:
		return DecisionReject, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "decision must be accept or reject, got %q", s)
}

// RespondCommand resolves a pending request.
type RespondCommand struct {
	RequestID id.RequestID
	Responder id.HospitalID
	Decision  Decision
	Notes     string
}

// RespondResult reports the request's resolved status.
type RespondResult struct {
	Status models.Status
}

// Respond runs the respond transition. Only the target hospital may respond,
// only while the request is pending; the status write is conditional, so of
// two racing responders exactly one wins and the other observes a conflict.
func (s *Service) Respond(ctx context.Context, cmd RespondCommand) (*RespondResult, error) {
	ctx, span := tracer.Start(ctx, "allocation.respond")
	defer span.End()
	span.SetAttributes(attribute.String("allocation.decision", string(cmd.Decision)))

	if cmd.RequestID.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "request id is required")
	}
	if cmd.Responder.IsZero() {
		return nil, dErrors.New(dErrors.CodeValidation, "responder hospital is required")
	}
	if cmd.Decision != DecisionAccept && cmd.Decision != DecisionReject {
		return nil, dErrors.Newf(dErrors.CodeValidation, "decision must be accept or reject, got %q", cmd.Decision)
	}

	now := requestcontext.Now(ctx)
	var result *RespondResult
	err := s.tx.RunInTx(ctx, func(ctx context.Context, stores Stores) error {
		request, err := stores.Requests.FindByID(ctx, cmd.RequestID)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "allocation request not found")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeDownstream, "load allocation request")
		}
		if request.TargetHospitalID != cmd.Responder {
			return dErrors.New(dErrors.CodeForbidden, "only the target hospital may respond to this request")
		}
		if request.Status != models.StatusPending {
			return dErrors.Newf(dErrors.CodeConflict, "request is already %s", request.Status)
		}

		// The recipient and donor are weak references; either may have been
		// deleted by its owning hospital since the request was created.
		recipient, err := loadRecipient(ctx, stores, request.RecipientID, dErrors.CodeDataIntegrity)
		if err != nil {
			return err
		}
		donor, err := loadDonor(ctx, stores, request.DonorID, dErrors.CodeDataIntegrity)
		if err != nil {
			return err
		}

		to := models.StatusRejected
		if cmd.Decision == DecisionAccept {
			to = models.StatusAccepted
		}
		err = stores.Requests.UpdateStatusIfPending(ctx, request.ID, to, cmd.Notes, now)
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "request was resolved by a concurrent response")
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeDataIntegrity, "request vanished during response")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeDownstream, "resolve allocation request")
		}

		if cmd.Decision == DecisionAccept {
			err = stores.Recipients.UpdateMatchState(ctx, recipient.ID,
				[]registry.RecipientStatus{registry.RecipientInProgress},
				registrystore.RecipientMatchChange{
					Status:            registry.RecipientMatched,
					MatchedDonorID:    &donor.ID,
					MatchedHospitalID: &request.TargetHospitalID,
				})
			if err := translateMatchErr(err, "recipient"); err != nil {
				return err
			}
			err = stores.Donors.UpdateMatchState(ctx, donor.ID,
				[]registry.DonorStatus{registry.DonorAvailable},
				registrystore.DonorMatchChange{
					Status:             registry.DonorMatched,
					MatchedRecipientID: &recipient.ID,
				})
			if err := translateMatchErr(err, "donor"); err != nil {
				return err
			}
		} else {
			// Reject reverts the recipient to waiting and leaves the donor
			// untouched: it stays available for other requests.
			err = stores.Recipients.UpdateMatchState(ctx, recipient.ID,
				[]registry.RecipientStatus{registry.RecipientInProgress},
				registrystore.RecipientMatchChange{Status: registry.RecipientWaiting})
			if err := translateMatchErr(err, "recipient"); err != nil {
				return err
			}
		}

		if err := s.sink.Send(ctx, respondIntent(request, recipient.Organ, cmd.Decision)); err != nil {
			return dErrors.Wrap(err, dErrors.CodeDownstream, "emit notification")
		}

		result = &RespondResult{Status: to}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// The request the target was notified about is now handled.
	s.markRead(ctx, cmd.Responder, cmd.RequestID)

	s.logger.InfoContext(ctx, "allocation request resolved",
		"request_id", cmd.RequestID.String(),
		"responder_hospital_id", cmd.Responder.String(),
		"status", string(result.Status),
	)
	return result, nil
}

func respondIntent(request *models.AllocationRequest, organ registry.Organ, decision Decision) notification.Intent {
	if decision == DecisionAccept {
		return notification.Intent{
			Hospital:  request.OriginHospitalID,
			Type:      notification.TypeRequestAccepted,
			Title:     "Allocation request accepted",
			Message:   fmt.Sprintf("The target hospital accepted your %s request.", organ),
			RelatedID: request.ID,
		}
	}
	return notification.Intent{
		Hospital:  request.OriginHospitalID,
		Type:      notification.TypeRequestRejected,
		Title:     "Allocation request rejected",
		Message:   fmt.Sprintf("The target hospital rejected your %s request.", organ),
		RelatedID: request.ID,
	}
}
