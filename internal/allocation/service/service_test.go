package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	allocmodels "organlink/internal/allocation/models"
	"organlink/internal/allocation/service"
	"organlink/internal/allocation/service/mocks"
	allocstore "organlink/internal/allocation/store"
	"organlink/internal/notification"
	registry "organlink/internal/registry/models"
	"organlink/internal/registry/store/donor"
	"organlink/internal/registry/store/recipient"
	id "organlink/pkg/domain"
	dErrors "organlink/pkg/domain-errors"
)

type fixture struct {
	recipients *recipient.InMemoryStore
	donors     *donor.InMemoryStore
	requests   *allocstore.InMemoryStore
	sink       *mocks.MockSink
	svc        *service.Service

	hospitalA id.HospitalID
	hospitalB id.HospitalID
	recipient *registry.Recipient
	donor     *registry.Donor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		recipients: recipient.NewInMemoryStore(),
		donors:     donor.NewInMemoryStore(),
		requests:   allocstore.NewInMemoryStore(),
		sink:       mocks.NewMockSink(ctrl),
		hospitalA:  id.NewHospitalID(),
		hospitalB:  id.NewHospitalID(),
	}

	stores := service.Stores{
		Requests:   f.requests,
		Recipients: f.recipients,
		Donors:     f.donors,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = service.NewService(service.NewMemoryTx(stores), f.sink, logger)

	ctx := context.Background()
	f.recipient = &registry.Recipient{
		ID:           id.NewRecipientID(),
		HospitalID:   f.hospitalA,
		Organ:        registry.OrganKidney,
		BloodType:    registry.BloodOPos,
		Urgency:      registry.UrgencyHigh,
		Age:          34,
		Status:       registry.RecipientWaiting,
		RegisteredAt: time.Now().UTC().Add(-90 * 24 * time.Hour),
	}
	require.NoError(t, f.recipients.Save(ctx, f.recipient))

	f.donor = &registry.Donor{
		ID:           id.NewDonorID(),
		HospitalID:   f.hospitalB,
		BloodType:    registry.BloodOPos,
		Organs:       []registry.Organ{registry.OrganKidney},
		Age:          30,
		Status:       registry.DonorAvailable,
		RegisteredAt: time.Now().UTC().Add(-10 * 24 * time.Hour),
	}
	require.NoError(t, f.donors.Save(ctx, f.donor))

	return f
}

func (f *fixture) createCmd() service.CreateCommand {
	return service.CreateCommand{
		OriginHospital: f.hospitalA,
		TargetHospital: f.hospitalB,
		RecipientID:    f.recipient.ID,
		DonorID:        f.donor.ID,
		Notes:          "urgent case",
	}
}

func (f *fixture) mustRecipient(t *testing.T) *registry.Recipient {
	t.Helper()
	r, err := f.recipients.FindByID(context.Background(), f.recipient.ID)
	require.NoError(t, err)
	return r
}

func (f *fixture) mustDonor(t *testing.T) *registry.Donor {
	t.Helper()
	d, err := f.donors.FindByID(context.Background(), f.donor.ID)
	require.NoError(t, err)
	return d
}

func TestCreate_ExternalRequestStartsPending(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var sent notification.Intent
	f.sink.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, intent notification.Intent) error {
			sent = intent
			return nil
		})

	result, err := f.svc.Create(ctx, f.createCmd())
	require.NoError(t, err)
	assert.Equal(t, allocmodels.StatusPending, result.Status)
	assert.False(t, result.AutoAccepted)

	r := f.mustRecipient(t)
	assert.Equal(t, registry.RecipientInProgress, r.Status)
	require.NotNil(t, r.MatchedDonorID)
	assert.Equal(t, f.donor.ID, *r.MatchedDonorID)
	require.NotNil(t, r.MatchedHospitalID)
	assert.Equal(t, f.hospitalB, *r.MatchedHospitalID)

	// An external create must not touch the donor until the target accepts.
	assert.Equal(t, registry.DonorAvailable, f.mustDonor(t).Status)

	assert.Equal(t, f.hospitalB, sent.Hospital, "target hospital is notified")
	assert.Equal(t, notification.TypeRequestReceived, sent.Type)
	assert.Equal(t, result.RequestID, sent.RelatedID)
}

func TestCreate_InternalMatchAutoAccepts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Move the donor to the recipient's own hospital.
	f.donor.HospitalID = f.hospitalA
	require.NoError(t, f.donors.Save(ctx, f.donor))

	var sent notification.Intent
	f.sink.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, intent notification.Intent) error {
			sent = intent
			return nil
		})

	cmd := f.createCmd()
	cmd.TargetHospital = f.hospitalA
	result, err := f.svc.Create(ctx, cmd)
	require.NoError(t, err)
	assert.Equal(t, allocmodels.StatusAccepted, result.Status)
	assert.True(t, result.AutoAccepted)

	assert.Equal(t, registry.RecipientMatched, f.mustRecipient(t).Status)
	d := f.mustDonor(t)
	assert.Equal(t, registry.DonorMatched, d.Status)
	require.NotNil(t, d.MatchedRecipientID)
	assert.Equal(t, f.recipient.ID, *d.MatchedRecipientID)

	request, err := f.requests.FindByID(ctx, result.RequestID)
	require.NoError(t, err)
	assert.Equal(t, allocmodels.StatusAccepted, request.Status)
	assert.NotEmpty(t, request.ResponderNotes, "internal accept carries a system note")

	assert.Equal(t, f.hospitalA, sent.Hospital, "internal match self-notifies")
	assert.Equal(t, notification.TypeRequestAccepted, sent.Type)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("recipient owned by another hospital", func(t *testing.T) {
		cmd := f.createCmd()
		cmd.OriginHospital = f.hospitalB
		cmd.TargetHospital = f.hospitalA
		_, err := f.svc.Create(ctx, cmd)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("donor at a different hospital than target", func(t *testing.T) {
		cmd := f.createCmd()
		cmd.TargetHospital = id.NewHospitalID()
		_, err := f.svc.Create(ctx, cmd)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("donor does not offer the organ", func(t *testing.T) {
		other := &registry.Donor{
			ID:         id.NewDonorID(),
			HospitalID: f.hospitalB,
			BloodType:  registry.BloodOPos,
			Organs:     []registry.Organ{registry.OrganLiver},
			Status:     registry.DonorAvailable,
		}
		require.NoError(t, f.donors.Save(ctx, other))
		cmd := f.createCmd()
		cmd.DonorID = other.ID
		_, err := f.svc.Create(ctx, cmd)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("incompatible blood types", func(t *testing.T) {
		other := &registry.Donor{
			ID:         id.NewDonorID(),
			HospitalID: f.hospitalB,
			BloodType:  registry.BloodABPos,
			Organs:     []registry.Organ{registry.OrganKidney},
			Status:     registry.DonorAvailable,
		}
		require.NoError(t, f.donors.Save(ctx, other))
		cmd := f.createCmd()
		cmd.DonorID = other.ID
		_, err := f.svc.Create(ctx, cmd)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("nothing mutated by failed creates", func(t *testing.T) {
		assert.Equal(t, registry.RecipientWaiting, f.mustRecipient(t).Status)
		assert.Equal(t, registry.DonorAvailable, f.mustDonor(t).Status)
	})
}

func TestCreate_DuplicateActiveRequestConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sink.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
	_, err := f.svc.Create(ctx, f.createCmd())
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.createCmd())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestCreate_SinkFailureSurfacesDownstream(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.sink.EXPECT().Send(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	_, err := f.svc.Create(ctx, f.createCmd())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDownstream))
}

// respond sets up a pending external request and returns its ID.
func (f *fixture) pendingRequest(t *testing.T) id.RequestID {
	t.Helper()
	f.sink.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
	result, err := f.svc.Create(context.Background(), f.createCmd())
	require.NoError(t, err)
	require.Equal(t, allocmodels.StatusPending, result.Status)
	return result.RequestID
}

func TestRespond_AcceptMatchesBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.pendingRequest(t)

	var sent notification.Intent
	f.sink.EXPECT().Send(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, intent notification.Intent) error {
			sent = intent
			return nil
		})
	f.sink.EXPECT().MarkRead(gomock.Any(), f.hospitalB, requestID).Return(nil)

	result, err := f.svc.Respond(ctx, service.RespondCommand{
		RequestID: requestID,
		Responder: f.hospitalB,
		Decision:  service.DecisionAccept,
		Notes:     "transport arranged",
	})
	require.NoError(t, err)
	assert.Equal(t, allocmodels.StatusAccepted, result.Status)

	assert.Equal(t, registry.RecipientMatched, f.mustRecipient(t).Status)
	d := f.mustDonor(t)
	assert.Equal(t, registry.DonorMatched, d.Status)
	require.NotNil(t, d.MatchedRecipientID)
	assert.Equal(t, f.recipient.ID, *d.MatchedRecipientID)

	assert.Equal(t, f.hospitalA, sent.Hospital, "origin hospital gets the response")
	assert.Equal(t, notification.TypeRequestAccepted, sent.Type)
}

func TestRespond_RejectRevertsRecipientOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.pendingRequest(t)

	f.sink.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
	f.sink.EXPECT().MarkRead(gomock.Any(), f.hospitalB, requestID).Return(nil)

	result, err := f.svc.Respond(ctx, service.RespondCommand{
		RequestID: requestID,
		Responder: f.hospitalB,
		Decision:  service.DecisionReject,
		Notes:     "donor reserved locally",
	})
	require.NoError(t, err)
	assert.Equal(t, allocmodels.StatusRejected, result.Status)

	r := f.mustRecipient(t)
	assert.Equal(t, registry.RecipientWaiting, r.Status)
	assert.Nil(t, r.MatchedDonorID, "reject clears matched references")
	assert.Nil(t, r.MatchedHospitalID)

	assert.Equal(t, registry.DonorAvailable, f.mustDonor(t).Status, "donor stays available for other requests")
}

func TestRespond_OnlyTargetHospitalMayRespond(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.pendingRequest(t)

	_, err := f.svc.Respond(ctx, service.RespondCommand{
		RequestID: requestID,
		Responder: f.hospitalA,
		Decision:  service.DecisionAccept,
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
	assert.Equal(t, registry.RecipientInProgress, f.mustRecipient(t).Status, "authorization failure changes nothing")
}

func TestRespond_DoubleRespondConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.pendingRequest(t)

	f.sink.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.sink.EXPECT().MarkRead(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	decisions := []service.Decision{service.DecisionAccept, service.DecisionReject}
	results := make([]error, len(decisions))
	var wg sync.WaitGroup
	for i, decision := range decisions {
		wg.Add(1)
		go func(i int, decision service.Decision) {
			defer wg.Done()
			_, err := f.svc.Respond(ctx, service.RespondCommand{
				RequestID: requestID,
				Responder: f.hospitalB,
				Decision:  decision,
			})
			results[i] = err
		}(i, decision)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case dErrors.HasCode(err, dErrors.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, wins, "exactly one response wins")
	assert.Equal(t, 1, conflicts, "the loser observes a conflict")

	request, err := f.requests.FindByID(ctx, requestID)
	require.NoError(t, err)
	assert.True(t, request.Status == allocmodels.StatusAccepted || request.Status == allocmodels.StatusRejected)
}

func TestRespond_SecondCallAfterResolutionConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.pendingRequest(t)

	f.sink.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
	f.sink.EXPECT().MarkRead(gomock.Any(), f.hospitalB, requestID).Return(nil)

	_, err := f.svc.Respond(ctx, service.RespondCommand{
		RequestID: requestID,
		Responder: f.hospitalB,
		Decision:  service.DecisionAccept,
	})
	require.NoError(t, err)

	_, err = f.svc.Respond(ctx, service.RespondCommand{
		RequestID: requestID,
		Responder: f.hospitalB,
		Decision:  service.DecisionReject,
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	assert.Equal(t, registry.RecipientMatched, f.mustRecipient(t).Status, "second call must not undo the first")
	assert.Equal(t, registry.DonorMatched, f.mustDonor(t).Status)
}

func TestRespond_RecipientDeletedMidFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.pendingRequest(t)

	// The owning hospital deletes the recipient while the request is pending.
	require.NoError(t, f.recipients.Delete(ctx, f.recipient.ID))

	_, err := f.svc.Respond(ctx, service.RespondCommand{
		RequestID: requestID,
		Responder: f.hospitalB,
		Decision:  service.DecisionAccept,
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeDataIntegrity))

	request, findErr := f.requests.FindByID(ctx, requestID)
	require.NoError(t, findErr)
	assert.Equal(t, allocmodels.StatusPending, request.Status, "request is left pending")
	assert.Equal(t, registry.DonorAvailable, f.mustDonor(t).Status)
}

// acceptedMatch drives the fixture to an accepted external request.
func (f *fixture) acceptedMatch(t *testing.T) id.RequestID {
	t.Helper()
	requestID := f.pendingRequest(t)
	f.sink.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil)
	f.sink.EXPECT().MarkRead(gomock.Any(), f.hospitalB, requestID).Return(nil)
	_, err := f.svc.Respond(context.Background(), service.RespondCommand{
		RequestID: requestID,
		Responder: f.hospitalB,
		Decision:  service.DecisionAccept,
	})
	require.NoError(t, err)
	return requestID
}

func TestCompleteTransplant(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.acceptedMatch(t)

	// One intent per involved hospital.
	f.sink.EXPECT().Send(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	err := f.svc.CompleteTransplant(ctx, service.CompleteCommand{
		Actor:       f.hospitalA,
		RecipientID: f.recipient.ID,
		DonorID:     f.donor.ID,
	})
	require.NoError(t, err)

	r := f.mustRecipient(t)
	assert.Equal(t, registry.RecipientCompleted, r.Status)
	assert.NotNil(t, r.CompletedAt)

	d := f.mustDonor(t)
	assert.Equal(t, registry.DonorDonated, d.Status)
	assert.NotNil(t, d.DonatedAt)
	assert.Nil(t, d.MatchedRecipientID, "reference cleared once donated")

	request, err := f.requests.FindByID(ctx, requestID)
	require.NoError(t, err)
	assert.Equal(t, allocmodels.StatusCompleted, request.Status)
}

func TestCompleteTransplant_RequiresMatchedRecipient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.CompleteTransplant(ctx, service.CompleteCommand{
		Actor:       f.hospitalA,
		RecipientID: f.recipient.ID,
		DonorID:     f.donor.ID,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Contains(t, err.Error(), "matched")

	assert.Equal(t, registry.RecipientWaiting, f.mustRecipient(t).Status, "failed completion mutates nothing")
	assert.Equal(t, registry.DonorAvailable, f.mustDonor(t).Status)
}

func TestGet_TargetViewMarksViewedAndRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.pendingRequest(t)

	f.sink.EXPECT().MarkRead(gomock.Any(), f.hospitalB, requestID).Return(nil)

	request, err := f.svc.Get(ctx, requestID, f.hospitalB)
	require.NoError(t, err)
	assert.True(t, request.Viewed)

	// Second read does not re-mark.
	request, err = f.svc.Get(ctx, requestID, f.hospitalB)
	require.NoError(t, err)
	assert.True(t, request.Viewed)
}

func TestGet_OriginViewDoesNotMarkViewed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.pendingRequest(t)

	request, err := f.svc.Get(ctx, requestID, f.hospitalA)
	require.NoError(t, err)
	assert.False(t, request.Viewed)
}

func TestGet_ThirdPartyCannotSeeRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	requestID := f.pendingRequest(t)

	_, err := f.svc.Get(ctx, requestID, id.NewHospitalID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}
