package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organlink/internal/allocation/handler"
	allocmodels "organlink/internal/allocation/models"
	"organlink/internal/allocation/service"
	"organlink/internal/transport/http/shared"
	id "organlink/pkg/domain"
	dErrors "organlink/pkg/domain-errors"
	"organlink/pkg/testutil"
)

// fakeService records the last command and returns canned results.
type fakeService struct {
	createCmd     service.CreateCommand
	createResult  *service.CreateResult
	respondCmd    service.RespondCommand
	respondResult *service.RespondResult
	completeCmd   service.CompleteCommand
	getRequest    *allocmodels.AllocationRequest
	err           error
}

func (f *fakeService) Create(_ context.Context, cmd service.CreateCommand) (*service.CreateResult, error) {
	f.createCmd = cmd
	return f.createResult, f.err
}

func (f *fakeService) Respond(_ context.Context, cmd service.RespondCommand) (*service.RespondResult, error) {
	f.respondCmd = cmd
	return f.respondResult, f.err
}

func (f *fakeService) CompleteTransplant(_ context.Context, cmd service.CompleteCommand) error {
	f.completeCmd = cmd
	return f.err
}

func (f *fakeService) Get(_ context.Context, _ id.RequestID, _ id.HospitalID) (*allocmodels.AllocationRequest, error) {
	return f.getRequest, f.err
}

func newRouter(svc *fakeService) http.Handler {
	h := handler.New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func TestCreateRequest(t *testing.T) {
	requestID := id.NewRequestID()
	origin := id.NewHospitalID()
	target := id.NewHospitalID()
	recipientID := id.NewRecipientID()
	donorID := id.NewDonorID()

	svc := &fakeService{createResult: &service.CreateResult{
		RequestID:    requestID,
		Status:       allocmodels.StatusPending,
		AutoAccepted: false,
	}}

	req := testutil.NewJSONRequest(t, http.MethodPost, "/allocation/requests", map[string]string{
		"target_hospital_id": target.String(),
		"recipient_id":       recipientID.String(),
		"donor_id":           donorID.String(),
		"notes":              "urgent",
	})
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, testutil.WithHospital(req, origin))

	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		RequestID    string `json:"request_id"`
		Status       string `json:"status"`
		AutoAccepted bool   `json:"auto_accepted"`
	}
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, requestID.String(), body.RequestID)
	assert.Equal(t, "pending", body.Status)
	assert.False(t, body.AutoAccepted)

	// The acting hospital must come from context, never the body.
	assert.Equal(t, origin, svc.createCmd.OriginHospital)
	assert.Equal(t, target, svc.createCmd.TargetHospital)
	assert.Equal(t, "urgent", svc.createCmd.Notes)
}

func TestCreateRequestRejectsBadBody(t *testing.T) {
	req := testutil.NewJSONRequest(t, http.MethodPost, "/allocation/requests", map[string]string{
		"target_hospital_id": "not-a-uuid",
	})
	rec := httptest.NewRecorder()
	newRouter(&fakeService{}).ServeHTTP(rec, testutil.WithHospital(req, id.NewHospitalID()))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body shared.ErrorBody
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, "validation", body.Error.Code)
}

func TestRespond(t *testing.T) {
	requestID := id.NewRequestID()
	responder := id.NewHospitalID()
	svc := &fakeService{respondResult: &service.RespondResult{Status: allocmodels.StatusAccepted}}

	req := testutil.NewJSONRequest(t, http.MethodPost, "/allocation/requests/"+requestID.String()+"/respond",
		map[string]string{"decision": "accept", "notes": "ok"})
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, testutil.WithHospital(req, responder))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, requestID, svc.respondCmd.RequestID)
	assert.Equal(t, responder, svc.respondCmd.Responder)
}

func TestRespondRejectsUnknownDecision(t *testing.T) {
	req := testutil.NewJSONRequest(t, http.MethodPost,
		"/allocation/requests/"+id.NewRequestID().String()+"/respond",
		map[string]string{"decision": "maybe"})
	rec := httptest.NewRecorder()
	newRouter(&fakeService{}).ServeHTTP(rec, testutil.WithHospital(req, id.NewHospitalID()))

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServiceErrorsMapToStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"conflict", dErrors.New(dErrors.CodeConflict, "already resolved"), http.StatusConflict},
		{"forbidden", dErrors.New(dErrors.CodeForbidden, "not the target"), http.StatusForbidden},
		{"not found", dErrors.New(dErrors.CodeNotFound, "no such request"), http.StatusNotFound},
		{"data integrity", dErrors.New(dErrors.CodeDataIntegrity, "recipient vanished"), http.StatusConflict},
		{"downstream", dErrors.New(dErrors.CodeDownstream, "sink unavailable"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodPost,
				"/allocation/requests/"+id.NewRequestID().String()+"/respond",
				map[string]string{"decision": "accept"})
			rec := httptest.NewRecorder()
			newRouter(&fakeService{err: tc.err}).ServeHTTP(rec, testutil.WithHospital(req, id.NewHospitalID()))

			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestCompleteTransplant(t *testing.T) {
	actor := id.NewHospitalID()
	recipientID := id.NewRecipientID()
	donorID := id.NewDonorID()
	svc := &fakeService{}

	req := testutil.NewJSONRequest(t, http.MethodPost, "/allocation/transplants/complete", map[string]string{
		"recipient_id": recipientID.String(),
		"donor_id":     donorID.String(),
	})
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, testutil.WithHospital(req, actor))

	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, actor, svc.completeCmd.Actor)
	assert.Equal(t, recipientID, svc.completeCmd.RecipientID)
}

func TestGetRequest(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	request := &allocmodels.AllocationRequest{
		ID:               id.NewRequestID(),
		OriginHospitalID: id.NewHospitalID(),
		TargetHospitalID: id.NewHospitalID(),
		RecipientID:      id.NewRecipientID(),
		DonorID:          id.NewDonorID(),
		Status:           allocmodels.StatusPending,
		RequesterNotes:   "please expedite",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	svc := &fakeService{getRequest: request}

	req := testutil.NewJSONRequest(t, http.MethodGet, "/allocation/requests/"+request.ID.String(), nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, testutil.WithHospital(req, request.TargetHospitalID))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		RequestID      string `json:"request_id"`
		Status         string `json:"status"`
		RequesterNotes string `json:"requester_notes"`
	}
	testutil.DecodeJSON(t, rec, &body)
	assert.Equal(t, request.ID.String(), body.RequestID)
	assert.Equal(t, "pending", body.Status)
	assert.Equal(t, "please expedite", body.RequesterNotes)
}
