// Package handler exposes the allocation state machine over HTTP. The acting
// hospital always comes from the authenticated request context, never from the
// body.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"organlink/internal/allocation/metrics"
	allocmodels "organlink/internal/allocation/models"
	"organlink/internal/allocation/service"
	"organlink/internal/transport/http/shared"
	id "organlink/pkg/domain"
	dErrors "organlink/pkg/domain-errors"
	"organlink/pkg/requestcontext"
)

// Service is the allocation surface the handler drives.
type Service interface {
	Create(ctx context.Context, cmd service.CreateCommand) (*service.CreateResult, error)
	Respond(ctx context.Context, cmd service.RespondCommand) (*service.RespondResult, error)
	CompleteTransplant(ctx context.Context, cmd service.CompleteCommand) error
	Get(ctx context.Context, requestID id.RequestID, viewer id.HospitalID) (*allocmodels.AllocationRequest, error)
}

// Handler handles allocation request endpoints.
type Handler struct {
	allocation Service
	logger     *slog.Logger
}

func New(allocation Service, logger *slog.Logger) *Handler {
	return &Handler{allocation: allocation, logger: logger}
}

// Register mounts the allocation routes. Auth middleware is applied by the
// router; every route here assumes an acting hospital in context.
func (h *Handler) Register(r chi.Router) {
	r.Post("/allocation/requests", h.handleCreate)
	r.Get("/allocation/requests/{requestID}", h.handleGet)
	r.Post("/allocation/requests/{requestID}/respond", h.handleRespond)
	r.Post("/allocation/transplants/complete", h.handleComplete)
}

type createRequest struct {
	TargetHospitalID string `json:"target_hospital_id"`
	RecipientID      string `json:"recipient_id"`
	DonorID          string `json:"donor_id"`
	Notes            string `json:"notes"`
}

type createResponse struct {
	RequestID    string `json:"request_id"`
	Status       string `json:"status"`
	AutoAccepted bool   `json:"auto_accepted"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	origin := requestcontext.HospitalID(ctx)

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}

	target, err := id.ParseHospitalID(req.TargetHospitalID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	recipientID, err := id.ParseRecipientID(req.RecipientID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	donorID, err := id.ParseDonorID(req.DonorID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.allocation.Create(ctx, service.CreateCommand{
		OriginHospital: origin,
		TargetHospital: target,
		RecipientID:    recipientID,
		DonorID:        donorID,
		Notes:          req.Notes,
	})
	metrics.Observe("create", err)
	if err != nil {
		h.logError(ctx, "create allocation request failed", err)
		shared.WriteError(w, err)
		return
	}
	if result.AutoAccepted {
		metrics.AutoAcceptedTotal.Inc()
	}

	shared.WriteJSON(w, http.StatusCreated, createResponse{
		RequestID:    result.RequestID.String(),
		Status:       string(result.Status),
		AutoAccepted: result.AutoAccepted,
	})
}

type respondRequest struct {
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

type respondResponse struct {
	Status string `json:"status"`
}

func (h *Handler) handleRespond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	responder := requestcontext.HospitalID(ctx)

	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	decision, err := service.ParseDecision(req.Decision)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.allocation.Respond(ctx, service.RespondCommand{
		RequestID: requestID,
		Responder: responder,
		Decision:  decision,
		Notes:     req.Notes,
	})
	metrics.Observe("respond", err)
	if err != nil {
		h.logError(ctx, "respond to allocation request failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, respondResponse{Status: string(result.Status)})
}

type completeRequest struct {
	RecipientID string `json:"recipient_id"`
	DonorID     string `json:"donor_id"`
	Notes       string `json:"notes"`
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor := requestcontext.HospitalID(ctx)

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeValidation, "invalid request body"))
		return
	}
	recipientID, err := id.ParseRecipientID(req.RecipientID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	donorID, err := id.ParseDonorID(req.DonorID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	err = h.allocation.CompleteTransplant(ctx, service.CompleteCommand{
		Actor:       actor,
		RecipientID: recipientID,
		DonorID:     donorID,
		Notes:       req.Notes,
	})
	metrics.Observe("complete", err)
	if err != nil {
		h.logError(ctx, "complete transplant failed", err)
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type requestResponse struct {
	RequestID        string    `json:"request_id"`
	OriginHospitalID string    `json:"origin_hospital_id"`
	TargetHospitalID string    `json:"target_hospital_id"`
	RecipientID      string    `json:"recipient_id"`
	DonorID          string    `json:"donor_id"`
	Status           string    `json:"status"`
	RequesterNotes   string    `json:"requester_notes"`
	ResponderNotes   string    `json:"responder_notes"`
	Viewed           bool      `json:"viewed"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer := requestcontext.HospitalID(ctx)

	requestID, err := id.ParseRequestID(chi.URLParam(r, "requestID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	request, err := h.allocation.Get(ctx, requestID, viewer)
	if err != nil {
		h.logError(ctx, "get allocation request failed", err)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, requestResponse{
		RequestID:        request.ID.String(),
		OriginHospitalID: request.OriginHospitalID.String(),
		TargetHospitalID: request.TargetHospitalID.String(),
		RecipientID:      request.RecipientID.String(),
		DonorID:          request.DonorID.String(),
		Status:           string(request.Status),
		RequesterNotes:   request.RequesterNotes,
		ResponderNotes:   request.ResponderNotes,
		Viewed:           request.Viewed,
		CreatedAt:        request.CreatedAt,
		UpdatedAt:        request.UpdatedAt,
	})
}

func (h *Handler) logError(ctx context.Context, msg string, err error) {
	level := slog.LevelWarn
	switch dErrors.CodeOf(err) {
	case dErrors.CodeDownstream, dErrors.CodeDataIntegrity, dErrors.CodeInternal:
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"request_id", requestcontext.RequestID(ctx),
		"code", string(dErrors.CodeOf(err)),
		"error", err.Error(),
	)
}
