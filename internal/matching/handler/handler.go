// Package handler exposes match searches over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"organlink/internal/matching/engine"
	"organlink/internal/matching/metrics"
	"organlink/internal/matching/service"
	"organlink/internal/transport/http/shared"
	id "organlink/pkg/domain"
	dErrors "organlink/pkg/domain-errors"
	"organlink/pkg/requestcontext"
)

// Service is the matching surface the handler drives.
type Service interface {
	FindMatches(ctx context.Context, query service.Query) ([]engine.Match, error)
	FindEnhancedMatches(ctx context.Context, query service.Query) (*service.EnhancedResult, error)
}

// Handler handles match search endpoints.
type Handler struct {
	matching Service
	logger   *slog.Logger
}

func New(matching Service, logger *slog.Logger) *Handler {
	return &Handler{matching: matching, logger: logger}
}

// Register mounts the matching routes. Auth middleware is applied by the
// router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/matching/recipients/{recipientID}/matches", h.handleFindMatches)
	r.Get("/matching/recipients/{recipientID}/enhanced-matches", h.handleFindEnhancedMatches)
}

type matchItem struct {
	DonorID         string           `json:"donor_id"`
	HospitalID      string           `json:"hospital_id"`
	HospitalName    string           `json:"hospital_name"`
	BloodType       string           `json:"blood_type"`
	Score           float64          `json:"score"`
	Breakdown       engine.Breakdown `json:"breakdown"`
	ProximityTier   string           `json:"proximity_tier"`
	Rationale       string           `json:"rationale"`
	AppliedPolicies []string         `json:"applied_policies,omitempty"`
}

type matchesResponse struct {
	Matches []matchItem `json:"matches"`
}

type enhancedMatchesResponse struct {
	Matches         []matchItem    `json:"matches"`
	AppliedPolicies []string       `json:"applied_policies"`
	Weights         engine.Weights `json:"weights"`
	WeightPolicy    string         `json:"weight_policy,omitempty"`
}

// defaultLimit bounds result sets unless the caller asks for more.
const defaultLimit = 10

func (h *Handler) handleFindMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query, limit, err := h.queryFrom(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	matches, err := h.matching.FindMatches(ctx, query)
	metrics.Observe("standard", err)
	if err != nil {
		h.logError(ctx, "match search failed", err)
		shared.WriteError(w, err)
		return
	}
	metrics.MatchesReturned.Observe(float64(len(matches)))

	shared.WriteJSON(w, http.StatusOK, matchesResponse{Matches: toItems(matches, limit)})
}

func (h *Handler) handleFindEnhancedMatches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query, limit, err := h.queryFrom(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	result, err := h.matching.FindEnhancedMatches(ctx, query)
	metrics.Observe("enhanced", err)
	if err != nil {
		h.logError(ctx, "enhanced match search failed", err)
		shared.WriteError(w, err)
		return
	}
	metrics.MatchesReturned.Observe(float64(len(result.Matches)))

	shared.WriteJSON(w, http.StatusOK, enhancedMatchesResponse{
		Matches:         toItems(result.Matches, limit),
		AppliedPolicies: result.AppliedPolicies,
		Weights:         result.Weights,
		WeightPolicy:    result.WeightPolicy,
	})
}

func (h *Handler) queryFrom(r *http.Request) (service.Query, int, error) {
	recipientID, err := id.ParseRecipientID(chi.URLParam(r, "recipientID"))
	if err != nil {
		return service.Query{}, 0, err
	}

	params := r.URL.Query()
	scope := service.Scope(params.Get("scope"))
	switch scope {
	case "", service.ScopeExternal, service.ScopeInternal, service.ScopeAll:
	default:
		return service.Query{}, 0, dErrors.Newf(dErrors.CodeValidation, "unknown scope %q", scope)
	}

	limit := defaultLimit
	if raw := params.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			return service.Query{}, 0, dErrors.Newf(dErrors.CodeValidation, "invalid limit %q", raw)
		}
		limit = parsed
	}

	return service.Query{
		RecipientID: recipientID,
		Hospital:    requestcontext.HospitalID(r.Context()),
		Scope:       scope,
		Organ:       params.Get("organ"),
		BloodType:   params.Get("blood_type"),
		Urgency:     params.Get("urgency"),
	}, limit, nil
}

func toItems(matches []engine.Match, limit int) []matchItem {
	if len(matches) > limit {
		matches = matches[:limit]
	}
	items := make([]matchItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, matchItem{
			DonorID:         m.Donor.ID.String(),
			HospitalID:      m.DonorHospital.ID.String(),
			HospitalName:    m.DonorHospital.Name,
			BloodType:       string(m.Donor.BloodType),
			Score:           m.Score,
			Breakdown:       m.Breakdown,
			ProximityTier:   string(m.ProximityTier),
			Rationale:       m.Rationale,
			AppliedPolicies: m.AppliedPolicies,
		})
	}
	return items
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
