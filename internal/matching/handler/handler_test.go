package handler_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organlink/internal/matching/engine"
	"organlink/internal/matching/handler"
	"organlink/internal/matching/score"
	"organlink/internal/matching/service"
	registry "organlink/internal/registry/models"
	"organlink/internal/transport/http/shared"
	id "organlink/pkg/domain"
	"organlink/pkg/testutil"
)

type fakeService struct {
	query    service.Query
	matches  []engine.Match
	enhanced *service.EnhancedResult
	err      error
}

func (f *fakeService) FindMatches(_ context.Context, query service.Query) ([]engine.Match, error) {
	f.query = query
	return f.matches, f.err
}

func (f *fakeService) FindEnhancedMatches(_ context.Context, query service.Query) (*service.EnhancedResult, error) {
	f.query = query
	return f.enhanced, f.err
}

func newRouter(svc *fakeService) http.Handler {
	h := handler.New(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func someMatches(n int) []engine.Match {
	matches := make([]engine.Match, 0, n)
	for i := 0; i < n; i++ {
		matches = append(matches, engine.Match{
			Donor:         &registry.Donor{ID: id.NewDonorID(), BloodType: registry.BloodOPos},
			DonorHospital: &registry.Hospital{ID: id.NewHospitalID(), Name: fmt.Sprintf("Hospital %d", i)},
			Score:         float64(100 - i),
			ProximityTier: score.TierRegional,
			Rationale:     "compatible",
		})
	}
	return matches
}

type matchesBody struct {
	Matches []struct {
		DonorID      string  `json:"donor_id"`
		HospitalName string  `json:"hospital_name"`
		Score        float64 `json:"score"`
	} `json:"matches"`
}

func TestFindMatchesDefaultLimit(t *testing.T) {
	recipientID := id.NewRecipientID()
	hospital := id.NewHospitalID()
	svc := &fakeService{matches: someMatches(15)}

	req := testutil.NewJSONRequest(t, http.MethodGet,
		"/matching/recipients/"+recipientID.String()+"/matches", nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, testutil.WithHospital(req, hospital))

	require.Equal(t, http.StatusOK, rec.Code)
	var body matchesBody
	testutil.DecodeJSON(t, rec, &body)
	assert.Len(t, body.Matches, 10)
	assert.Equal(t, 100.0, body.Matches[0].Score)

	assert.Equal(t, recipientID, svc.query.RecipientID)
	assert.Equal(t, hospital, svc.query.Hospital)
}

func TestFindMatchesQueryParams(t *testing.T) {
	svc := &fakeService{matches: someMatches(5)}

	req := testutil.NewJSONRequest(t, http.MethodGet,
		"/matching/recipients/"+id.NewRecipientID().String()+"/matches?organ=liver&blood_type=AB%2B&urgency=critical&scope=internal&limit=2", nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, testutil.WithHospital(req, id.NewHospitalID()))

	require.Equal(t, http.StatusOK, rec.Code)
	var body matchesBody
	testutil.DecodeJSON(t, rec, &body)
	assert.Len(t, body.Matches, 2)

	assert.Equal(t, "liver", svc.query.Organ)
	assert.Equal(t, "AB+", svc.query.BloodType)
	assert.Equal(t, "critical", svc.query.Urgency)
	assert.Equal(t, service.ScopeInternal, svc.query.Scope)
}

func TestFindMatchesRejectsBadParams(t *testing.T) {
	cases := []struct {
		name string
		path string
	}{
		{"bad recipient id", "/matching/recipients/not-a-uuid/matches"},
		{"unknown scope", "/matching/recipients/" + id.NewRecipientID().String() + "/matches?scope=galactic"},
		{"zero limit", "/matching/recipients/" + id.NewRecipientID().String() + "/matches?limit=0"},
		{"non-numeric limit", "/matching/recipients/" + id.NewRecipientID().String() + "/matches?limit=lots"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := testutil.NewJSONRequest(t, http.MethodGet, tc.path, nil)
			rec := httptest.NewRecorder()
			newRouter(&fakeService{}).ServeHTTP(rec, testutil.WithHospital(req, id.NewHospitalID()))

			require.Equal(t, http.StatusBadRequest, rec.Code)
			var body shared.ErrorBody
			testutil.DecodeJSON(t, rec, &body)
			assert.Equal(t, "validation", body.Error.Code)
		})
	}
}

func TestFindEnhancedMatches(t *testing.T) {
	svc := &fakeService{enhanced: &service.EnhancedResult{
		Matches:         someMatches(1),
		AppliedPolicies: []string{"Local Kidney Priority"},
		Weights:         engine.DefaultWeights,
		WeightPolicy:    "",
	}}

	req := testutil.NewJSONRequest(t, http.MethodGet,
		"/matching/recipients/"+id.NewRecipientID().String()+"/enhanced-matches", nil)
	rec := httptest.NewRecorder()
	newRouter(svc).ServeHTTP(rec, testutil.WithHospital(req, id.NewHospitalID()))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Matches         []map[string]any `json:"matches"`
		AppliedPolicies []string         `json:"applied_policies"`
		Weights         engine.Weights   `json:"weights"`
	}
	testutil.DecodeJSON(t, rec, &body)
	assert.Len(t, body.Matches, 1)
	assert.Equal(t, []string{"Local Kidney Priority"}, body.AppliedPolicies)
	assert.Equal(t, engine.DefaultWeights, body.Weights)
}
