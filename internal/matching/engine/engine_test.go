package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"organlink/internal/registry/models"
	id "organlink/pkg/domain"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testRecipient(hospital id.HospitalID) *models.Recipient {
	return &models.Recipient{
		ID:           id.NewRecipientID(),
		HospitalID:   hospital,
		Organ:        models.OrganKidney,
		BloodType:    models.BloodOPos,
		Urgency:      models.UrgencyHigh,
		Age:          35,
		Gender:       models.GenderMale,
		Status:       models.RecipientWaiting,
		RegisteredAt: now.Add(-120 * 24 * time.Hour),
	}
}

func testCandidate(hospital *models.Hospital, blood models.BloodType, age int, registered time.Time) Candidate {
	return Candidate{
		Donor: &models.Donor{
			ID:           id.NewDonorID(),
			HospitalID:   hospital.ID,
			BloodType:    blood,
			Organs:       []models.Organ{models.OrganKidney},
			Age:          age,
			Gender:       models.GenderMale,
			Status:       models.DonorAvailable,
			RegisteredAt: registered,
		},
		Hospital: hospital,
	}
}

func TestDefaultWeightsValid(t *testing.T) {
	require.NoError(t, DefaultWeights.Validate())
}

func TestWeightsValidate(t *testing.T) {
	bad := Weights{Blood: 0.9, Urgency: 0.9}
	assert.Error(t, bad.Validate())

	negative := Weights{Blood: 1.2, Urgency: -0.2}
	assert.Error(t, negative.Validate())
}

func TestComposite_UsesWeights(t *testing.T) {
	b := Breakdown{Blood: 100, Urgency: 100, Proximity: 100, Wait: 100, Medical: 100}
	assert.Equal(t, 100.0, Composite(DefaultWeights, b))

	onlyBlood := Weights{Blood: 1}
	assert.Equal(t, 80.0, Composite(onlyBlood, Breakdown{Blood: 80, Urgency: 10}))
}

func TestRank_OrdersByScoreDescending(t *testing.T) {
	recipientHospital := &models.Hospital{ID: id.NewHospitalID(), City: "Chennai", Region: "Tamil Nadu", Country: "India"}
	nearHospital := &models.Hospital{ID: id.NewHospitalID(), City: "Chennai", Region: "Tamil Nadu", Country: "India"}
	farHospital := &models.Hospital{ID: id.NewHospitalID(), City: "Berlin", Region: "Berlin", Country: "Germany"}

	recipient := testRecipient(recipientHospital.ID)
	near := testCandidate(nearHospital, models.BloodOPos, 35, now.Add(-time.Hour))
	far := testCandidate(farHospital, models.BloodOPos, 35, now.Add(-time.Hour))

	matches, err := New().Rank(context.Background(), recipient, recipientHospital, []Candidate{far, near}, now)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, near.Donor.ID, matches[0].Donor.ID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestRank_ExcludesBelowViabilityFloor(t *testing.T) {
	recipientHospital := &models.Hospital{ID: id.NewHospitalID(), City: "Chennai", Region: "Tamil Nadu", Country: "India"}
	farHospital := &models.Hospital{ID: id.NewHospitalID(), City: "Lima", Region: "Lima", Country: "Peru"}

	recipient := testRecipient(recipientHospital.ID)
	recipient.Urgency = models.UrgencyLow
	recipient.RegisteredAt = now.Add(-24 * time.Hour)

	// Compatible but weak on every other axis; a high floor filters it out.
	weak := testCandidate(farHospital, models.BloodONeg, 80, now)

	matches, err := New(WithMinViableScore(70)).Rank(
		context.Background(), recipient, recipientHospital, []Candidate{weak}, now)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRank_RationaleNamesTheEvidence(t *testing.T) {
	recipientHospital := &models.Hospital{ID: id.NewHospitalID(), City: "Chennai", Region: "Tamil Nadu", Country: "India"}
	recipient := testRecipient(recipientHospital.ID)
	candidate := testCandidate(recipientHospital, models.BloodOPos, 36, now)

	matches, err := New().Rank(context.Background(), recipient, recipientHospital, []Candidate{candidate}, now)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	rationale := matches[0].Rationale
	assert.Contains(t, rationale, "identical blood type O+")
	assert.Contains(t, rationale, "high urgency")
	assert.Contains(t, rationale, "same city")
	assert.Contains(t, rationale, "waiting 120 days")
}

func TestRank_ScenarioA_PerfectCandidate(t *testing.T) {
	hospitalA := &models.Hospital{ID: id.NewHospitalID(), City: "Chennai", Region: "Tamil Nadu", Country: "India"}
	hospitalB := &models.Hospital{ID: id.NewHospitalID(), City: "Coimbatore", Region: "Tamil Nadu", Country: "India"}

	recipient := testRecipient(hospitalA.ID)
	donor := testCandidate(hospitalB, models.BloodOPos, 35, now)

	matches, err := New().Rank(context.Background(), recipient, hospitalA, []Candidate{donor}, now)
	require.NoError(t, err)
	require.Len(t, matches, 1)

	match := matches[0]
	assert.Equal(t, 100.0, match.Breakdown.Blood)
	assert.NotZero(t, match.Breakdown.Proximity)
	assert.NotZero(t, match.Breakdown.Urgency)
	assert.Greater(t, match.Score, MinViableScore)
}

func TestRank_TieBreaksByDonorRegistration(t *testing.T) {
	recipientHospital := &models.Hospital{ID: id.NewHospitalID(), City: "Chennai", Region: "Tamil Nadu", Country: "India"}
	recipient := testRecipient(recipientHospital.ID)

	older := testCandidate(recipientHospital, models.BloodOPos, 35, now.Add(-48*time.Hour))
	newer := testCandidate(recipientHospital, models.BloodOPos, 35, now.Add(-time.Hour))

	matches, err := New().Rank(context.Background(), recipient, recipientHospital, []Candidate{newer, older}, now)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, older.Donor.ID, matches[0].Donor.ID)
}
