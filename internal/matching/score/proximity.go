package score

import (
	"fmt"
	"strings"

	"organlink/internal/registry/models"
)

// ProximityTier labels the administrative-hierarchy distance between two
// hospitals. Exact geocoordinates are often unavailable, so proximity is a
// coarse four-tier heuristic rather than a routed distance.
type ProximityTier string

const (
	TierLocal         ProximityTier = "Local"
	TierRegional      ProximityTier = "Regional"
	TierNational      ProximityTier = "National"
	TierInternational ProximityTier = "International"
)

// Proximity scores how close the donor's hospital is to the recipient's,
// strictly ordered Local(100) > Regional(75) > National(50) > International(30),
// and returns a short human-readable explanation.
func Proximity(recipientHospital, donorHospital *models.Hospital) (float64, ProximityTier, string) {
	switch {
	case equalFold(recipientHospital.City, donorHospital.City) &&
		equalFold(recipientHospital.Country, donorHospital.Country):
		return 100, TierLocal, fmt.Sprintf("same city (%s)", donorHospital.City)
	case equalFold(recipientHospital.Region, donorHospital.Region) &&
		equalFold(recipientHospital.Country, donorHospital.Country):
		return 75, TierRegional, fmt.Sprintf("same region (%s)", donorHospital.Region)
	case equalFold(recipientHospital.Country, donorHospital.Country):
		return 50, TierNational, fmt.Sprintf("same country (%s)", donorHospital.Country)
	default:
		return 30, TierInternational, fmt.Sprintf("international transfer (%s to %s)",
			donorHospital.Country, recipientHospital.Country)
	}
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
