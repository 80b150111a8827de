package score

import "organlink/internal/registry/models"

const (
	medicalBaseline       = 75.0
	pediatricAgeCutoff    = 13
	pediatricMaxGap       = 20
	elderlyAgeCutoff      = 65
	pediatricBonus        = 10.0
	elderlyPairingPenalty = 10.0
	genderMatchBonus      = 5.0
	maxAgeGapPenalty      = 35.0
)

// ageGapSensitivity weights the age-gap penalty per organ. Heart and lung
// outcomes degrade much faster with donor-recipient age mismatch than kidney.
var ageGapSensitivity = map[models.Organ]float64{
	models.OrganHeart:     1.0,
	models.OrganLung:      1.0,
	models.OrganLiver:     0.6,
	models.OrganPancreas:  0.6,
	models.OrganIntestine: 0.6,
	models.OrganKidney:    0.3,
	models.OrganCornea:    0.2,
}

// genderSensitiveOrgans have documented gender-matched outcome advantages.
var genderSensitiveOrgans = map[models.Organ]bool{
	models.OrganHeart: true,
	models.OrganLiver: true,
}

// Medical computes the medical-risk sub-score for a recipient-donor pairing.
// It starts from a neutral baseline and adjusts for age gap (organ-dependent
// sensitivity), pediatric recipients, elderly pairings, and gender match on
// gender-sensitive organs. The result is clamped to [0, 100].
func Medical(recipient *models.Recipient, donor *models.Donor, organ models.Organ) float64 {
	result := medicalBaseline

	gap := recipient.Age - donor.Age
	if gap < 0 {
		gap = -gap
	}
	sensitivity, ok := ageGapSensitivity[organ]
	if !ok {
		sensitivity = 0.5
	}
	penalty := float64(gap) * sensitivity
	if penalty > maxAgeGapPenalty {
		penalty = maxAgeGapPenalty
	}
	result -= penalty

	if recipient.Age < pediatricAgeCutoff && gap <= pediatricMaxGap {
		result += pediatricBonus
	}
	if recipient.Age >= elderlyAgeCutoff && donor.Age >= elderlyAgeCutoff {
		result -= elderlyPairingPenalty
	}
	if genderSensitiveOrgans[organ] && recipient.Gender == donor.Gender {
		result += genderMatchBonus
	}

	return Clamp(result)
}

// Clamp bounds a score to [0, 100].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
