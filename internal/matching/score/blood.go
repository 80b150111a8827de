// Package score holds the pure sub-scorers the ranking engine combines. Every
// function here is deterministic and side-effect free, so scoring may run
// concurrently for independent recipients with no coordination.
package score

import "organlink/internal/registry/models"

// compatibleRecipients maps a donor blood type to the recipient types it can
// donate to, per standard ABO/Rh donor-compatibility rules.
var compatibleRecipients = map[models.BloodType][]models.BloodType{
	models.BloodONeg: {
		models.BloodONeg, models.BloodOPos, models.BloodANeg, models.BloodAPos,
		models.BloodBNeg, models.BloodBPos, models.BloodABNeg, models.BloodABPos,
	},
	models.BloodOPos:  {models.BloodOPos, models.BloodAPos, models.BloodBPos, models.BloodABPos},
	models.BloodANeg:  {models.BloodANeg, models.BloodAPos, models.BloodABNeg, models.BloodABPos},
	models.BloodAPos:  {models.BloodAPos, models.BloodABPos},
	models.BloodBNeg:  {models.BloodBNeg, models.BloodBPos, models.BloodABNeg, models.BloodABPos},
	models.BloodBPos:  {models.BloodBPos, models.BloodABPos},
	models.BloodABNeg: {models.BloodABNeg, models.BloodABPos},
	models.BloodABPos: {models.BloodABPos},
}

// CanDonate reports whether donor blood can be given to recipient blood.
func CanDonate(donor, recipient models.BloodType) bool {
	for _, r := range compatibleRecipients[donor] {
		if r == recipient {
			return true
		}
	}
	return false
}

// CompatibleDonors returns every donor blood type a recipient can accept.
// The candidate finder uses this as a storage-level prefilter.
func CompatibleDonors(recipient models.BloodType) []models.BloodType {
	var donors []models.BloodType
	for _, donor := range models.AllBloodTypes {
		if CanDonate(donor, recipient) {
			donors = append(donors, donor)
		}
	}
	return donors
}

// Blood scores donor-to-recipient blood compatibility. Identical types score
// 100. Compatible non-identical pairs land in the 75-95 band, higher for the
// rarer universal-donor types whose use carries an opportunity cost.
// Incompatible pairs score 0.
func Blood(donor, recipient models.BloodType) float64 {
	if donor == recipient {
		return 100
	}
	if !CanDonate(donor, recipient) {
		return 0
	}
	switch donor {
	case models.BloodONeg:
		return 90
	case models.BloodOPos:
		return 85
	case models.BloodANeg, models.BloodBNeg:
		return 80
	case models.BloodABNeg:
		return 78
	default:
		return 75
	}
}
