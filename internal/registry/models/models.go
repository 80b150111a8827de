// Package models defines the hospital, recipient, and donor records the
// allocation core operates on. Record CRUD lives with the owning collaborator;
// this core only reads them and drives their match state.
package models

import (
	"strings"
	"time"

	id "organlink/pkg/domain"
	dErrors "organlink/pkg/domain-errors"
)

// BloodType is an ABO/Rh blood group.
type BloodType string

const (
	BloodONeg  BloodType = "O-"
	BloodOPos  BloodType = "O+"
	BloodANeg  BloodType = "A-"
	BloodAPos  BloodType = "A+"
	BloodBNeg  BloodType = "B-"
	BloodBPos  BloodType = "B+"
	BloodABNeg BloodType = "AB-"
	BloodABPos BloodType = "AB+"
)

// AllBloodTypes lists every supported blood group.
var AllBloodTypes = []BloodType{
	BloodONeg, BloodOPos, BloodANeg, BloodAPos,
	BloodBNeg, BloodBPos, BloodABNeg, BloodABPos,
}

// ParseBloodType validates a blood group string.
func ParseBloodType(s string) (BloodType, error) {
	candidate := BloodType(strings.ToUpper(strings.TrimSpace(s)))
	for _, bt := range AllBloodTypes {
		if bt == candidate {
			return bt, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown blood type %q", s)
}

// Organ is a donatable organ, stored lowercase singular.
type Organ string

const (
	OrganKidney    Organ = "kidney"
	OrganLiver     Organ = "liver"
	OrganHeart     Organ = "heart"
	OrganLung      Organ = "lung"
	OrganPancreas  Organ = "pancreas"
	OrganIntestine Organ = "intestine"
	OrganCornea    Organ = "cornea"
)

var knownOrgans = map[Organ]bool{
	OrganKidney: true, OrganLiver: true, OrganHeart: true, OrganLung: true,
	OrganPancreas: true, OrganIntestine: true, OrganCornea: true,
}

// NormalizeOrgan canonicalizes organ names, tolerating case and singular/plural
// variants ("Kidneys" and "kidney" are the same organ).
func NormalizeOrgan(s string) (Organ, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return "", dErrors.New(dErrors.CodeValidation, "organ is required")
	}
	// Exact hit first: "pancreas" is singular and must not lose its "s".
	if knownOrgans[Organ(name)] {
		return Organ(name), nil
	}
	organ := Organ(strings.TrimSuffix(name, "s"))
	if !knownOrgans[organ] {
		return "", dErrors.Newf(dErrors.CodeValidation, "unknown organ %q", s)
	}
	return organ, nil
}

// Gender of a donor or recipient, used only for organs with gender-sensitive
// outcomes.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
	GenderOther  Gender = "other"
)

// Urgency is the recipient's medical urgency tier.
type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// ParseUrgency validates an urgency string.
func ParseUrgency(s string) (Urgency, error) {
	switch Urgency(strings.ToLower(strings.TrimSpace(s))) {
	case UrgencyLow:
		return UrgencyLow, nil
	case UrgencyMedium:
		return UrgencyMedium, nil
	case UrgencyHigh:
		return UrgencyHigh, nil
	case UrgencyCritical:
		return UrgencyCritical, nil
	}
	return "", dErrors.Newf(dErrors.CodeValidation, "unknown urgency %q", s)
}

// RecipientStatus is driven exclusively by the allocation state machine.
type RecipientStatus string

const (
	RecipientWaiting    RecipientStatus = "waiting"
	RecipientInProgress RecipientStatus = "in_progress"
	RecipientMatched    RecipientStatus = "matched"
	RecipientCompleted  RecipientStatus = "completed"
)

// DonorStatus tracks a donor through matching and donation.
type DonorStatus string

const (
	DonorAvailable DonorStatus = "available"
	DonorMatched   DonorStatus = "matched"
	DonorDonated   DonorStatus = "donated"
)

// Hospital locates a facility in the administrative hierarchy used by the
// proximity heuristic.
type Hospital struct {
	ID      id.HospitalID
	Name    string
	City    string
	Region  string
	Country string
}

// Recipient is a waiting patient. MatchedDonorID and MatchedHospitalID are set
// only while Status is in_progress or matched.
type Recipient struct {
	ID                id.RecipientID
	HospitalID        id.HospitalID
	Organ             Organ
	BloodType         BloodType
	Urgency           Urgency
	Age               int
	Gender            Gender
	Status            RecipientStatus
	MatchedDonorID    *id.DonorID
	MatchedHospitalID *id.HospitalID
	RegisteredAt      time.Time
	CompletedAt       *time.Time
}

// Donor offers one or more organs. MatchedRecipientID is set if and only if
// Status is matched.
type Donor struct {
	ID                 id.DonorID
	HospitalID         id.HospitalID
	BloodType          BloodType
	Organs             []Organ
	Age                int
	Gender             Gender
	Status             DonorStatus
	MatchedRecipientID *id.RecipientID
	RegisteredAt       time.Time
	DonatedAt          *time.Time
}

// Offers reports whether the donor's organ set contains the given organ.
func (d Donor) Offers(organ Organ) bool {
	for _, o := range d.Organs {
		if o == organ {
			return true
		}
	}
	return false
}
