// Package store defines the repository contracts for hospital, recipient, and
// donor records. Implementations return sentinel errors; services translate
// them into coded domain errors.
package store

import (
	"context"
	"time"

	"organlink/internal/registry/models"
	id "organlink/pkg/domain"
)

// ScopeMode selects how candidate queries treat hospital ownership.
type ScopeMode int

const (
	// ScopeAny places no hospital restriction on candidates.
	ScopeAny ScopeMode = iota
	// ScopeSameHospital restricts candidates to one hospital (internal match detection).
	ScopeSameHospital
	// ScopeExcludeHospital excludes one hospital (cross-hospital search).
	ScopeExcludeHospital
)

// CandidateScope restricts a donor candidate query by hospital. The caller
// picks the scope; the store never assumes one.
type CandidateScope struct {
	Mode     ScopeMode
	Hospital id.HospitalID
}

// AnyHospital returns an unrestricted scope.
func AnyHospital() CandidateScope { return CandidateScope{Mode: ScopeAny} }

// SameHospital restricts candidates to the given hospital.
func SameHospital(h id.HospitalID) CandidateScope {
	return CandidateScope{Mode: ScopeSameHospital, Hospital: h}
}

// ExcludeHospital excludes the given hospital from candidates.
func ExcludeHospital(h id.HospitalID) CandidateScope {
	return CandidateScope{Mode: ScopeExcludeHospital, Hospital: h}
}

// RecipientMatchChange describes a conditional recipient state transition.
// Nil pointer fields clear the corresponding reference.
type RecipientMatchChange struct {
	Status            models.RecipientStatus
	MatchedDonorID    *id.DonorID
	MatchedHospitalID *id.HospitalID
	CompletedAt       *time.Time
}

// DonorMatchChange describes a conditional donor state transition.
type DonorMatchChange struct {
	Status             models.DonorStatus
	MatchedRecipientID *id.RecipientID
	DonatedAt          *time.Time
}

// HospitalStore reads hospital records.
type HospitalStore interface {
	Save(ctx context.Context, hospital *models.Hospital) error
	FindByID(ctx context.Context, hospitalID id.HospitalID) (*models.Hospital, error)
}

// RecipientStore reads recipients and applies conditional match-state writes.
type RecipientStore interface {
	Save(ctx context.Context, recipient *models.Recipient) error
	FindByID(ctx context.Context, recipientID id.RecipientID) (*models.Recipient, error)
	// UpdateMatchState applies change only while the recipient's status is one
	// of from; returns sentinel.ErrConflict otherwise.
	UpdateMatchState(ctx context.Context, recipientID id.RecipientID, from []models.RecipientStatus, change RecipientMatchChange) error
}

// DonorStore reads donors and applies conditional match-state writes.
type DonorStore interface {
	Save(ctx context.Context, donor *models.Donor) error
	FindByID(ctx context.Context, donorID id.DonorID) (*models.Donor, error)
	// ListCandidates returns available donors offering the organ with a blood
	// type in bloodTypes, restricted by scope.
	ListCandidates(ctx context.Context, organ models.Organ, bloodTypes []models.BloodType, scope CandidateScope) ([]*models.Donor, error)
	// UpdateMatchState applies change only while the donor's status is one of
	// from; returns sentinel.ErrConflict otherwise.
	UpdateMatchState(ctx context.Context, donorID id.DonorID, from []models.DonorStatus, change DonorMatchChange) error
}
