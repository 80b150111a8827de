// Package finder queries eligible candidate donors for a recipient. It
// filters; it never scores.
package finder

import (
	"context"
	"errors"
	"fmt"

	"organlink/internal/matching/engine"
	"organlink/internal/matching/score"
	"organlink/internal/registry/models"
	"organlink/internal/registry/store"
	"organlink/pkg/platform/sentinel"
)

// Finder resolves donor candidates and their hospitals.
type Finder struct {
	donors    store.DonorStore
	hospitals store.HospitalStore
}

// New constructs a candidate finder.
func New(donors store.DonorStore, hospitals store.HospitalStore) *Finder {
	return &Finder{donors: donors, hospitals: hospitals}
}

// Candidates returns available donors whose organ set contains the
// recipient's needed organ and whose blood type is a compatible donor type.
// The caller selects the hospital scope: cross-hospital search excludes the
// recipient's own hospital, same-hospital search powers internal auto-match
// detection.
func (f *Finder) Candidates(ctx context.Context, recipient *models.Recipient, scope store.CandidateScope) ([]engine.Candidate, error) {
	organ, err := models.NormalizeOrgan(string(recipient.Organ))
	if err != nil {
		return nil, err
	}

	bloodTypes := score.CompatibleDonors(recipient.BloodType)
	donors, err := f.donors.ListCandidates(ctx, organ, bloodTypes, scope)
	if err != nil {
		return nil, fmt.Errorf("list donor candidates: %w", err)
	}

	// Hospitals repeat heavily across donors; resolve each once.
	hospitals := make(map[string]*models.Hospital)
	candidates := make([]engine.Candidate, 0, len(donors))
	for _, donor := range donors {
		key := donor.HospitalID.String()
		hospital, ok := hospitals[key]
		if !ok {
			hospital, err = f.hospitals.FindByID(ctx, donor.HospitalID)
			if errors.Is(err, sentinel.ErrNotFound) {
				// A donor whose hospital record vanished is not a usable
				// candidate; skip it rather than failing the whole search.
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("resolve donor hospital: %w", err)
			}
			hospitals[key] = hospital
		}
		candidates = append(candidates, engine.Candidate{Donor: donor, Hospital: hospital})
	}
	return candidates, nil
}
