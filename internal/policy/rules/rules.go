// Package rules turns structured policy data into typed, testable rule values.
// Malformed policy data yields an error the adjuster logs and skips; it never
// aborts matching.
package rules

import (
	"organlink/internal/matching/engine"
	"organlink/internal/matching/score"
	"organlink/internal/policy/models"
	registry "organlink/internal/registry/models"
	dErrors "organlink/pkg/domain-errors"
)

// WeightOverride replaces the engine's weight tuple for recipients needing a
// specific organ.
type WeightOverride struct {
	PolicyTitle string
	Organ       registry.Organ
	Weights     engine.Weights
}

// AppliesTo reports whether the override targets the recipient's needed organ.
func (o WeightOverride) AppliesTo(recipient *registry.Recipient) bool {
	return o.Organ == recipient.Organ
}

// BonusRule grants an additive score bonus to qualifying candidates.
type BonusRule interface {
	// Name is the policy title used in rationale attribution.
	Name() string
	// AppliesTo reports whether the bonus qualifies this recipient-match pair.
	AppliesTo(recipient *registry.Recipient, match engine.Match) bool
	// Bonus is the additive amount; the adjuster caps totals at 100.
	Bonus() float64
}

// SameLocationBonus favors candidates in the recipient's own city for a
// specific organ.
type SameLocationBonus struct {
	PolicyTitle string
	Organ       registry.Organ
	Amount      float64
}

func (r SameLocationBonus) Name() string   { return r.PolicyTitle }
func (r SameLocationBonus) Bonus() float64 { return r.Amount }

func (r SameLocationBonus) AppliesTo(recipient *registry.Recipient, match engine.Match) bool {
	if r.Organ != recipient.Organ {
		return false
	}
	return match.ProximityTier == score.TierLocal
}

// PediatricBonus favors any candidate when the recipient is a child.
type PediatricBonus struct {
	PolicyTitle string
	Amount      float64
}

const pediatricAgeCutoff = 13

func (r PediatricBonus) Name() string   { return r.PolicyTitle }
func (r PediatricBonus) Bonus() float64 { return r.Amount }

func (r PediatricBonus) AppliesTo(recipient *registry.Recipient, _ engine.Match) bool {
	return recipient.Age < pediatricAgeCutoff
}

// UrgentBonus favors any candidate when the recipient is high or critical
// urgency.
type UrgentBonus struct {
	PolicyTitle string
	Amount      float64
}

func (r UrgentBonus) Name() string   { return r.PolicyTitle }
func (r UrgentBonus) Bonus() float64 { return r.Amount }

func (r UrgentBonus) AppliesTo(recipient *registry.Recipient, _ engine.Match) bool {
	return recipient.Urgency == registry.UrgencyHigh || recipient.Urgency == registry.UrgencyCritical
}

// maxBonus bounds a single rule's additive effect; governance input beyond it
// is malformed.
const maxBonus = 50

// FromPolicy builds typed rules from a policy's structured rule specs.
// It returns at most one weight override (the policy's first) plus any bonus
// rules. An error marks the whole policy malformed.
func FromPolicy(policy *models.Policy) (*WeightOverride, []BonusRule, error) {
	var override *WeightOverride
	var bonuses []BonusRule

	for _, spec := range policy.Rules {
		switch spec.Kind {
		case models.RuleOrganWeightOverride:
			organ, err := registry.NormalizeOrgan(spec.Organ)
			if err != nil {
				return nil, nil, dErrors.Wrap(err, dErrors.CodeValidation, "weight override organ")
			}
			if spec.Weights == nil {
				return nil, nil, dErrors.New(dErrors.CodeValidation, "weight override missing weights")
			}
			weights := engine.Weights{
				Blood:     spec.Weights.Blood,
				Urgency:   spec.Weights.Urgency,
				Proximity: spec.Weights.Proximity,
				Wait:      spec.Weights.Wait,
				Medical:   spec.Weights.Medical,
			}
			if err := weights.Validate(); err != nil {
				return nil, nil, dErrors.Wrap(err, dErrors.CodeValidation, "weight override weights")
			}
			if override == nil {
				override = &WeightOverride{PolicyTitle: policy.Title, Organ: organ, Weights: weights}
			}
		case models.RuleSameLocationBonus:
			organ, err := registry.NormalizeOrgan(spec.Organ)
			if err != nil {
				return nil, nil, dErrors.Wrap(err, dErrors.CodeValidation, "same-location bonus organ")
			}
			if err := validBonus(spec.Bonus); err != nil {
				return nil, nil, err
			}
			bonuses = append(bonuses, SameLocationBonus{PolicyTitle: policy.Title, Organ: organ, Amount: spec.Bonus})
		case models.RulePediatricBonus:
			if err := validBonus(spec.Bonus); err != nil {
				return nil, nil, err
			}
			bonuses = append(bonuses, PediatricBonus{PolicyTitle: policy.Title, Amount: spec.Bonus})
		case models.RuleUrgentBonus:
			if err := validBonus(spec.Bonus); err != nil {
				return nil, nil, err
			}
			bonuses = append(bonuses, UrgentBonus{PolicyTitle: policy.Title, Amount: spec.Bonus})
		default:
			return nil, nil, dErrors.Newf(dErrors.CodeValidation, "unknown rule kind %q", spec.Kind)
		}
	}
	return override, bonuses, nil
}

func validBonus(bonus float64) error {
	if bonus <= 0 || bonus > maxBonus {
		return dErrors.Newf(dErrors.CodeValidation, "bonus must be in (0, %d], got %.1f", maxBonus, bonus)
	}
	return nil
}
